package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/http/models"
	"github.com/api-sage/treasury-payment-engine/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/treasury-payment-engine/internal/commons"
	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/api-sage/treasury-payment-engine/internal/logger"
)

type ReplenishmentService struct {
	replenishmentRepo   repo_interfaces.ReplenishmentRepository
	fundRepo            repo_interfaces.FundRepository
	notifier            domain.Notifier
	replenishMultiplier decimal.Decimal
}

func NewReplenishmentService(
	replenishmentRepo repo_interfaces.ReplenishmentRepository,
	fundRepo repo_interfaces.FundRepository,
	notifier domain.Notifier,
	replenishMultiplier decimal.Decimal,
) *ReplenishmentService {
	return &ReplenishmentService{
		replenishmentRepo:   replenishmentRepo,
		fundRepo:            fundRepo,
		notifier:            notifier,
		replenishMultiplier: replenishMultiplier,
	}
}

// Evaluate checks a fund against its reorder level and raises a pending
// replenishment request when the balance has fallen to or below it. The
// check is idempotent: an existing pending request suppresses a new one.
func (s *ReplenishmentService) Evaluate(ctx context.Context, fundID string) (commons.Response[models.EvaluateReplenishmentResponse], error) {
	fundID = strings.TrimSpace(fundID)
	if fundID == "" {
		err := fmt.Errorf("fundId is required")
		return commons.ErrorResponse[models.EvaluateReplenishmentResponse]("validation failed", err.Error()), err
	}

	fund, err := s.fundRepo.GetByID(ctx, fundID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.EvaluateReplenishmentResponse]("Fund not found"), err
		}
		return commons.ErrorResponse[models.EvaluateReplenishmentResponse]("failed to evaluate replenishment", "Unable to evaluate fund right now"), err
	}

	notTriggered := models.EvaluateReplenishmentResponse{FundID: fundID, Triggered: false}

	if fund.Status != domain.FundStatusActive {
		return commons.SuccessResponse("fund is inactive, replenishment skipped", notTriggered), nil
	}
	if fund.ReorderLevel.LessThanOrEqual(decimal.Zero) || fund.Balance.GreaterThan(fund.ReorderLevel) {
		return commons.SuccessResponse("fund above reorder level", notTriggered), nil
	}

	if pending, err := s.replenishmentRepo.GetPendingByFundID(ctx, fundID); err == nil {
		response := models.EvaluateReplenishmentResponse{FundID: fundID, Triggered: false}
		mapped := mapReplenishmentToResponse(pending)
		response.Request = &mapped
		return commons.SuccessResponse("replenishment already pending", response), nil
	} else if !errors.Is(err, domain.ErrRecordNotFound) {
		return commons.ErrorResponse[models.EvaluateReplenishmentResponse]("failed to evaluate replenishment", "Unable to evaluate fund right now"), err
	}

	amount := s.replenishTarget(fund).Sub(fund.Balance)
	if amount.LessThanOrEqual(decimal.Zero) {
		return commons.SuccessResponse("fund already at target", notTriggered), nil
	}

	created, err := s.replenishmentRepo.Create(ctx, domain.ReplenishmentRequest{
		FundID:          fundID,
		RequestedAmount: amount,
		AutoTriggered:   true,
		Status:          domain.ReplenishmentStatusPending,
	})
	if err != nil {
		logger.Error("replenishment service create request failed", err, logger.Fields{
			"fundId": fundID,
		})
		return commons.ErrorResponse[models.EvaluateReplenishmentResponse]("failed to evaluate replenishment", "Unable to raise replenishment right now"), err
	}

	if err := s.notifier.Notify(ctx, "replenishment.triggered", map[string]any{
		"fundId":          fundID,
		"requestId":       created.ID,
		"requestedAmount": created.RequestedAmount.StringFixed(2),
		"balance":         fund.Balance.StringFixed(2),
		"reorderLevel":    fund.ReorderLevel.StringFixed(2),
	}); err != nil {
		logger.Error("replenishment service notify failed", err, logger.Fields{
			"requestId": created.ID,
		})
	}

	logger.Info("replenishment service triggered", logger.Fields{
		"fundId":          fundID,
		"requestId":       created.ID,
		"requestedAmount": created.RequestedAmount.StringFixed(2),
	})

	mapped := mapReplenishmentToResponse(created)
	return commons.SuccessResponse("replenishment triggered", models.EvaluateReplenishmentResponse{
		FundID:    fundID,
		Triggered: true,
		Request:   &mapped,
	}), nil
}

func (s *ReplenishmentService) Fulfill(ctx context.Context, req models.FulfillReplenishmentRequest) (commons.Response[models.ReplenishmentResponse], error) {
	logger.Info("replenishment service fulfill request", logger.Fields{
		"requestId": req.RequestID,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.ReplenishmentResponse]("validation failed", err.Error()), err
	}

	requestID := strings.TrimSpace(req.RequestID)
	request, err := s.replenishmentRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.ReplenishmentResponse]("Replenishment request not found"), err
		}
		return commons.ErrorResponse[models.ReplenishmentResponse]("failed to fulfill replenishment", "Unable to fulfill request right now"), err
	}

	// Claim the request before touching the fund so a concurrent fulfill
	// can never credit twice.
	if err := s.replenishmentRepo.Transition(ctx, requestID, domain.ReplenishmentStatusPending, domain.ReplenishmentStatusFulfilled); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return commons.ErrorResponse[models.ReplenishmentResponse]("Replenishment request is not pending", err.Error()), err
		}
		return commons.ErrorResponse[models.ReplenishmentResponse]("failed to fulfill replenishment", "Unable to fulfill request right now"), err
	}

	entry, err := s.fundRepo.Post(ctx, repo_interfaces.PostParams{
		FundID:     request.FundID,
		Delta:      request.RequestedAmount,
		SourceType: domain.LedgerSourceReplenishment,
		SourceID:   requestID,
	})
	if err != nil {
		// The claim stands but the credit did not land. Surface the
		// failure loudly; the request stays FULFILLED only on success.
		logger.Error("replenishment service credit posting failed", err, logger.Fields{
			"requestId": requestID,
			"fundId":    request.FundID,
		})
		if revertErr := s.replenishmentRepo.Transition(ctx, requestID, domain.ReplenishmentStatusFulfilled, domain.ReplenishmentStatusPending); revertErr != nil {
			logger.Error("replenishment service claim revert failed", revertErr, logger.Fields{
				"requestId": requestID,
			})
		}
		return commons.ErrorResponse[models.ReplenishmentResponse]("failed to fulfill replenishment", "Unable to credit fund right now"), err
	}

	request.Status = domain.ReplenishmentStatusFulfilled

	if err := s.notifier.Notify(ctx, "replenishment.fulfilled", map[string]any{
		"requestId":    requestID,
		"fundId":       request.FundID,
		"amount":       request.RequestedAmount.StringFixed(2),
		"balanceAfter": entry.BalanceAfter.StringFixed(2),
	}); err != nil {
		logger.Error("replenishment service notify failed", err, logger.Fields{
			"requestId": requestID,
		})
	}

	logger.Info("replenishment service fulfill success", logger.Fields{
		"requestId":    requestID,
		"fundId":       request.FundID,
		"balanceAfter": entry.BalanceAfter.StringFixed(2),
	})
	return commons.SuccessResponse("replenishment fulfilled", mapReplenishmentToResponse(request)), nil
}

func (s *ReplenishmentService) Cancel(ctx context.Context, requestID string) (commons.Response[models.ReplenishmentResponse], error) {
	logger.Info("replenishment service cancel request", logger.Fields{
		"requestId": requestID,
	})

	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		err := fmt.Errorf("requestId is required")
		return commons.ErrorResponse[models.ReplenishmentResponse]("validation failed", err.Error()), err
	}

	request, err := s.replenishmentRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.ReplenishmentResponse]("Replenishment request not found"), err
		}
		return commons.ErrorResponse[models.ReplenishmentResponse]("failed to cancel replenishment", "Unable to cancel request right now"), err
	}

	if err := s.replenishmentRepo.Transition(ctx, requestID, domain.ReplenishmentStatusPending, domain.ReplenishmentStatusCancelled); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return commons.ErrorResponse[models.ReplenishmentResponse]("Replenishment request is not pending", err.Error()), err
		}
		return commons.ErrorResponse[models.ReplenishmentResponse]("failed to cancel replenishment", "Unable to cancel request right now"), err
	}

	request.Status = domain.ReplenishmentStatusCancelled

	logger.Info("replenishment service cancel success", logger.Fields{
		"requestId": requestID,
	})
	return commons.SuccessResponse("replenishment cancelled", mapReplenishmentToResponse(request)), nil
}

// replenishTarget is the balance a fulfilled request should restore.
// Funds without an explicit target level fall back to a multiple of the
// reorder level.
func (s *ReplenishmentService) replenishTarget(fund domain.Fund) decimal.Decimal {
	if fund.TargetLevel.GreaterThan(decimal.Zero) {
		return fund.TargetLevel
	}
	return fund.ReorderLevel.Mul(s.replenishMultiplier)
}

func mapReplenishmentToResponse(request domain.ReplenishmentRequest) models.ReplenishmentResponse {
	return models.ReplenishmentResponse{
		ID:              request.ID,
		FundID:          request.FundID,
		RequestedAmount: request.RequestedAmount.StringFixed(2),
		AutoTriggered:   request.AutoTriggered,
		Status:          string(request.Status),
		CreatedAt:       request.CreatedAt.Format(time.RFC3339),
	}
}
