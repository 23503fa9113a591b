package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/http/models"
	"github.com/api-sage/treasury-payment-engine/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/treasury-payment-engine/internal/commons"
	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/api-sage/treasury-payment-engine/internal/logger"
	"github.com/api-sage/treasury-payment-engine/internal/usecase/service_interfaces"
)

type PaymentService struct {
	paymentRepo          repo_interfaces.PaymentRepository
	requisitionRepo      repo_interfaces.RequisitionRepository
	executionRepo        repo_interfaces.PaymentExecutionRepository
	fundRepo             repo_interfaces.FundRepository
	approvalResolver     domain.ApprovalResolver
	replenishmentService service_interfaces.ReplenishmentService
	notifier             domain.Notifier
}

func NewPaymentService(
	paymentRepo repo_interfaces.PaymentRepository,
	requisitionRepo repo_interfaces.RequisitionRepository,
	executionRepo repo_interfaces.PaymentExecutionRepository,
	fundRepo repo_interfaces.FundRepository,
	approvalResolver domain.ApprovalResolver,
	replenishmentService service_interfaces.ReplenishmentService,
	notifier domain.Notifier,
) *PaymentService {
	return &PaymentService{
		paymentRepo:          paymentRepo,
		requisitionRepo:      requisitionRepo,
		executionRepo:        executionRepo,
		fundRepo:             fundRepo,
		approvalResolver:     approvalResolver,
		replenishmentService: replenishmentService,
		notifier:             notifier,
	}
}

var paymentRefCounter uint32

func (s *PaymentService) CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (commons.Response[models.PaymentResponse], error) {
	logger.Info("payment service create payment request", logger.Fields{
		"requisitionId": req.RequisitionID,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.PaymentResponse]("validation failed", err.Error()), err
	}

	requisitionID := strings.TrimSpace(req.RequisitionID)
	requisition, err := s.requisitionRepo.GetByID(ctx, requisitionID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.PaymentResponse]("Requisition not found"), err
		}
		return commons.ErrorResponse[models.PaymentResponse]("failed to create payment", "Unable to create payment right now"), err
	}

	approved, err := s.approvalResolver.IsFullyApproved(ctx, requisitionID)
	if err != nil {
		logger.Error("payment service approval check failed", err, logger.Fields{
			"requisitionId": requisitionID,
		})
		return commons.ErrorResponse[models.PaymentResponse]("failed to create payment", "Unable to create payment right now"), err
	}
	if !approved {
		err := domain.ErrNotApproved
		return commons.ErrorResponse[models.PaymentResponse]("Requisition is not fully approved", err.Error()), err
	}

	if existing, err := s.paymentRepo.GetOpenByRequisitionID(ctx, requisitionID); err == nil {
		dupErr := fmt.Errorf("requisition already has an open payment %s", existing.ID)
		return commons.ErrorResponse[models.PaymentResponse]("validation failed", dupErr.Error()), dupErr
	} else if !errors.Is(err, domain.ErrRecordNotFound) {
		return commons.ErrorResponse[models.PaymentResponse]("failed to create payment", "Unable to create payment right now"), err
	}

	payment := domain.Payment{
		RequisitionID: requisitionID,
		FundID:        requisition.FundID,
		Reference:     generatePaymentReference(),
		Amount:        requisition.Amount,
		Status:        domain.PaymentStatusPending,
		OtpRequired:   true,
	}

	created, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		logger.Error("payment service create payment repository failed", err, logger.Fields{
			"requisitionId": requisitionID,
		})
		return commons.ErrorResponse[models.PaymentResponse]("failed to create payment", "Unable to create payment right now"), err
	}

	logger.Info("payment service create payment success", logger.Fields{
		"paymentId":     created.ID,
		"requisitionId": requisitionID,
		"reference":     created.Reference,
	})
	return commons.SuccessResponse("payment created", mapPaymentToResponse(created)), nil
}

func (s *PaymentService) Execute(ctx context.Context, req models.ExecutePaymentRequest) (commons.Response[models.ExecutePaymentResponse], error) {
	logger.Info("payment service execute request", logger.Fields{
		"paymentId":  req.PaymentID,
		"executorId": req.ExecutorID,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.ExecutePaymentResponse]("validation failed", err.Error()), err
	}

	paymentID := strings.TrimSpace(req.PaymentID)
	executorID := strings.TrimSpace(req.ExecutorID)

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.ExecutePaymentResponse]("Payment not found"), err
		}
		return commons.ErrorResponse[models.ExecutePaymentResponse]("failed to execute payment", "Unable to execute payment right now"), err
	}

	requisition, err := s.requisitionRepo.GetByID(ctx, payment.RequisitionID)
	if err != nil {
		return commons.ErrorResponse[models.ExecutePaymentResponse]("failed to execute payment", "Unable to execute payment right now"), err
	}

	// Segregation of duties: the requester may never execute their own
	// payment, whatever the payment status. Attempts are audit-logged as
	// potential policy violations.
	if executorID == requisition.RequestedBy {
		err := domain.ErrSelfExecutionForbidden
		logger.Warn("payment execution policy violation: requester attempted self execution", logger.Fields{
			"paymentId":     paymentID,
			"requisitionId": requisition.ID,
			"executorId":    executorID,
		})
		return commons.ErrorResponse[models.ExecutePaymentResponse]("Self execution forbidden", err.Error()), err
	}

	if payment.Status != domain.PaymentStatusOtpVerified {
		err := domain.ErrInvalidState
		return commons.ErrorResponse[models.ExecutePaymentResponse]("Payment is not ready for execution", err.Error()), err
	}

	params := repo_interfaces.ExecutePostingParams{
		PaymentID:  paymentID,
		FundID:     payment.FundID,
		Amount:     payment.Amount,
		ExecutorID: executorID,
	}
	if trimmed := strings.TrimSpace(req.ClientIP); trimmed != "" {
		params.ClientIP = &trimmed
	}
	if trimmed := strings.TrimSpace(req.DeviceInfo); trimmed != "" {
		params.DeviceInfo = &trimmed
	}

	entry, execution, err := s.paymentRepo.ExecutePosting(ctx, params)
	if err != nil {
		return s.failExecution(ctx, payment, params, err)
	}

	payment.Status = domain.PaymentStatusSuccess
	payment.ProcessedAt = &execution.CreatedAt

	// Post-commit steps are best effort: the financial transition is
	// already durable and is never rolled back from here.
	if _, err := s.replenishmentService.Evaluate(ctx, payment.FundID); err != nil {
		logger.Error("payment service replenishment evaluation failed", err, logger.Fields{
			"paymentId": paymentID,
			"fundId":    payment.FundID,
		})
	}

	if err := s.notifier.Notify(ctx, "payment.executed", map[string]any{
		"paymentId":    paymentID,
		"reference":    payment.Reference,
		"fundId":       payment.FundID,
		"amount":       payment.Amount.StringFixed(2),
		"executorId":   executorID,
		"balanceAfter": entry.BalanceAfter.StringFixed(2),
	}); err != nil {
		logger.Error("payment service notify failed", err, logger.Fields{
			"paymentId": paymentID,
		})
	}

	response := models.ExecutePaymentResponse{
		Payment:           mapPaymentToResponse(payment),
		LedgerEntryID:     entry.ID,
		FundBalance:       entry.BalanceAfter.StringFixed(2),
		ExecutionRecordID: execution.ID,
	}

	logger.Info("payment service execute success", logger.Fields{
		"paymentId":    paymentID,
		"reference":    payment.Reference,
		"balanceAfter": response.FundBalance,
	})
	return commons.SuccessResponse("payment executed", response), nil
}

// failExecution handles every failure of the posting unit. A lock
// timeout never reached the fund, so the payment stays retryable in
// OTP_VERIFIED; everything else is recorded as a failed attempt and
// moves the payment to FAILED with the error captured.
func (s *PaymentService) failExecution(
	ctx context.Context,
	payment domain.Payment,
	params repo_interfaces.ExecutePostingParams,
	cause error,
) (commons.Response[models.ExecutePaymentResponse], error) {
	logger.Error("payment service execute posting failed", cause, logger.Fields{
		"paymentId": payment.ID,
		"fundId":    payment.FundID,
	})

	if errors.Is(cause, domain.ErrLockTimeout) {
		return commons.ErrorResponse[models.ExecutePaymentResponse]("Fund is busy, retry shortly", cause.Error()), cause
	}

	reason := cause.Error()
	if _, err := s.executionRepo.Create(ctx, domain.PaymentExecution{
		PaymentID:     payment.ID,
		FundID:        payment.FundID,
		Amount:        payment.Amount,
		ExecutorID:    params.ExecutorID,
		Outcome:       domain.ExecutionOutcomeFailed,
		FailureReason: &reason,
		ClientIP:      params.ClientIP,
		DeviceInfo:    params.DeviceInfo,
	}); err != nil {
		logger.Error("payment service record failed execution failed", err, logger.Fields{
			"paymentId": payment.ID,
		})
	}

	if err := s.paymentRepo.MarkFailed(ctx, payment.ID, reason); err != nil {
		logger.Error("payment service mark failed failed", err, logger.Fields{
			"paymentId": payment.ID,
		})
	}

	switch {
	case errors.Is(cause, domain.ErrInsufficientFunds):
		return commons.ErrorResponse[models.ExecutePaymentResponse]("Insufficient funds", cause.Error()), cause
	case errors.Is(cause, domain.ErrFundInactive):
		return commons.ErrorResponse[models.ExecutePaymentResponse]("Fund is not active", cause.Error()), cause
	case errors.Is(cause, domain.ErrInvalidState):
		return commons.ErrorResponse[models.ExecutePaymentResponse]("Payment is not ready for execution", cause.Error()), cause
	default:
		return commons.ErrorResponse[models.ExecutePaymentResponse]("payment failed", "Unable to complete payment posting"), cause
	}
}

func (s *PaymentService) Retry(ctx context.Context, paymentID string) (commons.Response[models.PaymentResponse], error) {
	logger.Info("payment service retry request", logger.Fields{
		"paymentId": paymentID,
	})

	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		err := fmt.Errorf("paymentId is required")
		return commons.ErrorResponse[models.PaymentResponse]("validation failed", err.Error()), err
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.PaymentResponse]("Payment not found"), err
		}
		return commons.ErrorResponse[models.PaymentResponse]("failed to retry payment", "Unable to retry payment right now"), err
	}

	if err := s.paymentRepo.MarkRetry(ctx, paymentID); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return commons.ErrorResponse[models.PaymentResponse]("Only failed payments can be retried", err.Error()), err
		}
		return commons.ErrorResponse[models.PaymentResponse]("failed to retry payment", "Unable to retry payment right now"), err
	}

	payment.Status = domain.PaymentStatusPending
	payment.OtpVerifiedAt = nil
	payment.OtpVerifiedBy = nil

	logger.Info("payment service retry success", logger.Fields{
		"paymentId":  paymentID,
		"retryCount": payment.RetryCount,
	})
	return commons.SuccessResponse("payment reset for retry", mapPaymentToResponse(payment)), nil
}

func (s *PaymentService) Cancel(ctx context.Context, paymentID string) (commons.Response[models.PaymentResponse], error) {
	logger.Info("payment service cancel request", logger.Fields{
		"paymentId": paymentID,
	})

	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		err := fmt.Errorf("paymentId is required")
		return commons.ErrorResponse[models.PaymentResponse]("validation failed", err.Error()), err
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.PaymentResponse]("Payment not found"), err
		}
		return commons.ErrorResponse[models.PaymentResponse]("failed to cancel payment", "Unable to cancel payment right now"), err
	}

	// Abandonment is only possible before execution was ever armed.
	if payment.Status != domain.PaymentStatusPending && payment.Status != domain.PaymentStatusOtpRequested {
		err := domain.ErrInvalidState
		return commons.ErrorResponse[models.PaymentResponse]("Payment can no longer be cancelled", err.Error()), err
	}

	if err := s.paymentRepo.UpdateStatus(ctx, paymentID, domain.PaymentStatusCancelled); err != nil {
		return commons.ErrorResponse[models.PaymentResponse]("failed to cancel payment", "Unable to cancel payment right now"), err
	}

	payment.Status = domain.PaymentStatusCancelled

	logger.Info("payment service cancel success", logger.Fields{
		"paymentId": paymentID,
	})
	return commons.SuccessResponse("payment cancelled", mapPaymentToResponse(payment)), nil
}

func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (commons.Response[models.PaymentResponse], error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		err := fmt.Errorf("paymentId is required")
		return commons.ErrorResponse[models.PaymentResponse]("validation failed", err.Error()), err
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.PaymentResponse]("Payment not found"), err
		}
		return commons.ErrorResponse[models.PaymentResponse]("failed to get payment", "Unable to fetch payment right now"), err
	}

	return commons.SuccessResponse("payment fetched", mapPaymentToResponse(payment)), nil
}

func mapPaymentToResponse(payment domain.Payment) models.PaymentResponse {
	response := models.PaymentResponse{
		ID:            payment.ID,
		RequisitionID: payment.RequisitionID,
		FundID:        payment.FundID,
		Reference:     payment.Reference,
		Amount:        payment.Amount.StringFixed(2),
		Status:        string(payment.Status),
		OtpRequired:   payment.OtpRequired,
		OtpVerifiedBy: payment.OtpVerifiedBy,
		RetryCount:    payment.RetryCount,
		LastError:     payment.LastError,
		CreatedAt:     payment.CreatedAt.Format(time.RFC3339),
	}
	if payment.OtpVerifiedAt != nil {
		value := payment.OtpVerifiedAt.Format(time.RFC3339)
		response.OtpVerifiedAt = &value
	}
	if payment.ProcessedAt != nil {
		value := payment.ProcessedAt.Format(time.RFC3339)
		response.ProcessedAt = &value
	}
	return response
}

func generatePaymentReference() string {
	now := time.Now().UTC()
	base := now.Format("20060102150405") + fmt.Sprintf("%09d", now.Nanosecond())
	counter := atomic.AddUint32(&paymentRefCounter, 1) % 10000000
	suffix := fmt.Sprintf("%07d", counter)
	return base + suffix
}
