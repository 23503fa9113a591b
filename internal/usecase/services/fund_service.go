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

type FundService struct {
	fundRepo         repo_interfaces.FundRepository
	ledgerRepo       repo_interfaces.LedgerRepository
	criticalFraction decimal.Decimal
}

func NewFundService(
	fundRepo repo_interfaces.FundRepository,
	ledgerRepo repo_interfaces.LedgerRepository,
	criticalFraction decimal.Decimal,
) *FundService {
	return &FundService{
		fundRepo:         fundRepo,
		ledgerRepo:       ledgerRepo,
		criticalFraction: criticalFraction,
	}
}

func (s *FundService) CreateFund(ctx context.Context, req models.CreateFundRequest) (commons.Response[models.FundResponse], error) {
	logger.Info("fund service create fund request", logger.Fields{
		"scopeId": req.ScopeID,
		"name":    req.Name,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.FundResponse]("validation failed", err.Error()), err
	}

	fund := domain.Fund{
		ScopeID:      strings.TrimSpace(req.ScopeID),
		Name:         strings.TrimSpace(req.Name),
		Currency:     strings.ToUpper(strings.TrimSpace(req.Currency)),
		Balance:      req.InitialBalance,
		ReorderLevel: req.ReorderLevel,
		TargetLevel:  req.TargetLevel,
		Status:       domain.FundStatusActive,
	}

	created, err := s.fundRepo.Create(ctx, fund)
	if err != nil {
		logger.Error("fund service create fund repository failed", err, logger.Fields{
			"scopeId": fund.ScopeID,
		})
		return commons.ErrorResponse[models.FundResponse]("failed to create fund", "Unable to create fund right now"), err
	}

	logger.Info("fund service create fund success", logger.Fields{
		"fundId":  created.ID,
		"scopeId": created.ScopeID,
	})
	return commons.SuccessResponse("fund created", s.mapFundToResponse(created)), nil
}

func (s *FundService) GetFund(ctx context.Context, fundID string) (commons.Response[models.FundResponse], error) {
	fundID = strings.TrimSpace(fundID)
	if fundID == "" {
		err := fmt.Errorf("fundId is required")
		return commons.ErrorResponse[models.FundResponse]("validation failed", err.Error()), err
	}

	fund, err := s.fundRepo.GetByID(ctx, fundID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.FundResponse]("Fund not found"), err
		}
		return commons.ErrorResponse[models.FundResponse]("failed to get fund", "Unable to fetch fund right now"), err
	}

	return commons.SuccessResponse("fund fetched", s.mapFundToResponse(fund)), nil
}

func (s *FundService) DeactivateFund(ctx context.Context, fundID string) (commons.Response[models.FundResponse], error) {
	logger.Info("fund service deactivate request", logger.Fields{
		"fundId": fundID,
	})

	fundID = strings.TrimSpace(fundID)
	if fundID == "" {
		err := fmt.Errorf("fundId is required")
		return commons.ErrorResponse[models.FundResponse]("validation failed", err.Error()), err
	}

	if err := s.fundRepo.Deactivate(ctx, fundID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.FundResponse]("Fund not found"), err
		}
		return commons.ErrorResponse[models.FundResponse]("failed to deactivate fund", "Unable to deactivate fund right now"), err
	}

	fund, err := s.fundRepo.GetByID(ctx, fundID)
	if err != nil {
		return commons.ErrorResponse[models.FundResponse]("failed to deactivate fund", "Unable to fetch fund right now"), err
	}

	logger.Info("fund service deactivate success", logger.Fields{
		"fundId": fundID,
	})
	return commons.SuccessResponse("fund deactivated", s.mapFundToResponse(fund)), nil
}

func (s *FundService) ListLedger(ctx context.Context, fundID string) (commons.Response[[]models.LedgerEntryResponse], error) {
	fundID = strings.TrimSpace(fundID)
	if fundID == "" {
		err := fmt.Errorf("fundId is required")
		return commons.ErrorResponse[[]models.LedgerEntryResponse]("validation failed", err.Error()), err
	}

	if _, err := s.fundRepo.GetByID(ctx, fundID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[[]models.LedgerEntryResponse]("Fund not found"), err
		}
		return commons.ErrorResponse[[]models.LedgerEntryResponse]("failed to list ledger", "Unable to fetch ledger right now"), err
	}

	entries, err := s.ledgerRepo.ListByFundID(ctx, fundID)
	if err != nil {
		logger.Error("fund service list ledger repository failed", err, logger.Fields{
			"fundId": fundID,
		})
		return commons.ErrorResponse[[]models.LedgerEntryResponse]("failed to list ledger", "Unable to fetch ledger right now"), err
	}

	responses := make([]models.LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapLedgerEntryToResponse(entry))
	}

	return commons.SuccessResponse("ledger fetched", responses), nil
}

func (s *FundService) mapFundToResponse(fund domain.Fund) models.FundResponse {
	return models.FundResponse{
		ID:           fund.ID,
		ScopeID:      fund.ScopeID,
		Name:         fund.Name,
		Currency:     fund.Currency,
		Balance:      fund.Balance.StringFixed(2),
		ReorderLevel: fund.ReorderLevel.StringFixed(2),
		TargetLevel:  fund.TargetLevel.StringFixed(2),
		Status:       string(fund.Status),
		Health:       string(fund.Health(s.criticalFraction)),
		CreatedAt:    fund.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    fund.UpdatedAt.Format(time.RFC3339),
	}
}

func mapLedgerEntryToResponse(entry domain.LedgerEntry) models.LedgerEntryResponse {
	return models.LedgerEntryResponse{
		ID:           entry.ID,
		FundID:       entry.FundID,
		Delta:        entry.Delta.StringFixed(2),
		BalanceAfter: entry.BalanceAfter.StringFixed(2),
		SourceType:   string(entry.SourceType),
		SourceID:     entry.SourceID,
		Reconciled:   entry.Reconciled,
		CreatedAt:    entry.CreatedAt.Format(time.RFC3339),
	}
}
