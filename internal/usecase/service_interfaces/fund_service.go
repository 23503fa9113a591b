package service_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/http/models"
	"github.com/api-sage/treasury-payment-engine/internal/commons"
)

type FundService interface {
	CreateFund(ctx context.Context, req models.CreateFundRequest) (commons.Response[models.FundResponse], error)
	GetFund(ctx context.Context, fundID string) (commons.Response[models.FundResponse], error)
	DeactivateFund(ctx context.Context, fundID string) (commons.Response[models.FundResponse], error)
	ListLedger(ctx context.Context, fundID string) (commons.Response[[]models.LedgerEntryResponse], error)
}
