package repo_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// PostParams is one signed balance movement on a fund. Positive deltas
// credit, negative deltas debit. The repository acquires the fund's
// exclusive lock for the duration of the posting and the resulting
// balance is never allowed below zero.
type PostParams struct {
	FundID     string
	Delta      decimal.Decimal
	SourceType domain.LedgerSource
	SourceID   string
}

type FundRepository interface {
	Create(ctx context.Context, fund domain.Fund) (domain.Fund, error)
	GetByID(ctx context.Context, id string) (domain.Fund, error)
	Deactivate(ctx context.Context, id string) error
	Post(ctx context.Context, params PostParams) (domain.LedgerEntry, error)
}
