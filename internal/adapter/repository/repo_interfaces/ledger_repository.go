package repo_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
)

type LedgerRepository interface {
	GetByID(ctx context.Context, id string) (domain.LedgerEntry, error)
	GetByPaymentSource(ctx context.Context, paymentID string) (domain.LedgerEntry, error)
	ListByFundID(ctx context.Context, fundID string) ([]domain.LedgerEntry, error)
	// MarkReconciled flips the reconciled flag once. The returned bool
	// reports whether this call performed the flip; a repeat call is a
	// no-op returning false.
	MarkReconciled(ctx context.Context, id string) (bool, error)
}
