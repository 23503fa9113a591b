package repo_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
)

type VarianceRepository interface {
	Create(ctx context.Context, variance domain.VarianceAdjustment) (domain.VarianceAdjustment, error)
	GetByID(ctx context.Context, id string) (domain.VarianceAdjustment, error)
	GetPendingByLedgerEntryID(ctx context.Context, ledgerEntryID string) (domain.VarianceAdjustment, error)
	// Resolve is a compare-and-set from PENDING to the terminal status.
	// Resolving an already resolved variance fails with
	// domain.ErrAlreadyResolved.
	Resolve(ctx context.Context, id string, status domain.VarianceStatus, approverID string) (domain.VarianceAdjustment, error)
	// Reopen reverts a resolve claim back to PENDING, compare-and-set
	// from the given terminal status. Used when the side effects of a
	// resolution could not be applied.
	Reopen(ctx context.Context, id string, from domain.VarianceStatus) error
}
