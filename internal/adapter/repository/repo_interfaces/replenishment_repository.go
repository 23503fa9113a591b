package repo_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
)

type ReplenishmentRepository interface {
	Create(ctx context.Context, request domain.ReplenishmentRequest) (domain.ReplenishmentRequest, error)
	GetByID(ctx context.Context, id string) (domain.ReplenishmentRequest, error)
	GetPendingByFundID(ctx context.Context, fundID string) (domain.ReplenishmentRequest, error)
	// Transition is a compare-and-set between statuses; zero rows moved
	// means the request was not in the expected state.
	Transition(ctx context.Context, id string, from domain.ReplenishmentStatus, to domain.ReplenishmentStatus) error
}
