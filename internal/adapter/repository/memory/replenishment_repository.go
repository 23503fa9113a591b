package memory

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/google/uuid"
)

type ReplenishmentRepository struct {
	store *Store
}

func NewReplenishmentRepository(store *Store) *ReplenishmentRepository {
	return &ReplenishmentRepository{store: store}
}

func (r *ReplenishmentRepository) Create(_ context.Context, request domain.ReplenishmentRequest) (domain.ReplenishmentRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	// At-most-one-pending guard, matching the postgres partial unique
	// index: a concurrent duplicate resolves to the existing request.
	if request.Status == domain.ReplenishmentStatusPending {
		for _, existing := range r.store.replenishments {
			if existing.FundID == request.FundID && existing.Status == domain.ReplenishmentStatusPending {
				return existing, nil
			}
		}
	}

	request.ID = uuid.NewString()
	request.CreatedAt = now()
	request.UpdatedAt = request.CreatedAt
	r.store.replenishments[request.ID] = request

	return request, nil
}

func (r *ReplenishmentRepository) GetByID(_ context.Context, id string) (domain.ReplenishmentRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	request, ok := r.store.replenishments[id]
	if !ok {
		return domain.ReplenishmentRequest{}, domain.ErrRecordNotFound
	}
	return request, nil
}

func (r *ReplenishmentRepository) GetPendingByFundID(_ context.Context, fundID string) (domain.ReplenishmentRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, request := range r.store.replenishments {
		if request.FundID == fundID && request.Status == domain.ReplenishmentStatusPending {
			return request, nil
		}
	}
	return domain.ReplenishmentRequest{}, domain.ErrRecordNotFound
}

func (r *ReplenishmentRepository) Transition(_ context.Context, id string, from domain.ReplenishmentStatus, to domain.ReplenishmentStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	request, ok := r.store.replenishments[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if request.Status != from {
		return domain.ErrInvalidState
	}

	request.Status = to
	request.UpdatedAt = now()
	r.store.replenishments[id] = request
	return nil
}
