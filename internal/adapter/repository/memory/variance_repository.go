package memory

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/google/uuid"
)

type VarianceRepository struct {
	store *Store
}

func NewVarianceRepository(store *Store) *VarianceRepository {
	return &VarianceRepository{store: store}
}

func (r *VarianceRepository) Create(_ context.Context, variance domain.VarianceAdjustment) (domain.VarianceAdjustment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	variance.ID = uuid.NewString()
	variance.CreatedAt = now()
	variance.UpdatedAt = variance.CreatedAt
	r.store.variances[variance.ID] = variance

	return variance, nil
}

func (r *VarianceRepository) GetByID(_ context.Context, id string) (domain.VarianceAdjustment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	variance, ok := r.store.variances[id]
	if !ok {
		return domain.VarianceAdjustment{}, domain.ErrRecordNotFound
	}
	return variance, nil
}

func (r *VarianceRepository) GetPendingByLedgerEntryID(_ context.Context, ledgerEntryID string) (domain.VarianceAdjustment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, variance := range r.store.variances {
		if variance.LedgerEntryID == ledgerEntryID && variance.Status == domain.VarianceStatusPending {
			return variance, nil
		}
	}
	return domain.VarianceAdjustment{}, domain.ErrRecordNotFound
}

func (r *VarianceRepository) Resolve(_ context.Context, id string, status domain.VarianceStatus, approverID string) (domain.VarianceAdjustment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	variance, ok := r.store.variances[id]
	if !ok {
		return domain.VarianceAdjustment{}, domain.ErrRecordNotFound
	}
	if variance.Status != domain.VarianceStatusPending {
		return domain.VarianceAdjustment{}, domain.ErrAlreadyResolved
	}

	timestamp := now()
	variance.Status = status
	variance.ApproverID = &approverID
	variance.ResolvedAt = &timestamp
	variance.UpdatedAt = timestamp
	r.store.variances[id] = variance

	return variance, nil
}

func (r *VarianceRepository) Reopen(_ context.Context, id string, from domain.VarianceStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	variance, ok := r.store.variances[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if variance.Status != from {
		return domain.ErrInvalidState
	}

	variance.Status = domain.VarianceStatusPending
	variance.ApproverID = nil
	variance.ResolvedAt = nil
	variance.UpdatedAt = now()
	r.store.variances[id] = variance
	return nil
}
