package memory

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/google/uuid"
)

type RequisitionRepository struct {
	store *Store
}

func NewRequisitionRepository(store *Store) *RequisitionRepository {
	return &RequisitionRepository{store: store}
}

func (r *RequisitionRepository) Create(_ context.Context, requisition domain.Requisition) (domain.Requisition, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	requisition.ID = uuid.NewString()
	requisition.CreatedAt = now()
	requisition.UpdatedAt = requisition.CreatedAt
	r.store.requisitions[requisition.ID] = requisition

	return requisition, nil
}

func (r *RequisitionRepository) GetByID(_ context.Context, id string) (domain.Requisition, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	requisition, ok := r.store.requisitions[id]
	if !ok {
		return domain.Requisition{}, domain.ErrRecordNotFound
	}
	return requisition, nil
}

func (r *RequisitionRepository) SetFullyApproved(_ context.Context, id string, approved bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	requisition, ok := r.store.requisitions[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	requisition.FullyApproved = approved
	requisition.UpdatedAt = now()
	r.store.requisitions[id] = requisition
	return nil
}
