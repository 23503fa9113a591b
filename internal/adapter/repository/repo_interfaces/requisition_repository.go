package repo_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
)

type RequisitionRepository interface {
	Create(ctx context.Context, requisition domain.Requisition) (domain.Requisition, error)
	GetByID(ctx context.Context, id string) (domain.Requisition, error)
	SetFullyApproved(ctx context.Context, id string, approved bool) error
}
