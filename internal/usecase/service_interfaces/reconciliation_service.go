package service_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/http/models"
	"github.com/api-sage/treasury-payment-engine/internal/commons"
)

type ReconciliationService interface {
	Reconcile(ctx context.Context, req models.ReconcileRequest) (commons.Response[models.ReconcileResponse], error)
	ApproveVariance(ctx context.Context, req models.ResolveVarianceRequest) (commons.Response[models.VarianceResponse], error)
	RejectVariance(ctx context.Context, req models.ResolveVarianceRequest) (commons.Response[models.VarianceResponse], error)
}
