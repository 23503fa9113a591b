package service_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/http/models"
	"github.com/api-sage/treasury-payment-engine/internal/commons"
)

type ReplenishmentService interface {
	Evaluate(ctx context.Context, fundID string) (commons.Response[models.EvaluateReplenishmentResponse], error)
	Fulfill(ctx context.Context, req models.FulfillReplenishmentRequest) (commons.Response[models.ReplenishmentResponse], error)
	Cancel(ctx context.Context, requestID string) (commons.Response[models.ReplenishmentResponse], error)
}
