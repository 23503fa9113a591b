package service_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/http/models"
	"github.com/api-sage/treasury-payment-engine/internal/commons"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (commons.Response[models.PaymentResponse], error)
	Execute(ctx context.Context, req models.ExecutePaymentRequest) (commons.Response[models.ExecutePaymentResponse], error)
	Retry(ctx context.Context, paymentID string) (commons.Response[models.PaymentResponse], error)
	Cancel(ctx context.Context, paymentID string) (commons.Response[models.PaymentResponse], error)
	GetPayment(ctx context.Context, paymentID string) (commons.Response[models.PaymentResponse], error)
}
