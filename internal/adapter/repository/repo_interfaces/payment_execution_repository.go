package repo_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
)

type PaymentExecutionRepository interface {
	Create(ctx context.Context, execution domain.PaymentExecution) (domain.PaymentExecution, error)
	ListByPaymentID(ctx context.Context, paymentID string) ([]domain.PaymentExecution, error)
}
