package repo_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
)

type OtpRepository interface {
	Create(ctx context.Context, code domain.OtpCode) (domain.OtpCode, error)
	GetLatestByPaymentID(ctx context.Context, paymentID string) (domain.OtpCode, error)
	InvalidateActive(ctx context.Context, paymentID string) error
	// Consume marks the code used. The update is a compare-and-set on
	// the consumed timestamp; a second consume of the same code fails
	// with domain.ErrOtpAlreadyUsed.
	Consume(ctx context.Context, codeID string) error
}
