package repo_interfaces

import (
	"context"
	"time"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// ExecutePostingParams is the atomic unit of a payment execution: fund
// debit, ledger entry, execution record and the SUCCESS transition all
// commit together or not at all.
type ExecutePostingParams struct {
	PaymentID  string
	FundID     string
	Amount     decimal.Decimal
	ExecutorID string
	ClientIP   *string
	DeviceInfo *string
}

type PaymentRepository interface {
	Create(ctx context.Context, payment domain.Payment) (domain.Payment, error)
	GetByID(ctx context.Context, id string) (domain.Payment, error)
	GetOpenByRequisitionID(ctx context.Context, requisitionID string) (domain.Payment, error)
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error
	MarkOtpVerified(ctx context.Context, id string, verifiedBy string, verifiedAt time.Time) error
	MarkFailed(ctx context.Context, id string, lastError string) error
	MarkRetry(ctx context.Context, id string) error
	ExecutePosting(ctx context.Context, params ExecutePostingParams) (domain.LedgerEntry, domain.PaymentExecution, error)
}
