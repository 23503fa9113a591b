package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExecutionOutcome string

const (
	ExecutionOutcomeSuccess ExecutionOutcome = "SUCCESS"
	ExecutionOutcomeFailed  ExecutionOutcome = "FAILED"
)

// PaymentExecution is one attempt in the append-only audit trail. Rows
// are never updated or deleted.
type PaymentExecution struct {
	ID            string
	PaymentID     string
	FundID        string
	Amount        decimal.Decimal
	ExecutorID    string
	Outcome       ExecutionOutcome
	FailureReason *string
	ClientIP      *string
	DeviceInfo    *string
	CreatedAt     time.Time
}
