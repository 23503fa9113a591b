package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requisition carries the minimum the payment engine needs from the
// approval workflow: who asked, against which fund, for how much, and
// whether the approval chain has fully signed off.
type Requisition struct {
	ID            string
	ScopeID       string
	FundID        string
	RequestedBy   string
	Amount        decimal.Decimal
	Purpose       string
	FullyApproved bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
