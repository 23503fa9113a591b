package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerSource string

const (
	LedgerSourcePayment       LedgerSource = "PAYMENT"
	LedgerSourceVariance      LedgerSource = "VARIANCE"
	LedgerSourceReplenishment LedgerSource = "REPLENISHMENT"
)

// LedgerEntry is insert-only. The only field that ever changes after
// insert is Reconciled, flipped once by the reconciliation service.
type LedgerEntry struct {
	ID           string
	FundID       string
	Delta        decimal.Decimal
	BalanceAfter decimal.Decimal
	SourceType   LedgerSource
	SourceID     string
	Reconciled   bool
	CreatedAt    time.Time
}
