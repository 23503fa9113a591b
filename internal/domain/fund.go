package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type FundStatus string

const (
	FundStatusActive   FundStatus = "ACTIVE"
	FundStatusInactive FundStatus = "INACTIVE"
)

type FundHealth string

const (
	FundHealthOK       FundHealth = "OK"
	FundHealthWarning  FundHealth = "WARNING"
	FundHealthCritical FundHealth = "CRITICAL"
)

type Fund struct {
	ID           string
	ScopeID      string
	Name         string
	Currency     string
	Balance      decimal.Decimal
	ReorderLevel decimal.Decimal
	TargetLevel  decimal.Decimal
	Status       FundStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Health derives the fund health band from the current balance. The
// critical band sits at criticalFraction of the reorder level.
func (f Fund) Health(criticalFraction decimal.Decimal) FundHealth {
	if f.ReorderLevel.LessThanOrEqual(decimal.Zero) {
		return FundHealthOK
	}
	if f.Balance.LessThanOrEqual(f.ReorderLevel.Mul(criticalFraction)) {
		return FundHealthCritical
	}
	if f.Balance.LessThanOrEqual(f.ReorderLevel) {
		return FundHealthWarning
	}
	return FundHealthOK
}
