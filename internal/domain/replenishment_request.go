package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReplenishmentStatus string

const (
	ReplenishmentStatusPending   ReplenishmentStatus = "PENDING"
	ReplenishmentStatusFulfilled ReplenishmentStatus = "FULFILLED"
	ReplenishmentStatusCancelled ReplenishmentStatus = "CANCELLED"
)

// ReplenishmentRequest tops a fund back up to its target level. At most
// one PENDING request may exist per fund.
type ReplenishmentRequest struct {
	ID              string
	FundID          string
	RequestedAmount decimal.Decimal
	AutoTriggered   bool
	Status          ReplenishmentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
