package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type VarianceStatus string

const (
	VarianceStatusPending  VarianceStatus = "PENDING"
	VarianceStatusApproved VarianceStatus = "APPROVED"
	VarianceStatusRejected VarianceStatus = "REJECTED"
)

type VarianceAdjustment struct {
	ID             string
	PaymentID      string
	LedgerEntryID  string
	OriginalAmount decimal.Decimal
	AdjustedAmount decimal.Decimal
	Reason         string
	Status         VarianceStatus
	ApproverID     *string
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
