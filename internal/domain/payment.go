package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending      PaymentStatus = "PENDING"
	PaymentStatusOtpRequested PaymentStatus = "OTP_REQUESTED"
	PaymentStatusOtpVerified  PaymentStatus = "OTP_VERIFIED"
	PaymentStatusExecuting    PaymentStatus = "EXECUTING"
	PaymentStatusSuccess      PaymentStatus = "SUCCESS"
	PaymentStatusFailed       PaymentStatus = "FAILED"
	PaymentStatusCancelled    PaymentStatus = "CANCELLED"
)

type Payment struct {
	ID               string
	RequisitionID    string
	FundID           string
	Reference        string
	Amount           decimal.Decimal
	Status           PaymentStatus
	OtpRequired      bool
	OtpVerifiedAt    *time.Time
	OtpVerifiedBy    *string
	RetryCount       int
	LastError        *string
	GatewayReference *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ProcessedAt      *time.Time
}
