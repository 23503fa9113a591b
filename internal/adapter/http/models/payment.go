package models

import (
	"errors"
	"strings"
)

type CreatePaymentRequest struct {
	RequisitionID string `json:"requisitionId"`
}

func (r CreatePaymentRequest) Validate() error {
	if strings.TrimSpace(r.RequisitionID) == "" {
		return errors.New("requisitionId is required")
	}
	return nil
}

type ExecutePaymentRequest struct {
	PaymentID  string `json:"paymentId"`
	ExecutorID string `json:"executorId"`
	ClientIP   string `json:"clientIp"`
	DeviceInfo string `json:"deviceInfo"`
}

func (r ExecutePaymentRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.PaymentID) == "" {
		errs = append(errs, "paymentId is required")
	}
	if strings.TrimSpace(r.ExecutorID) == "" {
		errs = append(errs, "executorId is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type PaymentResponse struct {
	ID            string  `json:"id"`
	RequisitionID string  `json:"requisitionId"`
	FundID        string  `json:"fundId"`
	Reference     string  `json:"reference"`
	Amount        string  `json:"amount"`
	Status        string  `json:"status"`
	OtpRequired   bool    `json:"otpRequired"`
	OtpVerifiedAt *string `json:"otpVerifiedAt,omitempty"`
	OtpVerifiedBy *string `json:"otpVerifiedBy,omitempty"`
	RetryCount    int     `json:"retryCount"`
	LastError     *string `json:"lastError,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	ProcessedAt   *string `json:"processedAt,omitempty"`
}

type ExecutePaymentResponse struct {
	Payment           PaymentResponse `json:"payment"`
	LedgerEntryID     string          `json:"ledgerEntryId"`
	FundBalance       string          `json:"fundBalance"`
	ExecutionRecordID string          `json:"executionRecordId"`
}
