package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type ReconcileRequest struct {
	PaymentID           string          `json:"paymentId"`
	ActualSettledAmount decimal.Decimal `json:"actualSettledAmount"`
	Reason              string          `json:"reason"`
}

func (r ReconcileRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.PaymentID) == "" {
		errs = append(errs, "paymentId is required")
	}
	if r.ActualSettledAmount.IsNegative() {
		errs = append(errs, "actualSettledAmount cannot be negative")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type ResolveVarianceRequest struct {
	VarianceID string `json:"varianceId"`
	ApproverID string `json:"approverId"`
}

func (r ResolveVarianceRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.VarianceID) == "" {
		errs = append(errs, "varianceId is required")
	}
	if strings.TrimSpace(r.ApproverID) == "" {
		errs = append(errs, "approverId is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type ReconcileResponse struct {
	PaymentID     string  `json:"paymentId"`
	LedgerEntryID string  `json:"ledgerEntryId"`
	Reconciled    bool    `json:"reconciled"`
	VarianceID    *string `json:"varianceId,omitempty"`
}

type VarianceResponse struct {
	ID             string  `json:"id"`
	PaymentID      string  `json:"paymentId"`
	LedgerEntryID  string  `json:"ledgerEntryId"`
	OriginalAmount string  `json:"originalAmount"`
	AdjustedAmount string  `json:"adjustedAmount"`
	Reason         string  `json:"reason"`
	Status         string  `json:"status"`
	ApproverID     *string `json:"approverId,omitempty"`
	CorrectiveID   *string `json:"correctiveLedgerEntryId,omitempty"`
}
