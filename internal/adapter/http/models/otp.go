package models

import (
	"errors"
	"strings"
)

type IssueOtpRequest struct {
	PaymentID string `json:"paymentId"`
}

func (r IssueOtpRequest) Validate() error {
	if strings.TrimSpace(r.PaymentID) == "" {
		return errors.New("paymentId is required")
	}
	return nil
}

type VerifyOtpRequest struct {
	PaymentID  string `json:"paymentId"`
	Code       string `json:"code"`
	VerifiedBy string `json:"verifiedBy"`
}

func (r VerifyOtpRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.PaymentID) == "" {
		errs = append(errs, "paymentId is required")
	}
	if !digitsOnly(strings.TrimSpace(r.Code)) {
		errs = append(errs, "code must be numeric")
	}
	if strings.TrimSpace(r.VerifiedBy) == "" {
		errs = append(errs, "verifiedBy is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type IssueOtpResponse struct {
	PaymentID string `json:"paymentId"`
	ExpiresAt string `json:"expiresAt"`
}

type VerifyOtpResponse struct {
	PaymentID  string `json:"paymentId"`
	Status     string `json:"status"`
	VerifiedAt string `json:"verifiedAt"`
	VerifiedBy string `json:"verifiedBy"`
}
