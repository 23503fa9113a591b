package models

import (
	"errors"
	"strings"
)

type FulfillReplenishmentRequest struct {
	RequestID string `json:"requestId"`
}

func (r FulfillReplenishmentRequest) Validate() error {
	if strings.TrimSpace(r.RequestID) == "" {
		return errors.New("requestId is required")
	}
	return nil
}

type EvaluateReplenishmentResponse struct {
	FundID    string                 `json:"fundId"`
	Triggered bool                   `json:"triggered"`
	Request   *ReplenishmentResponse `json:"request,omitempty"`
}

type ReplenishmentResponse struct {
	ID              string `json:"id"`
	FundID          string `json:"fundId"`
	RequestedAmount string `json:"requestedAmount"`
	AutoTriggered   bool   `json:"autoTriggered"`
	Status          string `json:"status"`
	CreatedAt       string `json:"createdAt"`
}
