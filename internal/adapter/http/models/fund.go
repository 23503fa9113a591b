package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type CreateFundRequest struct {
	ScopeID        string          `json:"scopeId"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	ReorderLevel   decimal.Decimal `json:"reorderLevel"`
	TargetLevel    decimal.Decimal `json:"targetLevel"`
}

func (r CreateFundRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.ScopeID) == "" {
		errs = append(errs, "scopeId is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if len(strings.TrimSpace(r.Currency)) != 3 {
		errs = append(errs, "currency must be 3 characters")
	}
	if r.InitialBalance.IsNegative() {
		errs = append(errs, "initialBalance cannot be negative")
	}
	if r.ReorderLevel.IsNegative() {
		errs = append(errs, "reorderLevel cannot be negative")
	}
	if r.TargetLevel.IsNegative() {
		errs = append(errs, "targetLevel cannot be negative")
	}
	if !r.TargetLevel.IsZero() && r.TargetLevel.LessThan(r.ReorderLevel) {
		errs = append(errs, "targetLevel cannot be below reorderLevel")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type FundResponse struct {
	ID           string `json:"id"`
	ScopeID      string `json:"scopeId"`
	Name         string `json:"name"`
	Currency     string `json:"currency"`
	Balance      string `json:"balance"`
	ReorderLevel string `json:"reorderLevel"`
	TargetLevel  string `json:"targetLevel"`
	Status       string `json:"status"`
	Health       string `json:"health"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

type LedgerEntryResponse struct {
	ID           string `json:"id"`
	FundID       string `json:"fundId"`
	Delta        string `json:"delta"`
	BalanceAfter string `json:"balanceAfter"`
	SourceType   string `json:"sourceType"`
	SourceID     string `json:"sourceId"`
	Reconciled   bool   `json:"reconciled"`
	CreatedAt    string `json:"createdAt"`
}
