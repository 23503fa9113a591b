package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/http/models"
	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/api-sage/treasury-payment-engine/internal/usecase/services"
)

func TestFundServiceCreateFundValidationError(t *testing.T) {
	svc := services.NewFundService(nil, nil, decimal.RequireFromString("0.5"))

	_, err := svc.CreateFund(context.Background(), models.CreateFundRequest{})
	if err == nil {
		t.Fatal("expected validation error for empty create fund request")
	}
}

func TestFundServiceCreateFundRejectsTargetBelowReorder(t *testing.T) {
	svc := services.NewFundService(nil, nil, decimal.RequireFromString("0.5"))

	_, err := svc.CreateFund(context.Background(), models.CreateFundRequest{
		ScopeID:        "branch-001",
		Name:           "Front Office Float",
		Currency:       "USD",
		InitialBalance: decimal.RequireFromString("100.00"),
		ReorderLevel:   decimal.RequireFromString("200.00"),
		TargetLevel:    decimal.RequireFromString("150.00"),
	})
	if err == nil {
		t.Fatal("expected validation error for target below reorder level")
	}
}

func TestFundServiceCreateAndGetFund(t *testing.T) {
	f := newDefaultFixture()

	ctx := context.Background()
	created, err := f.fundService.CreateFund(ctx, models.CreateFundRequest{
		ScopeID:        "branch-001",
		Name:           "Front Office Float",
		Currency:       "usd",
		InitialBalance: decimal.RequireFromString("1000.00"),
		ReorderLevel:   decimal.RequireFromString("100.00"),
		TargetLevel:    decimal.RequireFromString("500.00"),
	})
	if err != nil {
		t.Fatalf("create fund: %v", err)
	}
	if created.Data.Currency != "USD" {
		t.Fatalf("expected currency normalized to USD, got %s", created.Data.Currency)
	}
	if created.Data.Status != string(domain.FundStatusActive) {
		t.Fatalf("expected ACTIVE, got %s", created.Data.Status)
	}

	fetched, err := f.fundService.GetFund(ctx, created.Data.ID)
	if err != nil {
		t.Fatalf("get fund: %v", err)
	}
	if fetched.Data.Balance != "1000.00" {
		t.Fatalf("expected balance 1000.00, got %s", fetched.Data.Balance)
	}
}

func TestFundServiceHealthBands(t *testing.T) {
	f := newDefaultFixture()

	cases := []struct {
		name    string
		balance string
		want    string
	}{
		{"above reorder", "150.00", string(domain.FundHealthOK)},
		{"at reorder", "100.00", string(domain.FundHealthWarning)},
		{"half reorder", "50.00", string(domain.FundHealthCritical)},
		{"empty", "0.00", string(domain.FundHealthCritical)},
	}

	for _, tc := range cases {
		fund := f.seedFund(t, tc.balance, "100.00", "500.00")
		got, err := f.fundService.GetFund(context.Background(), fund.ID)
		if err != nil {
			t.Fatalf("%s: get fund: %v", tc.name, err)
		}
		if got.Data.Health != tc.want {
			t.Fatalf("%s: expected health %s, got %s", tc.name, tc.want, got.Data.Health)
		}
	}
}

func TestFundServiceDeactivateBlocksExecution(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "1000.00", "100.00", "500.00")
	requisition := f.seedRequisition(t, fund.ID, "requester-1", "50.00", true)
	payment := f.seedVerifiedPayment(t, requisition)

	ctx := context.Background()
	deactivated, err := f.fundService.DeactivateFund(ctx, fund.ID)
	if err != nil {
		t.Fatalf("deactivate fund: %v", err)
	}
	if deactivated.Data.Status != string(domain.FundStatusInactive) {
		t.Fatalf("expected INACTIVE, got %s", deactivated.Data.Status)
	}

	_, err = f.paymentService.Execute(ctx, models.ExecutePaymentRequest{
		PaymentID:  payment.ID,
		ExecutorID: "executor-1",
	})
	if !errors.Is(err, domain.ErrFundInactive) {
		t.Fatalf("expected ErrFundInactive, got %v", err)
	}
}

func TestFundServiceListLedgerNewestFirst(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "1000.00", "100.00", "500.00")

	ctx := context.Background()
	for _, amount := range []string{"10.00", "20.00"} {
		if _, err := f.fundRepo.Post(ctx, fundCredit(fund.ID, amount)); err != nil {
			t.Fatalf("post credit: %v", err)
		}
	}

	listed, err := f.fundService.ListLedger(ctx, fund.ID)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	entries := *listed.Data
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Delta != "20.00" || entries[1].Delta != "10.00" {
		t.Fatalf("expected newest first ordering, got %+v", entries)
	}
	if entries[0].BalanceAfter != "1030.00" {
		t.Fatalf("expected running balance 1030.00, got %s", entries[0].BalanceAfter)
	}
}

func TestFundServiceGetFundNotFound(t *testing.T) {
	f := newDefaultFixture()

	_, err := f.fundService.GetFund(context.Background(), "missing")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
