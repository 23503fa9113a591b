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

func TestReplenishmentServiceEvaluateValidationError(t *testing.T) {
	svc := services.NewReplenishmentService(nil, nil, nil, decimal.RequireFromString("2.0"))

	_, err := svc.Evaluate(context.Background(), "")
	if err == nil {
		t.Fatal("expected validation error for missing fund id")
	}
}

func TestReplenishmentServiceEvaluateAboveReorderLevel(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "500.00", "100.00", "600.00")

	result, err := f.replenishmentService.Evaluate(context.Background(), fund.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.Data.Triggered {
		t.Fatal("expected no replenishment above the reorder level")
	}
}

func TestReplenishmentServiceEvaluateTriggersAtReorderLevel(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "100.00", "100.00", "600.00")

	result, err := f.replenishmentService.Evaluate(context.Background(), fund.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !result.Data.Triggered {
		t.Fatal("expected replenishment at the reorder level")
	}
	if result.Data.Request == nil {
		t.Fatal("expected request in the evaluation result")
	}
	if result.Data.Request.RequestedAmount != "500.00" {
		t.Fatalf("expected requested amount 500.00, got %s", result.Data.Request.RequestedAmount)
	}
}

func TestReplenishmentServiceEvaluateUsesMultiplierWithoutTarget(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "60.00", "100.00", "0.00")

	result, err := f.replenishmentService.Evaluate(context.Background(), fund.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !result.Data.Triggered {
		t.Fatal("expected replenishment below the reorder level")
	}
	// Target falls back to 100.00 x 2.0 = 200.00.
	if result.Data.Request.RequestedAmount != "140.00" {
		t.Fatalf("expected requested amount 140.00, got %s", result.Data.Request.RequestedAmount)
	}
}

func TestReplenishmentServiceEvaluateKeepsSinglePendingRequest(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "50.00", "100.00", "600.00")

	ctx := context.Background()
	first, err := f.replenishmentService.Evaluate(ctx, fund.ID)
	if err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	if !first.Data.Triggered {
		t.Fatal("expected first evaluation to trigger")
	}

	second, err := f.replenishmentService.Evaluate(ctx, fund.ID)
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if second.Data.Triggered {
		t.Fatal("expected second evaluation to reuse the pending request")
	}
	if second.Data.Request == nil || second.Data.Request.ID != first.Data.Request.ID {
		t.Fatal("expected the existing pending request to be returned")
	}
}

func TestReplenishmentServiceEvaluateSkipsInactiveFund(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "50.00", "100.00", "600.00")

	ctx := context.Background()
	if err := f.fundRepo.Deactivate(ctx, fund.ID); err != nil {
		t.Fatalf("deactivate fund: %v", err)
	}

	result, err := f.replenishmentService.Evaluate(ctx, fund.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.Data.Triggered {
		t.Fatal("expected no replenishment for an inactive fund")
	}
}

func TestReplenishmentServiceFulfillCreditsFund(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "50.00", "100.00", "600.00")

	ctx := context.Background()
	result, err := f.replenishmentService.Evaluate(ctx, fund.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	requestID := result.Data.Request.ID

	fulfilled, err := f.replenishmentService.Fulfill(ctx, models.FulfillReplenishmentRequest{
		RequestID: requestID,
	})
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if fulfilled.Data.Status != string(domain.ReplenishmentStatusFulfilled) {
		t.Fatalf("expected FULFILLED, got %s", fulfilled.Data.Status)
	}

	if !f.fundBalance(t, fund.ID).Equal(decimal.RequireFromString("600.00")) {
		t.Fatalf("expected balance restored to 600.00, got %s", f.fundBalance(t, fund.ID))
	}

	entries, err := f.ledgerRepo.ListByFundID(ctx, fund.ID)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	var found bool
	for _, entry := range entries {
		if entry.SourceType == domain.LedgerSourceReplenishment && entry.SourceID == requestID {
			found = true
			if !entry.Delta.Equal(decimal.RequireFromString("550.00")) {
				t.Fatalf("expected credit of 550.00, got %s", entry.Delta)
			}
		}
	}
	if !found {
		t.Fatal("expected a replenishment ledger entry")
	}
}

func TestReplenishmentServiceFulfillIsSingleShot(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "50.00", "100.00", "600.00")

	ctx := context.Background()
	result, err := f.replenishmentService.Evaluate(ctx, fund.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	request := models.FulfillReplenishmentRequest{RequestID: result.Data.Request.ID}

	if _, err := f.replenishmentService.Fulfill(ctx, request); err != nil {
		t.Fatalf("first fulfill: %v", err)
	}

	_, err = f.replenishmentService.Fulfill(ctx, request)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on repeat fulfill, got %v", err)
	}

	if !f.fundBalance(t, fund.ID).Equal(decimal.RequireFromString("600.00")) {
		t.Fatal("repeat fulfill must not credit twice")
	}
}

func TestReplenishmentServiceCancelPendingRequest(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "50.00", "100.00", "600.00")

	ctx := context.Background()
	result, err := f.replenishmentService.Evaluate(ctx, fund.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	cancelled, err := f.replenishmentService.Cancel(ctx, result.Data.Request.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Data.Status != string(domain.ReplenishmentStatusCancelled) {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Data.Status)
	}

	// A cancelled request no longer blocks a fresh trigger.
	again, err := f.replenishmentService.Evaluate(ctx, fund.ID)
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if !again.Data.Triggered {
		t.Fatal("expected a new request after cancellation")
	}
}
