package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/repository/memory"
	"github.com/api-sage/treasury-payment-engine/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/api-sage/treasury-payment-engine/internal/usecase/services"
)

const testApproverID = "supervisor-1"

type fixture struct {
	store             *memory.Store
	fundRepo          *memory.FundRepository
	requisitionRepo   *memory.RequisitionRepository
	paymentRepo       *memory.PaymentRepository
	otpRepo           *memory.OtpRepository
	ledgerRepo        *memory.LedgerRepository
	executionRepo     *memory.PaymentExecutionRepository
	varianceRepo      *memory.VarianceRepository
	replenishmentRepo *memory.ReplenishmentRepository
	notifier          *memory.Notifier

	fundService           *services.FundService
	paymentService        *services.PaymentService
	otpService            *services.OtpService
	replenishmentService  *services.ReplenishmentService
	reconciliationService *services.ReconciliationService
}

func newFixture(lockTimeout time.Duration, otpTTL time.Duration) *fixture {
	store := memory.NewStore(lockTimeout)

	f := &fixture{
		store:             store,
		fundRepo:          memory.NewFundRepository(store),
		requisitionRepo:   memory.NewRequisitionRepository(store),
		paymentRepo:       memory.NewPaymentRepository(store),
		otpRepo:           memory.NewOtpRepository(store),
		ledgerRepo:        memory.NewLedgerRepository(store),
		executionRepo:     memory.NewPaymentExecutionRepository(store),
		varianceRepo:      memory.NewVarianceRepository(store),
		replenishmentRepo: memory.NewReplenishmentRepository(store),
		notifier:          memory.NewNotifier(),
	}

	criticalFraction := decimal.RequireFromString("0.5")
	replenishMultiplier := decimal.RequireFromString("2.0")

	f.fundService = services.NewFundService(f.fundRepo, f.ledgerRepo, criticalFraction)
	f.otpService = services.NewOtpService(f.otpRepo, f.paymentRepo, f.notifier, 6, otpTTL)
	f.replenishmentService = services.NewReplenishmentService(f.replenishmentRepo, f.fundRepo, f.notifier, replenishMultiplier)
	f.reconciliationService = services.NewReconciliationService(
		f.ledgerRepo,
		f.varianceRepo,
		f.fundRepo,
		memory.NewApprovalAuthority(testApproverID),
		f.notifier,
	)
	f.paymentService = services.NewPaymentService(
		f.paymentRepo,
		f.requisitionRepo,
		f.executionRepo,
		f.fundRepo,
		memory.NewApprovalResolver(store),
		f.replenishmentService,
		f.notifier,
	)

	return f
}

func newDefaultFixture() *fixture {
	return newFixture(2*time.Second, 5*time.Minute)
}

func (f *fixture) seedFund(t *testing.T, balance, reorderLevel, targetLevel string) domain.Fund {
	t.Helper()

	fund, err := f.fundRepo.Create(context.Background(), domain.Fund{
		ScopeID:      "branch-001",
		Name:         "Front Office Float",
		Currency:     "USD",
		Balance:      decimal.RequireFromString(balance),
		ReorderLevel: decimal.RequireFromString(reorderLevel),
		TargetLevel:  decimal.RequireFromString(targetLevel),
		Status:       domain.FundStatusActive,
	})
	if err != nil {
		t.Fatalf("seed fund: %v", err)
	}
	return fund
}

func (f *fixture) seedRequisition(t *testing.T, fundID, requestedBy, amount string, approved bool) domain.Requisition {
	t.Helper()

	requisition, err := f.requisitionRepo.Create(context.Background(), domain.Requisition{
		ScopeID:       "branch-001",
		FundID:        fundID,
		RequestedBy:   requestedBy,
		Amount:        decimal.RequireFromString(amount),
		Purpose:       "office supplies",
		FullyApproved: approved,
	})
	if err != nil {
		t.Fatalf("seed requisition: %v", err)
	}
	return requisition
}

// seedVerifiedPayment creates a payment straight in OTP_VERIFIED state,
// skipping the otp exchange for tests that only exercise execution.
func (f *fixture) seedVerifiedPayment(t *testing.T, requisition domain.Requisition) domain.Payment {
	t.Helper()

	verifiedAt := time.Now().UTC()
	verifiedBy := "verifier-1"
	payment, err := f.paymentRepo.Create(context.Background(), domain.Payment{
		RequisitionID: requisition.ID,
		FundID:        requisition.FundID,
		Reference:     "REF-" + requisition.ID,
		Amount:        requisition.Amount,
		Status:        domain.PaymentStatusOtpVerified,
		OtpRequired:   true,
		OtpVerifiedAt: &verifiedAt,
		OtpVerifiedBy: &verifiedBy,
	})
	if err != nil {
		t.Fatalf("seed verified payment: %v", err)
	}
	return payment
}

// issuedOtpCode digs the plaintext code for a payment out of the
// captured notifications, newest first.
func (f *fixture) issuedOtpCode(t *testing.T, paymentID string) string {
	t.Helper()

	events := f.notifier.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Event != "payment.otp_issued" {
			continue
		}
		if events[i].Payload["paymentId"] != paymentID {
			continue
		}
		code, ok := events[i].Payload["otp"].(string)
		if !ok {
			t.Fatal("otp payload is not a string")
		}
		return code
	}
	t.Fatalf("no otp issued for payment %s", paymentID)
	return ""
}

// fundCredit builds a replenishment-style credit posting for tests that
// need to move a balance without going through the services.
func fundCredit(fundID, amount string) repo_interfaces.PostParams {
	return repo_interfaces.PostParams{
		FundID:     fundID,
		Delta:      decimal.RequireFromString(amount),
		SourceType: domain.LedgerSourceReplenishment,
		SourceID:   uuid.NewString(),
	}
}

func (f *fixture) fundBalance(t *testing.T, fundID string) decimal.Decimal {
	t.Helper()

	fund, err := f.fundRepo.GetByID(context.Background(), fundID)
	if err != nil {
		t.Fatalf("get fund: %v", err)
	}
	return fund.Balance
}
