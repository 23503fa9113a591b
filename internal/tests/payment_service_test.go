package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/http/models"
	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/api-sage/treasury-payment-engine/internal/usecase/services"
)

func TestPaymentServiceCreatePaymentValidationError(t *testing.T) {
	svc := services.NewPaymentService(nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.CreatePayment(context.Background(), models.CreatePaymentRequest{})
	if err == nil {
		t.Fatal("expected validation error for empty create payment request")
	}
}

func TestPaymentServiceExecuteValidationError(t *testing.T) {
	svc := services.NewPaymentService(nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.Execute(context.Background(), models.ExecutePaymentRequest{})
	if err == nil {
		t.Fatal("expected validation error for empty execute request")
	}
}

func TestPaymentServiceCreatePaymentRequiresFullApproval(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "1000.00", "100.00", "500.00")
	requisition := f.seedRequisition(t, fund.ID, "requester-1", "50.00", false)

	_, err := f.paymentService.CreatePayment(context.Background(), models.CreatePaymentRequest{
		RequisitionID: requisition.ID,
	})
	if !errors.Is(err, domain.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}
}

func TestPaymentServiceCreatePaymentRejectsSecondOpenPayment(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "1000.00", "100.00", "500.00")
	requisition := f.seedRequisition(t, fund.ID, "requester-1", "50.00", true)

	if _, err := f.paymentService.CreatePayment(context.Background(), models.CreatePaymentRequest{
		RequisitionID: requisition.ID,
	}); err != nil {
		t.Fatalf("first payment: %v", err)
	}

	if _, err := f.paymentService.CreatePayment(context.Background(), models.CreatePaymentRequest{
		RequisitionID: requisition.ID,
	}); err == nil {
		t.Fatal("expected error for second open payment on the same requisition")
	}
}

func TestPaymentServiceFullFlow(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "1000.00", "100.00", "500.00")
	requisition := f.seedRequisition(t, fund.ID, "requester-1", "250.00", true)

	ctx := context.Background()

	created, err := f.paymentService.CreatePayment(ctx, models.CreatePaymentRequest{
		RequisitionID: requisition.ID,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	paymentID := created.Data.ID
	if created.Data.Status != string(domain.PaymentStatusPending) {
		t.Fatalf("expected PENDING, got %s", created.Data.Status)
	}
	if created.Data.Reference == "" {
		t.Fatal("expected a payment reference")
	}

	if _, err := f.otpService.Issue(ctx, models.IssueOtpRequest{PaymentID: paymentID}); err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	code := f.issuedOtpCode(t, paymentID)
	if _, err := f.otpService.Verify(ctx, models.VerifyOtpRequest{
		PaymentID:  paymentID,
		Code:       code,
		VerifiedBy: "verifier-1",
	}); err != nil {
		t.Fatalf("verify otp: %v", err)
	}

	executed, err := f.paymentService.Execute(ctx, models.ExecutePaymentRequest{
		PaymentID:  paymentID,
		ExecutorID: "executor-1",
		ClientIP:   "10.0.0.8",
	})
	if err != nil {
		t.Fatalf("execute payment: %v", err)
	}

	if executed.Data.Payment.Status != string(domain.PaymentStatusSuccess) {
		t.Fatalf("expected SUCCESS, got %s", executed.Data.Payment.Status)
	}
	if executed.Data.FundBalance != "750.00" {
		t.Fatalf("expected balance 750.00, got %s", executed.Data.FundBalance)
	}

	entry, err := f.ledgerRepo.GetByPaymentSource(ctx, paymentID)
	if err != nil {
		t.Fatalf("ledger entry: %v", err)
	}
	if !entry.Delta.Equal(decimal.RequireFromString("-250.00")) {
		t.Fatalf("expected delta -250.00, got %s", entry.Delta)
	}
	if !entry.BalanceAfter.Equal(f.fundBalance(t, fund.ID)) {
		t.Fatal("ledger balance after does not match fund balance")
	}

	executions, err := f.executionRepo.ListByPaymentID(ctx, paymentID)
	if err != nil {
		t.Fatalf("list executions: %v", err)
	}
	if len(executions) != 1 || executions[0].Outcome != domain.ExecutionOutcomeSuccess {
		t.Fatalf("expected one successful execution record, got %+v", executions)
	}
}

func TestPaymentServiceExecuteForbidsSelfExecution(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "1000.00", "100.00", "500.00")
	requisition := f.seedRequisition(t, fund.ID, "requester-1", "50.00", true)
	payment := f.seedVerifiedPayment(t, requisition)

	_, err := f.paymentService.Execute(context.Background(), models.ExecutePaymentRequest{
		PaymentID:  payment.ID,
		ExecutorID: "requester-1",
	})
	if !errors.Is(err, domain.ErrSelfExecutionForbidden) {
		t.Fatalf("expected ErrSelfExecutionForbidden, got %v", err)
	}

	// The refusal must not consume the verified state or touch the fund.
	stored, err := f.paymentRepo.GetByID(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if stored.Status != domain.PaymentStatusOtpVerified {
		t.Fatalf("expected OTP_VERIFIED, got %s", stored.Status)
	}
	if !f.fundBalance(t, fund.ID).Equal(decimal.RequireFromString("1000.00")) {
		t.Fatal("fund balance changed on a refused execution")
	}
}

func TestPaymentServiceExecuteForbidsSelfExecutionBeforeStateCheck(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "1000.00", "100.00", "500.00")
	requisition := f.seedRequisition(t, fund.ID, "requester-1", "50.00", true)

	created, err := f.paymentService.CreatePayment(context.Background(), models.CreatePaymentRequest{
		RequisitionID: requisition.ID,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	// Still PENDING, but the requester identity is refused first.
	_, err = f.paymentService.Execute(context.Background(), models.ExecutePaymentRequest{
		PaymentID:  created.Data.ID,
		ExecutorID: "requester-1",
	})
	if !errors.Is(err, domain.ErrSelfExecutionForbidden) {
		t.Fatalf("expected ErrSelfExecutionForbidden, got %v", err)
	}
}

func TestPaymentServiceExecuteRequiresVerifiedState(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "1000.00", "100.00", "500.00")
	requisition := f.seedRequisition(t, fund.ID, "requester-1", "50.00", true)

	created, err := f.paymentService.CreatePayment(context.Background(), models.CreatePaymentRequest{
		RequisitionID: requisition.ID,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	_, err = f.paymentService.Execute(context.Background(), models.ExecutePaymentRequest{
		PaymentID:  created.Data.ID,
		ExecutorID: "executor-1",
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestPaymentServiceInsufficientFundsMarksFailedThenRetrySucceeds(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "40.00", "10.00", "100.00")
	requisition := f.seedRequisition(t, fund.ID, "requester-1", "75.00", true)
	payment := f.seedVerifiedPayment(t, requisition)

	ctx := context.Background()

	_, err := f.paymentService.Execute(ctx, models.ExecutePaymentRequest{
		PaymentID:  payment.ID,
		ExecutorID: "executor-1",
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	stored, err := f.paymentRepo.GetByID(ctx, payment.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if stored.Status != domain.PaymentStatusFailed {
		t.Fatalf("expected FAILED, got %s", stored.Status)
	}
	if stored.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", stored.RetryCount)
	}
	if stored.LastError == nil {
		t.Fatal("expected last error recorded")
	}

	executions, err := f.executionRepo.ListByPaymentID(ctx, payment.ID)
	if err != nil {
		t.Fatalf("list executions: %v", err)
	}
	if len(executions) != 1 || executions[0].Outcome != domain.ExecutionOutcomeFailed {
		t.Fatalf("expected one failed execution record, got %+v", executions)
	}

	// Top the fund up, retry, re-verify, and the payment goes through.
	if _, err := f.fundRepo.Post(ctx, fundCredit(fund.ID, "100.00")); err != nil {
		t.Fatalf("credit fund: %v", err)
	}

	if _, err := f.paymentService.Retry(ctx, payment.ID); err != nil {
		t.Fatalf("retry payment: %v", err)
	}

	if _, err := f.otpService.Issue(ctx, models.IssueOtpRequest{PaymentID: payment.ID}); err != nil {
		t.Fatalf("issue otp: %v", err)
	}
	code := f.issuedOtpCode(t, payment.ID)
	if _, err := f.otpService.Verify(ctx, models.VerifyOtpRequest{
		PaymentID:  payment.ID,
		Code:       code,
		VerifiedBy: "verifier-1",
	}); err != nil {
		t.Fatalf("verify otp: %v", err)
	}

	executed, err := f.paymentService.Execute(ctx, models.ExecutePaymentRequest{
		PaymentID:  payment.ID,
		ExecutorID: "executor-1",
	})
	if err != nil {
		t.Fatalf("execute after retry: %v", err)
	}
	if executed.Data.FundBalance != "65.00" {
		t.Fatalf("expected balance 65.00, got %s", executed.Data.FundBalance)
	}

	executions, err = f.executionRepo.ListByPaymentID(ctx, payment.ID)
	if err != nil {
		t.Fatalf("list executions: %v", err)
	}
	if len(executions) != 2 {
		t.Fatalf("expected both attempts on record, got %d", len(executions))
	}
}

func TestPaymentServiceRetryRequiresFailedState(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "1000.00", "100.00", "500.00")
	requisition := f.seedRequisition(t, fund.ID, "requester-1", "50.00", true)
	payment := f.seedVerifiedPayment(t, requisition)

	_, err := f.paymentService.Retry(context.Background(), payment.ID)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestPaymentServiceCancelOnlyBeforeVerification(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "1000.00", "100.00", "500.00")

	ctx := context.Background()

	pendingReq := f.seedRequisition(t, fund.ID, "requester-1", "50.00", true)
	created, err := f.paymentService.CreatePayment(ctx, models.CreatePaymentRequest{
		RequisitionID: pendingReq.ID,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	cancelled, err := f.paymentService.Cancel(ctx, created.Data.ID)
	if err != nil {
		t.Fatalf("cancel pending payment: %v", err)
	}
	if cancelled.Data.Status != string(domain.PaymentStatusCancelled) {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Data.Status)
	}

	verifiedReq := f.seedRequisition(t, fund.ID, "requester-2", "50.00", true)
	verified := f.seedVerifiedPayment(t, verifiedReq)

	if _, err := f.paymentService.Cancel(ctx, verified.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for verified payment, got %v", err)
	}
}

func TestPaymentServiceConcurrentExecutionsNeverOverdraw(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "100.00", "10.00", "200.00")

	ctx := context.Background()
	const workers = 4

	payments := make([]domain.Payment, workers)
	for i := 0; i < workers; i++ {
		requisition := f.seedRequisition(t, fund.ID, "requester-1", "60.00", true)
		payments[i] = f.seedVerifiedPayment(t, requisition)
	}

	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.paymentService.Execute(ctx, models.ExecutePaymentRequest{
				PaymentID:  payments[i].ID,
				ExecutorID: "executor-1",
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("unexpected execution error: %v", err)
		}
	}

	// Only one 60.00 debit fits into 100.00.
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful execution, got %d", succeeded)
	}
	if !f.fundBalance(t, fund.ID).Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected balance 40.00, got %s", f.fundBalance(t, fund.ID))
	}
}

func TestPaymentServiceLockTimeoutLeavesPaymentRetryable(t *testing.T) {
	f := newFixture(50*time.Millisecond, 5*time.Minute)
	fund := f.seedFund(t, "1000.00", "100.00", "500.00")
	requisition := f.seedRequisition(t, fund.ID, "requester-1", "50.00", true)
	payment := f.seedVerifiedPayment(t, requisition)

	ctx := context.Background()

	release, err := f.store.LockFund(ctx, fund.ID)
	if err != nil {
		t.Fatalf("hold fund lock: %v", err)
	}
	defer release()

	_, err = f.paymentService.Execute(ctx, models.ExecutePaymentRequest{
		PaymentID:  payment.ID,
		ExecutorID: "executor-1",
	})
	if !errors.Is(err, domain.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}

	stored, err := f.paymentRepo.GetByID(ctx, payment.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if stored.Status != domain.PaymentStatusOtpVerified {
		t.Fatalf("expected OTP_VERIFIED after lock timeout, got %s", stored.Status)
	}
	if stored.RetryCount != 0 {
		t.Fatalf("expected no failed attempt recorded, got retry count %d", stored.RetryCount)
	}
}

func TestPaymentServiceExecuteTriggersReplenishment(t *testing.T) {
	f := newDefaultFixture()
	fund := f.seedFund(t, "120.00", "100.00", "500.00")
	requisition := f.seedRequisition(t, fund.ID, "requester-1", "50.00", true)
	payment := f.seedVerifiedPayment(t, requisition)

	ctx := context.Background()

	if _, err := f.paymentService.Execute(ctx, models.ExecutePaymentRequest{
		PaymentID:  payment.ID,
		ExecutorID: "executor-1",
	}); err != nil {
		t.Fatalf("execute payment: %v", err)
	}

	// Balance dropped to 70.00, below the 100.00 reorder level.
	pending, err := f.replenishmentRepo.GetPendingByFundID(ctx, fund.ID)
	if err != nil {
		t.Fatalf("expected pending replenishment request: %v", err)
	}
	if !pending.RequestedAmount.Equal(decimal.RequireFromString("430.00")) {
		t.Fatalf("expected requested amount 430.00, got %s", pending.RequestedAmount)
	}
	if !pending.AutoTriggered {
		t.Fatal("expected replenishment to be auto triggered")
	}
}
