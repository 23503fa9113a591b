package memory

import (
	"context"
	"time"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/google/uuid"
)

type PaymentRepository struct {
	store *Store
}

func NewPaymentRepository(store *Store) *PaymentRepository {
	return &PaymentRepository{store: store}
}

func (r *PaymentRepository) Create(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	payment.ID = uuid.NewString()
	payment.CreatedAt = now()
	payment.UpdatedAt = payment.CreatedAt
	r.store.payments[payment.ID] = payment

	return payment, nil
}

func (r *PaymentRepository) GetByID(_ context.Context, id string) (domain.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	payment, ok := r.store.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrRecordNotFound
	}
	return payment, nil
}

func (r *PaymentRepository) GetOpenByRequisitionID(_ context.Context, requisitionID string) (domain.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var (
		found  bool
		latest domain.Payment
	)
	for _, payment := range r.store.payments {
		if payment.RequisitionID != requisitionID {
			continue
		}
		if payment.Status == domain.PaymentStatusFailed || payment.Status == domain.PaymentStatusCancelled {
			continue
		}
		if !found || payment.CreatedAt.After(latest.CreatedAt) {
			latest = payment
			found = true
		}
	}
	if !found {
		return domain.Payment{}, domain.ErrRecordNotFound
	}
	return latest, nil
}

func (r *PaymentRepository) UpdateStatus(_ context.Context, id string, status domain.PaymentStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	payment, ok := r.store.payments[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	payment.Status = status
	payment.UpdatedAt = now()
	if status == domain.PaymentStatusSuccess || status == domain.PaymentStatusFailed || status == domain.PaymentStatusCancelled {
		processedAt := now()
		payment.ProcessedAt = &processedAt
	}
	r.store.payments[id] = payment
	return nil
}

func (r *PaymentRepository) MarkOtpVerified(_ context.Context, id string, verifiedBy string, verifiedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	payment, ok := r.store.payments[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if payment.Status != domain.PaymentStatusOtpRequested {
		return domain.ErrInvalidState
	}

	payment.Status = domain.PaymentStatusOtpVerified
	payment.OtpVerifiedAt = &verifiedAt
	payment.OtpVerifiedBy = &verifiedBy
	payment.UpdatedAt = now()
	r.store.payments[id] = payment
	return nil
}

func (r *PaymentRepository) MarkFailed(_ context.Context, id string, lastError string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	payment, ok := r.store.payments[id]
	if !ok {
		return domain.ErrRecordNotFound
	}

	processedAt := now()
	payment.Status = domain.PaymentStatusFailed
	payment.LastError = &lastError
	payment.RetryCount++
	payment.ProcessedAt = &processedAt
	payment.UpdatedAt = processedAt
	r.store.payments[id] = payment
	return nil
}

func (r *PaymentRepository) MarkRetry(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	payment, ok := r.store.payments[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if payment.Status != domain.PaymentStatusFailed {
		return domain.ErrInvalidState
	}

	payment.Status = domain.PaymentStatusPending
	payment.OtpVerifiedAt = nil
	payment.OtpVerifiedBy = nil
	payment.UpdatedAt = now()
	r.store.payments[id] = payment
	return nil
}

// ExecutePosting mirrors the postgres transaction: everything below is
// applied under the fund lock and the store mutex, or not at all.
func (r *PaymentRepository) ExecutePosting(ctx context.Context, params repo_interfaces.ExecutePostingParams) (domain.LedgerEntry, domain.PaymentExecution, error) {
	release, err := r.store.LockFund(ctx, params.FundID)
	if err != nil {
		return domain.LedgerEntry{}, domain.PaymentExecution{}, err
	}
	defer release()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	fund, ok := r.store.funds[params.FundID]
	if !ok {
		return domain.LedgerEntry{}, domain.PaymentExecution{}, domain.ErrRecordNotFound
	}
	if fund.Status != domain.FundStatusActive {
		return domain.LedgerEntry{}, domain.PaymentExecution{}, domain.ErrFundInactive
	}

	payment, ok := r.store.payments[params.PaymentID]
	if !ok {
		return domain.LedgerEntry{}, domain.PaymentExecution{}, domain.ErrRecordNotFound
	}
	if payment.Status != domain.PaymentStatusOtpVerified {
		return domain.LedgerEntry{}, domain.PaymentExecution{}, domain.ErrInvalidState
	}

	// Balance re-check happens here, strictly after the lock was taken.
	balanceAfter := fund.Balance.Sub(params.Amount)
	if balanceAfter.IsNegative() {
		return domain.LedgerEntry{}, domain.PaymentExecution{}, domain.ErrInsufficientFunds
	}

	timestamp := now()

	fund.Balance = balanceAfter
	fund.UpdatedAt = timestamp
	r.store.funds[params.FundID] = fund

	entry := domain.LedgerEntry{
		ID:           uuid.NewString(),
		FundID:       params.FundID,
		Delta:        params.Amount.Neg(),
		BalanceAfter: balanceAfter,
		SourceType:   domain.LedgerSourcePayment,
		SourceID:     params.PaymentID,
		CreatedAt:    timestamp,
	}
	r.store.ledgerEntries[entry.ID] = entry

	execution := domain.PaymentExecution{
		ID:         uuid.NewString(),
		PaymentID:  params.PaymentID,
		FundID:     params.FundID,
		Amount:     params.Amount,
		ExecutorID: params.ExecutorID,
		Outcome:    domain.ExecutionOutcomeSuccess,
		ClientIP:   params.ClientIP,
		DeviceInfo: params.DeviceInfo,
		CreatedAt:  timestamp,
	}
	r.store.executions[execution.ID] = execution

	payment.Status = domain.PaymentStatusSuccess
	payment.ProcessedAt = &timestamp
	payment.UpdatedAt = timestamp
	r.store.payments[params.PaymentID] = payment

	return entry, execution, nil
}
