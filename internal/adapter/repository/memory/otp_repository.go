package memory

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/google/uuid"
)

type OtpRepository struct {
	store *Store
}

func NewOtpRepository(store *Store) *OtpRepository {
	return &OtpRepository{store: store}
}

func (r *OtpRepository) Create(_ context.Context, code domain.OtpCode) (domain.OtpCode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	code.ID = uuid.NewString()
	code.CreatedAt = now()
	r.store.otpCodes[code.ID] = code

	return code, nil
}

func (r *OtpRepository) GetLatestByPaymentID(_ context.Context, paymentID string) (domain.OtpCode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var (
		found  bool
		latest domain.OtpCode
	)
	for _, code := range r.store.otpCodes {
		if code.PaymentID != paymentID {
			continue
		}
		if !found || code.CreatedAt.After(latest.CreatedAt) {
			latest = code
			found = true
		}
	}
	if !found {
		return domain.OtpCode{}, domain.ErrRecordNotFound
	}
	return latest, nil
}

func (r *OtpRepository) InvalidateActive(_ context.Context, paymentID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	timestamp := now()
	for id, code := range r.store.otpCodes {
		if code.PaymentID == paymentID && code.ConsumedAt == nil {
			code.ConsumedAt = &timestamp
			r.store.otpCodes[id] = code
		}
	}
	return nil
}

func (r *OtpRepository) Consume(_ context.Context, codeID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	code, ok := r.store.otpCodes[codeID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if code.ConsumedAt != nil {
		return domain.ErrOtpAlreadyUsed
	}

	timestamp := now()
	code.ConsumedAt = &timestamp
	r.store.otpCodes[codeID] = code
	return nil
}
