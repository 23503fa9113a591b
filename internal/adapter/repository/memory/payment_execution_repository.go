package memory

import (
	"context"
	"sort"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/google/uuid"
)

type PaymentExecutionRepository struct {
	store *Store
}

func NewPaymentExecutionRepository(store *Store) *PaymentExecutionRepository {
	return &PaymentExecutionRepository{store: store}
}

func (r *PaymentExecutionRepository) Create(_ context.Context, execution domain.PaymentExecution) (domain.PaymentExecution, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	execution.ID = uuid.NewString()
	execution.CreatedAt = now()
	r.store.executions[execution.ID] = execution

	return execution, nil
}

func (r *PaymentExecutionRepository) ListByPaymentID(_ context.Context, paymentID string) ([]domain.PaymentExecution, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	executions := make([]domain.PaymentExecution, 0)
	for _, execution := range r.store.executions {
		if execution.PaymentID == paymentID {
			executions = append(executions, execution)
		}
	}
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.After(executions[j].CreatedAt)
	})

	return executions, nil
}
