package memory

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/google/uuid"
)

type FundRepository struct {
	store *Store
}

func NewFundRepository(store *Store) *FundRepository {
	return &FundRepository{store: store}
}

func (r *FundRepository) Create(_ context.Context, fund domain.Fund) (domain.Fund, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	fund.ID = uuid.NewString()
	fund.CreatedAt = now()
	fund.UpdatedAt = fund.CreatedAt
	r.store.funds[fund.ID] = fund

	return fund, nil
}

func (r *FundRepository) GetByID(_ context.Context, id string) (domain.Fund, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	fund, ok := r.store.funds[id]
	if !ok {
		return domain.Fund{}, domain.ErrRecordNotFound
	}
	return fund, nil
}

func (r *FundRepository) Deactivate(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	fund, ok := r.store.funds[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	fund.Status = domain.FundStatusInactive
	fund.UpdatedAt = now()
	r.store.funds[id] = fund
	return nil
}

func (r *FundRepository) Post(ctx context.Context, params repo_interfaces.PostParams) (domain.LedgerEntry, error) {
	release, err := r.store.LockFund(ctx, params.FundID)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	defer release()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	fund, ok := r.store.funds[params.FundID]
	if !ok {
		return domain.LedgerEntry{}, domain.ErrRecordNotFound
	}
	if fund.Status != domain.FundStatusActive {
		return domain.LedgerEntry{}, domain.ErrFundInactive
	}

	balanceAfter := fund.Balance.Add(params.Delta)
	if balanceAfter.IsNegative() {
		return domain.LedgerEntry{}, domain.ErrInsufficientFunds
	}

	fund.Balance = balanceAfter
	fund.UpdatedAt = now()
	r.store.funds[params.FundID] = fund

	entry := domain.LedgerEntry{
		ID:           uuid.NewString(),
		FundID:       params.FundID,
		Delta:        params.Delta,
		BalanceAfter: balanceAfter,
		SourceType:   params.SourceType,
		SourceID:     params.SourceID,
		CreatedAt:    now(),
	}
	r.store.ledgerEntries[entry.ID] = entry

	return entry, nil
}
