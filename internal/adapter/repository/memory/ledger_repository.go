package memory

import (
	"context"
	"sort"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
)

type LedgerRepository struct {
	store *Store
}

func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

func (r *LedgerRepository) GetByID(_ context.Context, id string) (domain.LedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entry, ok := r.store.ledgerEntries[id]
	if !ok {
		return domain.LedgerEntry{}, domain.ErrRecordNotFound
	}
	return entry, nil
}

func (r *LedgerRepository) GetByPaymentSource(_ context.Context, paymentID string) (domain.LedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var (
		found  bool
		latest domain.LedgerEntry
	)
	for _, entry := range r.store.ledgerEntries {
		if entry.SourceType != domain.LedgerSourcePayment || entry.SourceID != paymentID {
			continue
		}
		if !found || entry.CreatedAt.After(latest.CreatedAt) {
			latest = entry
			found = true
		}
	}
	if !found {
		return domain.LedgerEntry{}, domain.ErrRecordNotFound
	}
	return latest, nil
}

func (r *LedgerRepository) ListByFundID(_ context.Context, fundID string) ([]domain.LedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entries := make([]domain.LedgerEntry, 0)
	for _, entry := range r.store.ledgerEntries {
		if entry.FundID == fundID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	return entries, nil
}

func (r *LedgerRepository) MarkReconciled(_ context.Context, id string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entry, ok := r.store.ledgerEntries[id]
	if !ok {
		return false, domain.ErrRecordNotFound
	}
	if entry.Reconciled {
		return false, nil
	}

	entry.Reconciled = true
	r.store.ledgerEntries[id] = entry
	return true, nil
}
