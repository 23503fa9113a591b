package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const ledgerColumns = `id, fund_id, delta, balance_after, source_type, source_id, reconciled, created_at`

func (r *LedgerRepository) GetByID(ctx context.Context, id string) (domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1`
	return scanLedgerEntry(r.db.QueryRowContext(ctx, query, id))
}

func (r *LedgerRepository) GetByPaymentSource(ctx context.Context, paymentID string) (domain.LedgerEntry, error) {
	query := `
SELECT ` + ledgerColumns + `
FROM ledger_entries
WHERE source_type = 'PAYMENT'
  AND source_id = $1
ORDER BY created_at DESC
LIMIT 1`
	return scanLedgerEntry(r.db.QueryRowContext(ctx, query, paymentID))
}

func (r *LedgerRepository) ListByFundID(ctx context.Context, fundID string) ([]domain.LedgerEntry, error) {
	query := `
SELECT ` + ledgerColumns + `
FROM ledger_entries
WHERE fund_id = $1
ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, fundID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0)
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}

func (r *LedgerRepository) MarkReconciled(ctx context.Context, id string) (bool, error) {
	const query = `
UPDATE ledger_entries
SET reconciled = TRUE
WHERE id = $1
  AND reconciled = FALSE`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark ledger entry reconciled: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark ledger entry reconciled rows affected: %w", err)
	}

	return rows > 0, nil
}

func scanLedgerEntry(row rowScanner) (domain.LedgerEntry, error) {
	var (
		entry        domain.LedgerEntry
		delta        string
		balanceAfter string
	)

	if err := row.Scan(
		&entry.ID,
		&entry.FundID,
		&delta,
		&balanceAfter,
		&entry.SourceType,
		&entry.SourceID,
		&entry.Reconciled,
		&entry.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.LedgerEntry{}, domain.ErrRecordNotFound
		}
		return domain.LedgerEntry{}, fmt.Errorf("scan ledger entry: %w", err)
	}

	var err error
	if entry.Delta, err = decimal.NewFromString(delta); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("parse ledger delta: %w", err)
	}
	if entry.BalanceAfter, err = decimal.NewFromString(balanceAfter); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("parse ledger balance after: %w", err)
	}

	return entry, nil
}
