package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/api-sage/treasury-payment-engine/internal/logger"
	"github.com/shopspring/decimal"
)

type FundRepository struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func NewFundRepository(db *sql.DB, lockTimeout time.Duration) *FundRepository {
	return &FundRepository{db: db, lockTimeout: lockTimeout}
}

func (r *FundRepository) Create(ctx context.Context, fund domain.Fund) (domain.Fund, error) {
	const query = `
INSERT INTO funds (
	scope_id,
	name,
	currency,
	balance,
	reorder_level,
	target_level,
	status
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, updated_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		fund.ScopeID,
		fund.Name,
		fund.Currency,
		fund.Balance.StringFixed(2),
		fund.ReorderLevel.StringFixed(2),
		fund.TargetLevel.StringFixed(2),
		fund.Status,
	).Scan(&fund.ID, &fund.CreatedAt, &fund.UpdatedAt); err != nil {
		return domain.Fund{}, fmt.Errorf("create fund: %w", err)
	}

	return fund, nil
}

func (r *FundRepository) GetByID(ctx context.Context, id string) (domain.Fund, error) {
	const query = `
SELECT id, scope_id, name, currency, balance, reorder_level, target_level, status, created_at, updated_at
FROM funds
WHERE id = $1`

	var (
		fund         domain.Fund
		balance      string
		reorderLevel string
		targetLevel  string
	)

	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&fund.ID,
		&fund.ScopeID,
		&fund.Name,
		&fund.Currency,
		&balance,
		&reorderLevel,
		&targetLevel,
		&fund.Status,
		&fund.CreatedAt,
		&fund.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Fund{}, domain.ErrRecordNotFound
		}
		return domain.Fund{}, fmt.Errorf("get fund: %w", err)
	}

	var err error
	if fund.Balance, err = decimal.NewFromString(balance); err != nil {
		return domain.Fund{}, fmt.Errorf("parse fund balance: %w", err)
	}
	if fund.ReorderLevel, err = decimal.NewFromString(reorderLevel); err != nil {
		return domain.Fund{}, fmt.Errorf("parse fund reorder level: %w", err)
	}
	if fund.TargetLevel, err = decimal.NewFromString(targetLevel); err != nil {
		return domain.Fund{}, fmt.Errorf("parse fund target level: %w", err)
	}

	return fund, nil
}

func (r *FundRepository) Deactivate(ctx context.Context, id string) error {
	const query = `
UPDATE funds
SET status = 'INACTIVE',
    updated_at = NOW()
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate fund: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate fund rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Post applies one signed balance movement under the fund's row lock
// and appends the matching ledger entry in the same transaction.
func (r *FundRepository) Post(ctx context.Context, params repo_interfaces.PostParams) (domain.LedgerEntry, error) {
	logger.Info("fund repository post", logger.Fields{
		"fundId":     params.FundID,
		"delta":      params.Delta.StringFixed(2),
		"sourceType": params.SourceType,
		"sourceId":   params.SourceID,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("fund repository begin tx failed", err, nil)
		return domain.LedgerEntry{}, fmt.Errorf("begin fund posting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	balanceAfter, err := lockAndMoveBalance(ctx, tx, params.FundID, params.Delta, r.lockTimeout)
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	entry, err := insertLedgerEntry(ctx, tx, domain.LedgerEntry{
		FundID:       params.FundID,
		Delta:        params.Delta,
		BalanceAfter: balanceAfter,
		SourceType:   params.SourceType,
		SourceID:     params.SourceID,
	})
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	if err = tx.Commit(); err != nil {
		logger.Error("fund repository commit tx failed", err, nil)
		return domain.LedgerEntry{}, fmt.Errorf("commit fund posting transaction: %w", err)
	}

	logger.Info("fund repository post success", logger.Fields{
		"fundId":        params.FundID,
		"ledgerEntryId": entry.ID,
		"balanceAfter":  entry.BalanceAfter.StringFixed(2),
	})
	return entry, nil
}

// lockAndMoveBalance takes the fund row lock with a bounded wait,
// re-checks the balance under the lock and applies the delta. The
// balance check must happen after the lock is held; two concurrent
// postings would otherwise both read a stale balance.
func lockAndMoveBalance(ctx context.Context, tx *sql.Tx, fundID string, delta decimal.Decimal, lockTimeout time.Duration) (decimal.Decimal, error) {
	lockTimeoutStmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())
	if _, err := tx.ExecContext(ctx, lockTimeoutStmt); err != nil {
		return decimal.Zero, fmt.Errorf("set lock timeout: %w", err)
	}

	const lockQuery = `
SELECT balance, status
FROM funds
WHERE id = $1
FOR UPDATE`

	var (
		balanceRaw string
		status     domain.FundStatus
	)
	if err := tx.QueryRowContext(ctx, lockQuery, fundID).Scan(&balanceRaw, &status); err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, domain.ErrRecordNotFound
		}
		if isLockNotAvailable(err) {
			return decimal.Zero, domain.ErrLockTimeout
		}
		return decimal.Zero, fmt.Errorf("lock fund row: %w", err)
	}

	if status != domain.FundStatusActive {
		return decimal.Zero, domain.ErrFundInactive
	}

	balance, err := decimal.NewFromString(balanceRaw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse locked fund balance: %w", err)
	}

	balanceAfter := balance.Add(delta)
	if balanceAfter.IsNegative() {
		return decimal.Zero, domain.ErrInsufficientFunds
	}

	const updateQuery = `
UPDATE funds
SET balance = $2::numeric,
    updated_at = NOW()
WHERE id = $1`
	if _, err := execRequiredRows(ctx, tx, updateQuery, fundID, balanceAfter.StringFixed(2)); err != nil {
		return decimal.Zero, err
	}

	return balanceAfter, nil
}

func insertLedgerEntry(ctx context.Context, tx *sql.Tx, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	const query = `
INSERT INTO ledger_entries (
	fund_id,
	delta,
	balance_after,
	source_type,
	source_id,
	reconciled
) VALUES ($1, $2, $3, $4, $5, FALSE)
RETURNING id, created_at`

	if err := tx.QueryRowContext(
		ctx,
		query,
		entry.FundID,
		entry.Delta.StringFixed(2),
		entry.BalanceAfter.StringFixed(2),
		entry.SourceType,
		entry.SourceID,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}

	return entry, nil
}
