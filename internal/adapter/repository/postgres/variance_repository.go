package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type VarianceRepository struct {
	db *sql.DB
}

func NewVarianceRepository(db *sql.DB) *VarianceRepository {
	return &VarianceRepository{db: db}
}

const varianceColumns = `id, payment_id, ledger_entry_id, original_amount, adjusted_amount, reason, status, approver_id, resolved_at, created_at, updated_at`

func (r *VarianceRepository) Create(ctx context.Context, variance domain.VarianceAdjustment) (domain.VarianceAdjustment, error) {
	const query = `
INSERT INTO variance_adjustments (
	payment_id,
	ledger_entry_id,
	original_amount,
	adjusted_amount,
	reason,
	status
) VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, updated_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		variance.PaymentID,
		variance.LedgerEntryID,
		variance.OriginalAmount.StringFixed(2),
		variance.AdjustedAmount.StringFixed(2),
		variance.Reason,
		variance.Status,
	).Scan(&variance.ID, &variance.CreatedAt, &variance.UpdatedAt); err != nil {
		return domain.VarianceAdjustment{}, fmt.Errorf("create variance adjustment: %w", err)
	}

	return variance, nil
}

func (r *VarianceRepository) GetByID(ctx context.Context, id string) (domain.VarianceAdjustment, error) {
	query := `SELECT ` + varianceColumns + ` FROM variance_adjustments WHERE id = $1`
	return scanVariance(r.db.QueryRowContext(ctx, query, id))
}

func (r *VarianceRepository) GetPendingByLedgerEntryID(ctx context.Context, ledgerEntryID string) (domain.VarianceAdjustment, error) {
	query := `
SELECT ` + varianceColumns + `
FROM variance_adjustments
WHERE ledger_entry_id = $1
  AND status = 'PENDING'
ORDER BY created_at DESC
LIMIT 1`
	return scanVariance(r.db.QueryRowContext(ctx, query, ledgerEntryID))
}

func (r *VarianceRepository) Resolve(ctx context.Context, id string, status domain.VarianceStatus, approverID string) (domain.VarianceAdjustment, error) {
	const query = `
UPDATE variance_adjustments
SET status = $2::varchar,
    approver_id = $3,
    resolved_at = NOW(),
    updated_at = NOW()
WHERE id = $1
  AND status = 'PENDING'
RETURNING ` + varianceColumns

	variance, err := scanVariance(r.db.QueryRowContext(ctx, query, id, status, approverID))
	if err != nil {
		if err == domain.ErrRecordNotFound {
			// Distinguish a missing variance from one already resolved.
			if _, getErr := r.GetByID(ctx, id); getErr == nil {
				return domain.VarianceAdjustment{}, domain.ErrAlreadyResolved
			}
			return domain.VarianceAdjustment{}, domain.ErrRecordNotFound
		}
		return domain.VarianceAdjustment{}, err
	}

	return variance, nil
}

func (r *VarianceRepository) Reopen(ctx context.Context, id string, from domain.VarianceStatus) error {
	const query = `
UPDATE variance_adjustments
SET status = 'PENDING',
    approver_id = NULL,
    resolved_at = NULL,
    updated_at = NOW()
WHERE id = $1
  AND status = $2::varchar`

	result, err := r.db.ExecContext(ctx, query, id, from)
	if err != nil {
		return fmt.Errorf("reopen variance adjustment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reopen variance adjustment rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func scanVariance(row rowScanner) (domain.VarianceAdjustment, error) {
	var (
		variance       domain.VarianceAdjustment
		originalAmount string
		adjustedAmount string
		approverID     sql.NullString
		resolvedAt     sql.NullTime
	)

	if err := row.Scan(
		&variance.ID,
		&variance.PaymentID,
		&variance.LedgerEntryID,
		&originalAmount,
		&adjustedAmount,
		&variance.Reason,
		&variance.Status,
		&approverID,
		&resolvedAt,
		&variance.CreatedAt,
		&variance.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.VarianceAdjustment{}, domain.ErrRecordNotFound
		}
		return domain.VarianceAdjustment{}, fmt.Errorf("scan variance adjustment: %w", err)
	}

	var err error
	if variance.OriginalAmount, err = decimal.NewFromString(originalAmount); err != nil {
		return domain.VarianceAdjustment{}, fmt.Errorf("parse variance original amount: %w", err)
	}
	if variance.AdjustedAmount, err = decimal.NewFromString(adjustedAmount); err != nil {
		return domain.VarianceAdjustment{}, fmt.Errorf("parse variance adjusted amount: %w", err)
	}

	if approverID.Valid {
		value := approverID.String
		variance.ApproverID = &value
	}
	if resolvedAt.Valid {
		value := resolvedAt.Time
		variance.ResolvedAt = &value
	}

	return variance, nil
}
