package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type RequisitionRepository struct {
	db *sql.DB
}

func NewRequisitionRepository(db *sql.DB) *RequisitionRepository {
	return &RequisitionRepository{db: db}
}

func (r *RequisitionRepository) Create(ctx context.Context, requisition domain.Requisition) (domain.Requisition, error) {
	const query = `
INSERT INTO requisitions (
	scope_id,
	fund_id,
	requested_by,
	amount,
	purpose,
	fully_approved
) VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, updated_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		requisition.ScopeID,
		requisition.FundID,
		requisition.RequestedBy,
		requisition.Amount.StringFixed(2),
		requisition.Purpose,
		requisition.FullyApproved,
	).Scan(&requisition.ID, &requisition.CreatedAt, &requisition.UpdatedAt); err != nil {
		return domain.Requisition{}, fmt.Errorf("create requisition: %w", err)
	}

	return requisition, nil
}

func (r *RequisitionRepository) GetByID(ctx context.Context, id string) (domain.Requisition, error) {
	const query = `
SELECT id, scope_id, fund_id, requested_by, amount, purpose, fully_approved, created_at, updated_at
FROM requisitions
WHERE id = $1`

	var (
		requisition domain.Requisition
		amount      string
	)

	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&requisition.ID,
		&requisition.ScopeID,
		&requisition.FundID,
		&requisition.RequestedBy,
		&amount,
		&requisition.Purpose,
		&requisition.FullyApproved,
		&requisition.CreatedAt,
		&requisition.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Requisition{}, domain.ErrRecordNotFound
		}
		return domain.Requisition{}, fmt.Errorf("get requisition: %w", err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Requisition{}, fmt.Errorf("parse requisition amount: %w", err)
	}
	requisition.Amount = parsed

	return requisition, nil
}

func (r *RequisitionRepository) SetFullyApproved(ctx context.Context, id string, approved bool) error {
	const query = `
UPDATE requisitions
SET fully_approved = $2,
    updated_at = NOW()
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, approved)
	if err != nil {
		return fmt.Errorf("set requisition fully approved: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set requisition fully approved rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}
