package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type ReplenishmentRepository struct {
	db *sql.DB
}

func NewReplenishmentRepository(db *sql.DB) *ReplenishmentRepository {
	return &ReplenishmentRepository{db: db}
}

const replenishmentColumns = `id, fund_id, requested_amount, auto_triggered, status, created_at, updated_at`

func (r *ReplenishmentRepository) Create(ctx context.Context, request domain.ReplenishmentRequest) (domain.ReplenishmentRequest, error) {
	const query = `
INSERT INTO replenishment_requests (
	fund_id,
	requested_amount,
	auto_triggered,
	status
) VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		request.FundID,
		request.RequestedAmount.StringFixed(2),
		request.AutoTriggered,
		request.Status,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt); err != nil {
		// The partial unique index on (fund_id) WHERE status = 'PENDING'
		// makes a concurrent duplicate trigger a no-op for the loser.
		if isUniqueViolation(err) {
			return r.GetPendingByFundID(ctx, request.FundID)
		}
		return domain.ReplenishmentRequest{}, fmt.Errorf("create replenishment request: %w", err)
	}

	return request, nil
}

func (r *ReplenishmentRepository) GetByID(ctx context.Context, id string) (domain.ReplenishmentRequest, error) {
	query := `SELECT ` + replenishmentColumns + ` FROM replenishment_requests WHERE id = $1`
	return scanReplenishment(r.db.QueryRowContext(ctx, query, id))
}

func (r *ReplenishmentRepository) GetPendingByFundID(ctx context.Context, fundID string) (domain.ReplenishmentRequest, error) {
	query := `
SELECT ` + replenishmentColumns + `
FROM replenishment_requests
WHERE fund_id = $1
  AND status = 'PENDING'
LIMIT 1`
	return scanReplenishment(r.db.QueryRowContext(ctx, query, fundID))
}

func (r *ReplenishmentRepository) Transition(ctx context.Context, id string, from domain.ReplenishmentStatus, to domain.ReplenishmentStatus) error {
	const query = `
UPDATE replenishment_requests
SET status = $3::varchar,
    updated_at = NOW()
WHERE id = $1
  AND status = $2::varchar`

	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("transition replenishment request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition replenishment request rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func scanReplenishment(row rowScanner) (domain.ReplenishmentRequest, error) {
	var (
		request domain.ReplenishmentRequest
		amount  string
	)

	if err := row.Scan(
		&request.ID,
		&request.FundID,
		&amount,
		&request.AutoTriggered,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.ReplenishmentRequest{}, domain.ErrRecordNotFound
		}
		return domain.ReplenishmentRequest{}, fmt.Errorf("scan replenishment request: %w", err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.ReplenishmentRequest{}, fmt.Errorf("parse replenishment amount: %w", err)
	}
	request.RequestedAmount = parsed

	return request, nil
}
