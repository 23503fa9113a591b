package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type PaymentExecutionRepository struct {
	db *sql.DB
}

func NewPaymentExecutionRepository(db *sql.DB) *PaymentExecutionRepository {
	return &PaymentExecutionRepository{db: db}
}

func (r *PaymentExecutionRepository) Create(ctx context.Context, execution domain.PaymentExecution) (domain.PaymentExecution, error) {
	const query = `
INSERT INTO payment_executions (
	payment_id,
	fund_id,
	amount,
	executor_id,
	outcome,
	failure_reason,
	client_ip,
	device_info
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		execution.PaymentID,
		execution.FundID,
		execution.Amount.StringFixed(2),
		execution.ExecutorID,
		execution.Outcome,
		execution.FailureReason,
		execution.ClientIP,
		execution.DeviceInfo,
	).Scan(&execution.ID, &execution.CreatedAt); err != nil {
		return domain.PaymentExecution{}, fmt.Errorf("create payment execution: %w", err)
	}

	return execution, nil
}

func (r *PaymentExecutionRepository) ListByPaymentID(ctx context.Context, paymentID string) ([]domain.PaymentExecution, error) {
	const query = `
SELECT id, payment_id, fund_id, amount, executor_id, outcome, failure_reason, client_ip, device_info, created_at
FROM payment_executions
WHERE payment_id = $1
ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list payment executions: %w", err)
	}
	defer rows.Close()

	executions := make([]domain.PaymentExecution, 0)
	for rows.Next() {
		var (
			execution     domain.PaymentExecution
			amount        string
			failureReason sql.NullString
			clientIP      sql.NullString
			deviceInfo    sql.NullString
		)

		if err := rows.Scan(
			&execution.ID,
			&execution.PaymentID,
			&execution.FundID,
			&amount,
			&execution.ExecutorID,
			&execution.Outcome,
			&failureReason,
			&clientIP,
			&deviceInfo,
			&execution.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment execution: %w", err)
		}

		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse payment execution amount: %w", err)
		}
		execution.Amount = parsed

		if failureReason.Valid {
			value := failureReason.String
			execution.FailureReason = &value
		}
		if clientIP.Valid {
			value := clientIP.String
			execution.ClientIP = &value
		}
		if deviceInfo.Valid {
			value := deviceInfo.String
			execution.DeviceInfo = &value
		}

		executions = append(executions, execution)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment executions: %w", err)
	}

	return executions, nil
}
