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

type PaymentRepository struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func NewPaymentRepository(db *sql.DB, lockTimeout time.Duration) *PaymentRepository {
	return &PaymentRepository{db: db, lockTimeout: lockTimeout}
}

const paymentColumns = `
id,
requisition_id,
fund_id,
reference,
amount,
status,
otp_required,
otp_verified_at,
otp_verified_by,
retry_count,
last_error,
gateway_reference,
created_at,
updated_at,
processed_at`

func (r *PaymentRepository) Create(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	logger.Info("payment repository create", logger.Fields{
		"requisitionId": payment.RequisitionID,
		"fundId":        payment.FundID,
		"reference":     payment.Reference,
		"status":        payment.Status,
	})

	const query = `
INSERT INTO payments (
	requisition_id,
	fund_id,
	reference,
	amount,
	status,
	otp_required
) VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, updated_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		payment.RequisitionID,
		payment.FundID,
		payment.Reference,
		payment.Amount.StringFixed(2),
		payment.Status,
		payment.OtpRequired,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt); err != nil {
		logger.Error("payment repository create failed", err, logger.Fields{
			"requisitionId": payment.RequisitionID,
		})
		return domain.Payment{}, fmt.Errorf("create payment: %w", err)
	}

	return payment, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(r.db.QueryRowContext(ctx, query, id))
}

func (r *PaymentRepository) GetOpenByRequisitionID(ctx context.Context, requisitionID string) (domain.Payment, error) {
	query := `
SELECT ` + paymentColumns + `
FROM payments
WHERE requisition_id = $1
  AND status NOT IN ('FAILED', 'CANCELLED')
ORDER BY created_at DESC
LIMIT 1`
	return r.scanPayment(r.db.QueryRowContext(ctx, query, requisitionID))
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	const query = `
UPDATE payments
SET status = $2::varchar,
    updated_at = NOW(),
    processed_at = CASE
        WHEN $2::varchar IN ('SUCCESS', 'FAILED', 'CANCELLED') THEN NOW()
        ELSE processed_at
    END
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *PaymentRepository) MarkOtpVerified(ctx context.Context, id string, verifiedBy string, verifiedAt time.Time) error {
	const query = `
UPDATE payments
SET status = 'OTP_VERIFIED',
    otp_verified_at = $2,
    otp_verified_by = $3,
    updated_at = NOW()
WHERE id = $1
  AND status = 'OTP_REQUESTED'`

	result, err := r.db.ExecContext(ctx, query, id, verifiedAt, verifiedBy)
	if err != nil {
		return fmt.Errorf("mark payment otp verified: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark payment otp verified rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, id string, lastError string) error {
	const query = `
UPDATE payments
SET status = 'FAILED',
    last_error = $2,
    retry_count = retry_count + 1,
    updated_at = NOW(),
    processed_at = NOW()
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, lastError)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark payment failed rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *PaymentRepository) MarkRetry(ctx context.Context, id string) error {
	const query = `
UPDATE payments
SET status = 'PENDING',
    otp_verified_at = NULL,
    otp_verified_by = NULL,
    updated_at = NOW()
WHERE id = $1
  AND status = 'FAILED'`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark payment retry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark payment retry rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

// ExecutePosting runs the whole execution unit in one transaction: fund
// row lock, balance re-check, debit, ledger entry, execution record and
// the SUCCESS transition. Any failure rolls the whole unit back.
func (r *PaymentRepository) ExecutePosting(ctx context.Context, params repo_interfaces.ExecutePostingParams) (domain.LedgerEntry, domain.PaymentExecution, error) {
	logger.Info("payment repository execute posting", logger.Fields{
		"paymentId":  params.PaymentID,
		"fundId":     params.FundID,
		"amount":     params.Amount.StringFixed(2),
		"executorId": params.ExecutorID,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("payment repository begin tx failed", err, nil)
		return domain.LedgerEntry{}, domain.PaymentExecution{}, fmt.Errorf("begin execution transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	balanceAfter, err := lockAndMoveBalance(ctx, tx, params.FundID, params.Amount.Neg(), r.lockTimeout)
	if err != nil {
		return domain.LedgerEntry{}, domain.PaymentExecution{}, err
	}

	entry, err := insertLedgerEntry(ctx, tx, domain.LedgerEntry{
		FundID:       params.FundID,
		Delta:        params.Amount.Neg(),
		BalanceAfter: balanceAfter,
		SourceType:   domain.LedgerSourcePayment,
		SourceID:     params.PaymentID,
	})
	if err != nil {
		return domain.LedgerEntry{}, domain.PaymentExecution{}, err
	}

	execution := domain.PaymentExecution{
		PaymentID:  params.PaymentID,
		FundID:     params.FundID,
		Amount:     params.Amount,
		ExecutorID: params.ExecutorID,
		Outcome:    domain.ExecutionOutcomeSuccess,
		ClientIP:   params.ClientIP,
		DeviceInfo: params.DeviceInfo,
	}
	execution, err = insertPaymentExecution(ctx, tx, execution)
	if err != nil {
		return domain.LedgerEntry{}, domain.PaymentExecution{}, err
	}

	const statusQuery = `
UPDATE payments
SET status = 'SUCCESS',
    updated_at = NOW(),
    processed_at = NOW()
WHERE id = $1
  AND status = 'OTP_VERIFIED'`
	if _, err = execRequiredRows(ctx, tx, statusQuery, params.PaymentID); err != nil {
		err = domain.ErrInvalidState
		return domain.LedgerEntry{}, domain.PaymentExecution{}, err
	}

	if err = tx.Commit(); err != nil {
		logger.Error("payment repository commit tx failed", err, nil)
		return domain.LedgerEntry{}, domain.PaymentExecution{}, fmt.Errorf("commit execution transaction: %w", err)
	}

	logger.Info("payment repository execute posting success", logger.Fields{
		"paymentId":     params.PaymentID,
		"ledgerEntryId": entry.ID,
		"balanceAfter":  entry.BalanceAfter.StringFixed(2),
	})
	return entry, execution, nil
}

func insertPaymentExecution(ctx context.Context, tx *sql.Tx, execution domain.PaymentExecution) (domain.PaymentExecution, error) {
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

	if err := tx.QueryRowContext(
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
		return domain.PaymentExecution{}, fmt.Errorf("insert payment execution: %w", err)
	}

	return execution, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PaymentRepository) scanPayment(row rowScanner) (domain.Payment, error) {
	var (
		payment          domain.Payment
		amount           string
		otpVerifiedAt    sql.NullTime
		otpVerifiedBy    sql.NullString
		lastError        sql.NullString
		gatewayReference sql.NullString
		processedAt      sql.NullTime
	)

	if err := row.Scan(
		&payment.ID,
		&payment.RequisitionID,
		&payment.FundID,
		&payment.Reference,
		&amount,
		&payment.Status,
		&payment.OtpRequired,
		&otpVerifiedAt,
		&otpVerifiedBy,
		&payment.RetryCount,
		&lastError,
		&gatewayReference,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&processedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Payment{}, domain.ErrRecordNotFound
		}
		return domain.Payment{}, fmt.Errorf("scan payment: %w", err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("parse payment amount: %w", err)
	}
	payment.Amount = parsed

	if otpVerifiedAt.Valid {
		value := otpVerifiedAt.Time
		payment.OtpVerifiedAt = &value
	}
	if otpVerifiedBy.Valid {
		value := otpVerifiedBy.String
		payment.OtpVerifiedBy = &value
	}
	if lastError.Valid {
		value := lastError.String
		payment.LastError = &value
	}
	if gatewayReference.Valid {
		value := gatewayReference.String
		payment.GatewayReference = &value
	}
	if processedAt.Valid {
		value := processedAt.Time
		payment.ProcessedAt = &value
	}

	return payment, nil
}
