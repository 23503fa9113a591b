package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
)

type OtpRepository struct {
	db *sql.DB
}

func NewOtpRepository(db *sql.DB) *OtpRepository {
	return &OtpRepository{db: db}
}

func (r *OtpRepository) Create(ctx context.Context, code domain.OtpCode) (domain.OtpCode, error) {
	const query = `
INSERT INTO otp_codes (
	payment_id,
	code_hash,
	expires_at
) VALUES ($1, $2, $3)
RETURNING id, created_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		code.PaymentID,
		code.CodeHash,
		code.ExpiresAt,
	).Scan(&code.ID, &code.CreatedAt); err != nil {
		return domain.OtpCode{}, fmt.Errorf("create otp code: %w", err)
	}

	return code, nil
}

func (r *OtpRepository) GetLatestByPaymentID(ctx context.Context, paymentID string) (domain.OtpCode, error) {
	const query = `
SELECT id, payment_id, code_hash, expires_at, consumed_at, created_at
FROM otp_codes
WHERE payment_id = $1
ORDER BY created_at DESC
LIMIT 1`

	var (
		code       domain.OtpCode
		consumedAt sql.NullTime
	)

	if err := r.db.QueryRowContext(ctx, query, paymentID).Scan(
		&code.ID,
		&code.PaymentID,
		&code.CodeHash,
		&code.ExpiresAt,
		&consumedAt,
		&code.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.OtpCode{}, domain.ErrRecordNotFound
		}
		return domain.OtpCode{}, fmt.Errorf("get latest otp code: %w", err)
	}

	if consumedAt.Valid {
		value := consumedAt.Time
		code.ConsumedAt = &value
	}

	return code, nil
}

func (r *OtpRepository) InvalidateActive(ctx context.Context, paymentID string) error {
	const query = `
UPDATE otp_codes
SET consumed_at = NOW()
WHERE payment_id = $1
  AND consumed_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, paymentID); err != nil {
		return fmt.Errorf("invalidate active otp codes: %w", err)
	}
	return nil
}

// Consume is the single-use compare-and-set. Zero rows means another
// verification already spent the code.
func (r *OtpRepository) Consume(ctx context.Context, codeID string) error {
	const query = `
UPDATE otp_codes
SET consumed_at = NOW()
WHERE id = $1
  AND consumed_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, codeID)
	if err != nil {
		return fmt.Errorf("consume otp code: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume otp code rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrOtpAlreadyUsed
	}
	return nil
}
