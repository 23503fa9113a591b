package domain

import "time"

// OtpCode stores only the bcrypt hash of an issued code. The plaintext
// leaves the process through the notifier and is never persisted or
// logged.
type OtpCode struct {
	ID         string
	PaymentID  string
	CodeHash   string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

func (c OtpCode) Consumed() bool {
	return c.ConsumedAt != nil
}

func (c OtpCode) Expired(at time.Time) bool {
	return at.After(c.ExpiresAt)
}
