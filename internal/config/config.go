package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=treasury_payment_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"

const (
	defaultOtpTTLMinutes       = 5
	defaultOtpCodeLength       = 6
	defaultLockTimeoutSeconds  = 5
	defaultCriticalFraction    = "0.5"
	defaultReplenishMultiplier = "2.0"
)

type Config struct {
	DatabaseDSN         string
	MigrationsDir       string
	OtpTTL              time.Duration
	OtpCodeLength       int
	LockTimeout         time.Duration
	CriticalFraction    decimal.Decimal
	ReplenishMultiplier decimal.Decimal
}

func Load() (Config, error) {
	_ = godotenv.Load()

	conn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if conn == "" {
		conn = defaultConnectionString
	}

	otpTTLMinutes, err := intFromEnv("OTP_TTL_MINUTES", defaultOtpTTLMinutes)
	if err != nil {
		return Config{}, err
	}

	otpCodeLength, err := intFromEnv("OTP_CODE_LENGTH", defaultOtpCodeLength)
	if err != nil {
		return Config{}, err
	}
	if otpCodeLength < 4 || otpCodeLength > 10 {
		return Config{}, fmt.Errorf("OTP_CODE_LENGTH must be between 4 and 10")
	}

	lockTimeoutSeconds, err := intFromEnv("LOCK_TIMEOUT_SECONDS", defaultLockTimeoutSeconds)
	if err != nil {
		return Config{}, err
	}

	criticalFraction, err := decimalFromEnv("FUND_CRITICAL_FRACTION", defaultCriticalFraction)
	if err != nil {
		return Config{}, err
	}

	replenishMultiplier, err := decimalFromEnv("REPLENISH_TARGET_MULTIPLIER", defaultReplenishMultiplier)
	if err != nil {
		return Config{}, err
	}

	return Config{
		DatabaseDSN:         normalizeConnectionString(conn),
		MigrationsDir:       filepath.Join("migrations"),
		OtpTTL:              time.Duration(otpTTLMinutes) * time.Minute,
		OtpCodeLength:       otpCodeLength,
		LockTimeout:         time.Duration(lockTimeoutSeconds) * time.Second,
		CriticalFraction:    criticalFraction,
		ReplenishMultiplier: replenishMultiplier,
	}, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero", key)
	}
	return value, nil
}

func decimalFromEnv(key string, fallback string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = fallback
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal: %w", key, err)
	}
	if value.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%s must be greater than zero", key)
	}
	return value, nil
}

func normalizeConnectionString(raw string) string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
