package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_DSN",
		"OTP_TTL_MINUTES",
		"OTP_CODE_LENGTH",
		"LOCK_TIMEOUT_SECONDS",
		"FUND_CRITICAL_FRACTION",
		"REPLENISH_TARGET_MULTIPLIER",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.OtpTTL != 5*time.Minute {
		t.Fatalf("expected otp ttl 5m, got %s", cfg.OtpTTL)
	}
	if cfg.OtpCodeLength != 6 {
		t.Fatalf("expected code length 6, got %d", cfg.OtpCodeLength)
	}
	if cfg.LockTimeout != 5*time.Second {
		t.Fatalf("expected lock timeout 5s, got %s", cfg.LockTimeout)
	}
	if cfg.CriticalFraction.String() != "0.5" {
		t.Fatalf("expected critical fraction 0.5, got %s", cfg.CriticalFraction)
	}
	if cfg.ReplenishMultiplier.String() != "2" {
		t.Fatalf("expected replenish multiplier 2, got %s", cfg.ReplenishMultiplier)
	}
	if !strings.Contains(cfg.DatabaseDSN, "dbname=treasury_payment_db") {
		t.Fatalf("expected default database in dsn, got %s", cfg.DatabaseDSN)
	}
	if !strings.Contains(cfg.DatabaseDSN, "sslmode=disable") {
		t.Fatalf("expected sslmode appended, got %s", cfg.DatabaseDSN)
	}
}

func TestLoadRejectsBadOtpCodeLength(t *testing.T) {
	clearEnv(t)

	for _, value := range []string{"3", "11", "abc", "-6"} {
		t.Setenv("OTP_CODE_LENGTH", value)
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for OTP_CODE_LENGTH=%q", value)
		}
	}
}

func TestLoadRejectsNonPositiveDecimals(t *testing.T) {
	clearEnv(t)

	t.Setenv("FUND_CRITICAL_FRACTION", "-0.5")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative critical fraction")
	}

	t.Setenv("FUND_CRITICAL_FRACTION", "0.5")
	t.Setenv("REPLENISH_TARGET_MULTIPLIER", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero replenish multiplier")
	}
}

func TestNormalizeConnectionString(t *testing.T) {
	got := normalizeConnectionString("Host=db;Port=5433;Database=treasury;Username=svc;Password=secret;Timeout=10")
	want := "host=db port=5433 dbname=treasury user=svc password=secret connect_timeout=10 sslmode=disable"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNormalizeConnectionStringKeepsExplicitSSLMode(t *testing.T) {
	got := normalizeConnectionString("Host=db;Database=treasury;SslMode=require")
	if !strings.Contains(got, "sslmode=require") || strings.Contains(got, "sslmode=disable") {
		t.Fatalf("expected explicit sslmode preserved, got %q", got)
	}
}
