package logger

import (
	"testing"
)

func TestSanitizePayloadMasksOtpMaterial(t *testing.T) {
	payload := map[string]any{
		"paymentId": "pay-1",
		"otp":       "483920",
		"detail": map[string]any{
			"codeHash": "$2a$10$abcdef",
			"fundId":   "fund-1",
		},
	}

	sanitized, ok := SanitizePayload(payload).(map[string]any)
	if !ok {
		t.Fatalf("expected map payload, got %T", SanitizePayload(payload))
	}

	if sanitized["otp"] != "******" {
		t.Fatalf("expected otp masked, got %v", sanitized["otp"])
	}
	if sanitized["paymentId"] != "pay-1" {
		t.Fatalf("expected paymentId untouched, got %v", sanitized["paymentId"])
	}

	detail, ok := sanitized["detail"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map, got %T", sanitized["detail"])
	}
	if detail["codeHash"] != "******" {
		t.Fatalf("expected nested codeHash masked, got %v", detail["codeHash"])
	}
	if detail["fundId"] != "fund-1" {
		t.Fatalf("expected nested fundId untouched, got %v", detail["fundId"])
	}
}

func TestSanitizePayloadMasksInsideSlices(t *testing.T) {
	payload := []any{
		map[string]any{"code": "112233", "channel": "sms"},
	}

	sanitized, ok := SanitizePayload(payload).([]any)
	if !ok || len(sanitized) != 1 {
		t.Fatalf("expected one-element slice, got %v", sanitized)
	}

	entry := sanitized[0].(map[string]any)
	if entry["code"] != "******" {
		t.Fatalf("expected code masked, got %v", entry["code"])
	}
	if entry["channel"] != "sms" {
		t.Fatalf("expected channel untouched, got %v", entry["channel"])
	}
}

func TestSanitizePayloadUnserializable(t *testing.T) {
	if got := SanitizePayload(make(chan int)); got != "<unavailable>" {
		t.Fatalf("expected <unavailable>, got %v", got)
	}
}

func TestIsSensitiveKeyNormalization(t *testing.T) {
	for _, key := range []string{"otp", "OTP", "otp_code", "Otp-Code", "code", "CodeHash", " code_hash "} {
		if !isSensitiveKey(key) {
			t.Fatalf("expected %q to be sensitive", key)
		}
	}
	for _, key := range []string{"paymentId", "amount", "encoded", "barcode"} {
		if isSensitiveKey(key) {
			t.Fatalf("expected %q to be non-sensitive", key)
		}
	}
}
