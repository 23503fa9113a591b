package logger

import (
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"
)

type Fields map[string]any

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	return l
}

var sensitiveKeys = map[string]struct{}{
	"otp":      {},
	"otpcode":  {},
	"code":     {},
	"codehash": {},
}

func Info(message string, fields Fields) {
	log.WithFields(logrus.Fields(sanitizeFields(fields))).Info(message)
}

func Warn(message string, fields Fields) {
	log.WithFields(logrus.Fields(sanitizeFields(fields))).Warn(message)
}

func Error(message string, err error, fields Fields) {
	base := Fields{}
	for k, v := range fields {
		base[k] = v
	}
	if err != nil {
		base["error"] = err.Error()
	}

	log.WithFields(logrus.Fields(sanitizeFields(base))).Error(message)
}

// SanitizePayload masks OTP material anywhere in a payload before it is
// logged. Codes must never reach the log stream in plaintext.
func SanitizePayload(payload any) any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<unavailable>"
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "<unavailable>"
	}

	return sanitizeValue(data)
}

func sanitizeFields(fields Fields) Fields {
	if fields == nil {
		return Fields{}
	}

	out := make(Fields, len(fields))
	for key, value := range fields {
		if isSensitiveKey(key) {
			out[key] = "******"
			continue
		}
		out[key] = sanitizeValue(normalizeValue(value))
	}
	return out
}

func normalizeValue(value any) any {
	switch value.(type) {
	case map[string]any, []any:
		return SanitizePayload(value)
	default:
		return value
	}
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			if isSensitiveKey(key) {
				out[key] = "******"
				continue
			}
			out[key] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", ""))
	normalized = strings.ReplaceAll(normalized, "_", "")
	_, ok := sensitiveKeys[normalized]
	return ok
}
