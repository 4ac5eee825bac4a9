package logging

import (
	"encoding/hex"
	"log/slog"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

// redactionAllowlist names the log keys that never carry account data.
var redactionAllowlist = map[string]struct{}{
	"service":      {},
	"env":          {},
	"message":      {},
	"severity":     {},
	"timestamp":    {},
	"error":        {},
	"module":       {},
	"op":           {},
	"type":         {},
	"globalfarmid": {},
	"yieldfarmid":  {},
	"depositid":    {},
	"pool":         {},
	"currency":     {},
	"block":        {},
}

// IsAllowlisted reports whether the provided key is exempt from automatic redaction.
func IsAllowlisted(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := redactionAllowlist[normalized]
	return ok
}

// MaskValue returns the canonical redacted placeholder for non-empty values. Empty values
// are returned unchanged to avoid introducing noise in logs.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskAccount renders an account for logs, keeping only the first and last
// two bytes visible.
func MaskAccount(key string, account [20]byte) slog.Attr {
	encoded := hex.EncodeToString(account[:])
	return slog.String(key, "0x"+encoded[:4]+"…"+encoded[len(encoded)-4:])
}

// MaskField returns a slog.Attr that redacts the supplied value unless the key is
// explicitly allowlisted. The original key casing is preserved for readability.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, MaskValue(value))
}
