package logger

import (
	"net/http"
	"strings"
)

// Keys matching any of these fragments are masked wherever log output or
// audit metadata passes through this package. Transaction, card, and
// insurance numbers tie a log line to a real patient payment.
var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"authorization",
	"transaction_no",
	"card_no",
	"insurance_no",
}

// MaskAuthorization masks a bearer token, keeping the scheme visible.
func MaskAuthorization(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if parts := strings.Fields(value); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return "Bearer " + maskTail(parts[1])
	}
	return maskTail(value)
}

// MaskCookie masks every cookie value, keeping the names readable.
func MaskCookie(value string) string {
	segments := strings.Split(value, ";")
	masked := segments[:0]
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if name, val, found := strings.Cut(segment, "="); found {
			segment = strings.TrimSpace(name) + "=" + maskTail(strings.TrimSpace(val))
		} else {
			segment = maskTail(segment)
		}
		masked = append(masked, segment)
	}
	return strings.Join(masked, "; ")
}

// MaskHeaders flattens headers into a loggable map, masking credentials.
func MaskHeaders(headers http.Header) map[string]string {
	masked := make(map[string]string, len(headers))
	for key, values := range headers {
		joined := strings.Join(values, ",")
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "authorization":
			masked[key] = MaskAuthorization(joined)
		case "cookie":
			masked[key] = MaskCookie(joined)
		default:
			masked[key] = joined
		}
	}
	return masked
}

// MaskJSON returns a deep copy of input with sensitive values masked. The
// input map is never mutated.
func MaskJSON(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		if isSensitiveKey(key) {
			out[key] = maskValue(value)
		} else {
			out[key] = maskNested(value)
		}
	}
	return out
}

func maskNested(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return MaskJSON(typed)
	case []any:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = maskNested(item)
		}
		return items
	default:
		return value
	}
}

func maskValue(value any) any {
	switch typed := value.(type) {
	case string:
		return maskTail(typed)
	case []byte:
		return maskTail(string(typed))
	default:
		return "****"
	}
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, fragment := range sensitiveKeys {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

// maskTail keeps at most the last four characters, enough to match a value
// against a receipt without reproducing it.
func maskTail(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****" + value
	}
	return "****" + value[len(value)-4:]
}
