package tracing

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Span attributes matching any of these fragments are dropped before export.
// Transaction and card numbers identify real payments; they belong in the
// database, not the trace backend.
var sensitiveAttributeKeys = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"authorization",
	"transaction_no",
	"card_no",
	"insurance_no",
}

// SafeAttributes filters out attributes with sensitive keys.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	safe := attrs[:0]
	for _, attr := range attrs {
		if isSensitiveKey(string(attr.Key)) {
			continue
		}
		safe = append(safe, attr)
	}
	return safe
}

// SafeError reduces an error to its type so recorded span events cannot leak
// payment details embedded in error strings.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%T", err)
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, fragment := range sensitiveAttributeKeys {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}
