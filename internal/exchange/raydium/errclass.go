// internal/exchange/raydium/errclass.go
package raydium

import (
	"encoding/json"
	"fmt"
)

// Classification is a structured reading of an on-chain execution error.
// Kind is one of the known categories; Detail preserves the raw error.
type Classification struct {
	Kind   string
	Detail string
}

func (c Classification) String() string {
	if c.Detail == "" {
		return c.Kind
	}
	return fmt.Sprintf("%s: %s", c.Kind, c.Detail)
}

// Known AMM custom error codes.
var customErrorKinds = map[int64]string{
	40: "insufficient_funds",
	30: "slippage",
}

const (
	kindUnknown = "unknown"
	kindCustom  = "custom_program_error"
)

// ClassifyInstructionError maps a raw transaction error, as returned by
// simulation or status polling, onto a classification. String payloads are
// tried as JSON first; anything unrecognized is carried verbatim so the
// original error is never lost.
func ClassifyInstructionError(raw interface{}) Classification {
	if raw == nil {
		return Classification{Kind: kindUnknown}
	}

	if s, ok := raw.(string); ok {
		var parsed interface{}
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return Classification{Kind: kindUnknown, Detail: s}
		}
		raw = parsed
	}

	if code, ok := extractCustomCode(raw); ok {
		if kind, known := customErrorKinds[code]; known {
			return Classification{Kind: kind, Detail: serialize(raw)}
		}
		return Classification{Kind: kindCustom, Detail: serialize(raw)}
	}

	return Classification{Kind: kindUnknown, Detail: serialize(raw)}
}

// extractCustomCode digs the custom program error code out of the
// {"InstructionError": [index, {"Custom": code}]} shape.
func extractCustomCode(raw interface{}) (int64, bool) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return 0, false
	}
	parts, ok := obj["InstructionError"].([]interface{})
	if !ok || len(parts) != 2 {
		return 0, false
	}
	inner, ok := parts[1].(map[string]interface{})
	if !ok {
		return 0, false
	}
	return asInt64(inner["Custom"])
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		parsed, err := n.Int64()
		return parsed, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func serialize(raw interface{}) string {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	return string(data)
}
