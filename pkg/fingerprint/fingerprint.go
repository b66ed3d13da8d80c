package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Generate creates a deterministic fingerprint for a business key.
// The fingerprint is a SHA256 hash of the canonicalized JSON, so two
// keys with the same field values always hash identically, and an
// absent value hashes differently from any present value.
func Generate(data map[string]any) string {
	canonical := canonicalize(data)
	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:])
}

// canonicalize creates a deterministic string representation of a value
// by sorting map keys and recursively processing nested structures.
func canonicalize(data any) string {
	switch v := data.(type) {
	case map[string]any:
		return canonicalizeMap(v)
	case []any:
		return canonicalizeArray(v)
	default:
		// For primitives (including nil), use JSON encoding
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func canonicalizeMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := "{"
	for i, k := range keys {
		if i > 0 {
			result += ","
		}
		keyJSON, _ := json.Marshal(k)
		result += string(keyJSON) + ":" + canonicalize(m[k])
	}
	result += "}"
	return result
}

func canonicalizeArray(arr []any) string {
	result := "["
	for i, v := range arr {
		if i > 0 {
			result += ","
		}
		result += canonicalize(v)
	}
	result += "]"
	return result
}

// StringValue renders an optional string for inclusion in a business key.
// A nil pointer maps to JSON null, which is distinct from the empty string.
func StringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// FloatValue renders an optional float for inclusion in a business key.
func FloatValue(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// IntValue renders an optional int for inclusion in a business key.
func IntValue(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
