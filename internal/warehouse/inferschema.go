package warehouse

import (
	"encoding/json"
)

// InferSchema guesses a minimal JSON-Schema document from a set of example
// documents, the Go rendition of original_source/fashion/warehouse.py's
// guessSchema (which used Python's genson library — no Go package in this
// corpus offers schema-from-examples inference, so this one corner is
// deliberately hand-rolled over encoding/json rather than grounded on a
// third-party library). Schema inference is an explicit Non-goal of the
// core (spec.md "Out of scope": "JSON-schema inference"); this helper exists
// for an external caller to use against the model store, not for the core
// build path to call.
func InferSchema(examples [][]byte) (json.RawMessage, error) {
	merged := map[string]any{"type": "object", "properties": map[string]any{}}
	props := merged["properties"].(map[string]any)

	for _, raw := range examples {
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		for k, v := range doc {
			if _, ok := props[k]; ok {
				continue
			}
			props[k] = map[string]any{"type": jsonType(v)}
		}
	}
	return json.Marshal(merged)
}

func jsonType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	default:
		return "string"
	}
}
