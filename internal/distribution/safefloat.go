package distribution

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SafeFloat coerces an arbitrary JSON-decoded value to float64, returning def
// when the value is missing or unparseable. All row parsing in this package
// funnels through here so the default-on-failure policy stays in one place.
func SafeFloat(value any, def float64) float64 {
	switch v := value.(type) {
	case nil:
		return def
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return def
		}
		return parsed
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return def
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return def
		}
		return parsed
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return def
	}
}
