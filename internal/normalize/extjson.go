package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/khoahotran/personal-site/pkg/coerce"
)

// Unwrap recursively replaces extended-JSON wrappers with plain values:
// $oid becomes a hex string, the $number* family becomes a number, $date becomes
// a time.Time and $numberBoolean a bool. Anything else is returned as is.
func Unwrap(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 {
			for k, inner := range t {
				if strings.HasPrefix(k, "$") {
					if out, ok := unwrapWrapper(k, inner); ok {
						return out
					}
				}
			}
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Unwrap(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Unwrap(val)
		}
		return out
	}
	return v
}

func unwrapWrapper(key string, inner any) (any, bool) {
	switch key {
	case "$numberBoolean":
		return parseBool(inner)
	case "$oid", "$numberInt", "$numberLong", "$numberDouble", "$numberDecimal", "$date":
	default:
		return nil, false
	}
	if out, ok := viaExtJSON(key, inner); ok {
		return out, true
	}
	return fallback(key, inner)
}

// viaExtJSON hands the wrapper to the driver's extended-JSON reader inside a
// one-field document and converts the resulting BSON value.
func viaExtJSON(key string, inner any) (any, bool) {
	doc, err := json.Marshal(map[string]any{"v": map[string]any{key: inner}})
	if err != nil {
		return nil, false
	}
	var m bson.M
	if err := bson.UnmarshalExtJSON(doc, false, &m); err != nil {
		return nil, false
	}
	switch val := m["v"].(type) {
	case bson.ObjectID:
		return val.Hex(), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case float64:
		return val, true
	case bson.Decimal128:
		return json.Number(val.String()), true
	case bson.DateTime:
		return val.Time().UTC(), true
	}
	return nil, false
}

// fallback covers legacy shapes the strict reader refuses, such as {"$date": 1675245600000}.
func fallback(key string, inner any) (any, bool) {
	switch key {
	case "$oid":
		s, ok := inner.(string)
		return s, ok
	case "$date":
		switch d := inner.(type) {
		case json.Number:
			ms, err := d.Int64()
			if err != nil {
				return nil, false
			}
			return time.UnixMilli(ms).UTC(), true
		case string:
			if parsed, ok := coerce.ParseDate(d); ok {
				return parsed.UTC(), true
			}
		case map[string]any:
			if n, ok := Unwrap(d).(int64); ok {
				return time.UnixMilli(n).UTC(), true
			}
		}
		return nil, false
	default:
		switch n := inner.(type) {
		case json.Number:
			return n, true
		case string:
			if _, err := strconv.ParseFloat(n, 64); err == nil {
				return json.Number(n), true
			}
		}
	}
	return nil, false
}

func parseBool(inner any) (any, bool) {
	switch b := inner.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return nil, false
		}
		return parsed, true
	}
	return nil, false
}
