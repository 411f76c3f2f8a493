package coerce

import (
	"bytes"
	"encoding/json"
	"strings"
)

// List is a []string that decodes from the shapes the API has been seen to return:
// ["a","b"], a single-element array holding a JSON array string, a JSON array
// string, a bare string, or null.
type List []string

func (l *List) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = List{}
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = List{}
		return nil
	}
	*l = List(listFrom(raw))
	return nil
}

func listFrom(raw any) []string {
	switch v := raw.(type) {
	case []any:
		if len(v) == 1 {
			if s, ok := v[0].(string); ok && strings.HasPrefix(strings.TrimSpace(s), "[") {
				return embeddedArray(s)
			}
		}
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			return embeddedArray(v)
		}
		if v == "" {
			return []string{}
		}
		return []string{v}
	}
	return []string{}
}

func embeddedArray(s string) []string {
	var parsed []any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &parsed); err != nil {
		return []string{}
	}
	return listFrom(parsed)
}

func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}
