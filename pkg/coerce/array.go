// Package coerce converts loosely formatted form and API values into canonical shapes.
//
// Array fields are edited as free text: the admin may paste a JSON array or type a
// comma / newline separated list. ToArray accepts both and FormatArray produces the
// JSON form used to populate edit forms. Nothing here returns an error; input that
// cannot be parsed one way falls back to the other.
package coerce

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var listSeparator = regexp.MustCompile(`\r?\n|,`)

// ToArray converts input into a list of strings.
func ToArray(input any) []string {
	switch v := input.(type) {
	case nil:
		return []string{}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return parseText(v)
	case *string:
		if v == nil {
			return []string{}
		}
		return parseText(*v)
	}
	return []string{}
}

func parseText(input string) []string {
	s := strings.TrimSpace(input)
	if s == "" {
		return []string{}
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var parsed []any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			return ToArray(parsed)
		}
	}
	return SplitList(s)
}

// SplitList splits on newlines or commas, trims each segment and drops empties.
func SplitList(s string) []string {
	parts := listSeparator.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FormatArray renders value for a textarea: arrays as indented JSON, strings unchanged.
func FormatArray(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) == 0 {
			return ""
		}
	case []any:
		if len(v) == 0 {
			return ""
		}
	case List:
		return FormatArray([]string(v))
	}
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(out)
}

// JoinList renders a list the way the quick-edit inputs show it: "a, b, c".
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}
