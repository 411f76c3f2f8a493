package coerce

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const DateInputLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	DateInputLayout,
}

// Date is a nullable timestamp decoded from RFC3339, YYYY-MM-DD or epoch milliseconds.
// Values that match none of these decode to the zero Date instead of failing the record.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	return Date{Time: t}
}

// ParseDate parses s with the accepted layouts. ok is false for empty or unknown input.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Date{Time: time.UnixMilli(ms).UTC()}, true
	}
	return Date{}, false
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*d = Date{}
			return nil
		}
		*d, _ = ParseDate(s)
		return nil
	}
	if f, err := strconv.ParseFloat(string(data), 64); err == nil {
		*d = Date{Time: time.UnixMilli(int64(f)).UTC()}
		return nil
	}
	*d = Date{}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339))
}

// InputValue renders the date for an <input type="date"> style field.
func (d Date) InputValue() string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format(DateInputLayout)
}

// FormatMonthYear renders "January 2023".
func FormatMonthYear(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format("January 2006")
}

// FormatShort renders "Jan 2023", used by the qualification timeline.
func FormatShort(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format("Jan 2006")
}

// FormatRange renders an employment range such as "January 2023 - Present".
func FormatRange(start, end Date, current bool) string {
	parts := make([]string, 0, 2)
	if s := FormatMonthYear(start); s != "" {
		parts = append(parts, s)
	}
	if current {
		parts = append(parts, "Present")
	} else if e := FormatMonthYear(end); e != "" {
		parts = append(parts, e)
	}
	return strings.Join(parts, " - ")
}
