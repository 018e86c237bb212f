package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Storage layout is fixed-width so that lexical comparison of stored values
// matches chronological order; range queries and ORDER BY rely on this.
const (
	timestampStoreLayout = "2006-01-02 15:04:05.000000"
	timestampJSONLayout  = "2006-01-02T15:04:05.000000"
	DateLayout           = "2006-01-02"
)

var timestampParseLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// Timestamp is a naive wall-clock date-time. It carries no timezone: values
// are stored, compared, and serialized exactly as supplied, and the service
// never converts between zones.
type Timestamp struct {
	time.Time
}

// NewTimestamp strips the location from t and truncates to microseconds.
func NewTimestamp(t time.Time) Timestamp {
	t = t.Truncate(time.Microsecond)
	naive := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return Timestamp{naive}
}

// ParseTimestamp accepts ISO-style date-times with or without fractional
// seconds. A trailing zone designator, if present, is ignored rather than
// converted.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampParseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Timestamp{}, fmt.Errorf("parse timestamp %q", s)
}

// Date returns the calendar-day key, YYYY-MM-DD.
func (t Timestamp) Date() string {
	return t.Format(DateLayout)
}

func (t Timestamp) String() string {
	return t.Format(timestampJSONLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(timestampJSONLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) Value() (driver.Value, error) {
	return t.Format(timestampStoreLayout), nil
}

func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseTimestamp(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case []byte:
		return t.Scan(string(v))
	case time.Time:
		*t = NewTimestamp(v)
		return nil
	case nil:
		*t = Timestamp{}
		return nil
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}
