package report

import (
	"fmt"
	"time"

	"github.com/dukerupert/punchcard/internal/model"
)

// Range is an inclusive date-time window.
type Range struct {
	Start model.Timestamp
	End   model.Timestamp
}

// DefaultRange returns the work week containing today: Saturday 00:00:00
// through the following Friday 23:59:59.999999.
func DefaultRange(today time.Time) Range {
	// time.Weekday counts Sunday=0; days since the most recent Saturday.
	daysSinceSaturday := (int(today.Weekday()) + 1) % 7

	start := time.Date(today.Year(), today.Month(), today.Day()-daysSinceSaturday, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999999000, time.UTC)

	return Range{Start: model.NewTimestamp(start), End: model.NewTimestamp(end)}
}

// ParseRange interprets explicit YYYY-MM-DD bounds as an inclusive window:
// the end date is expanded to its last second. When both bounds are omitted
// the default week around today is used; supplying only one is an error.
func ParseRange(startDate, endDate string, today time.Time) (Range, error) {
	if startDate == "" && endDate == "" {
		return DefaultRange(today), nil
	}

	start, err := time.Parse(model.DateLayout, startDate)
	if err != nil {
		return Range{}, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", startDate)
	}
	end, err := time.Parse(model.DateLayout, endDate)
	if err != nil {
		return Range{}, fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", endDate)
	}
	if end.Before(start) {
		return Range{}, fmt.Errorf("end_date %s precedes start_date %s", endDate, startDate)
	}

	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
	return Range{Start: model.NewTimestamp(start), End: model.NewTimestamp(end)}, nil
}
