// Package report reconstructs work sessions from an ordered stream of clock
// events and aggregates worked hours per day and per week. It is a pure,
// single-pass computation: safe to call concurrently, no shared state.
package report

import (
	"math"
	"sort"

	"github.com/dukerupert/punchcard/internal/model"
)

// Session is one paired clock-in/clock-out span. ClockOut is nil while the
// session is still open, in which case HoursWorked is 0.
type Session struct {
	ClockIn     model.ClockEvent  `json:"clock_in"`
	ClockOut    *model.ClockEvent `json:"clock_out"`
	HoursWorked float64           `json:"hours_worked"`
}

// DailyReport holds the sessions whose clock-in fell on one calendar day.
type DailyReport struct {
	Date       string     `json:"date"`
	Sessions   []*Session `json:"sessions"`
	TotalHours float64    `json:"total_hours"`
}

// WeeklyReport is the full aggregation result for one user over a window.
type WeeklyReport struct {
	UserID       int64          `json:"user_id"`
	UserEmail    string         `json:"user_email"`
	UserName     string         `json:"user_name"`
	StartDate    string         `json:"start_date"`
	EndDate      string         `json:"end_date"`
	DailyReports []*DailyReport `json:"daily_reports"`
	TotalHours   float64        `json:"total_hours"`
}

// Result is the user-independent portion of an aggregation.
type Result struct {
	Days       []*DailyReport
	TotalHours float64
	Orphans    int
}

// Build pairs a chronologically ordered (ascending timestamp) event sequence
// into sessions and aggregates hours by calendar day.
//
// Pairing is last-in-first-out: a clock-out closes the most recently opened
// session that is still open. LIFO is what lets a session span midnight —
// the clock-in's day, not the clock-out's, receives the accrued hours — and
// it tolerates overlapping or nested clock-ins from data-entry corrections
// by always closing the newest one first. A clock-out with no open session
// to close is an orphan: it produces no session and no hours, and is not an
// error.
//
// Negative durations (a clock-out edited to precede its clock-in) are
// computed and surfaced as-is rather than rejected.
func Build(events []model.ClockEvent) Result {
	days := make(map[string]*DailyReport)
	var order []string

	var open []*Session
	orphans := 0

	for i := range events {
		ev := events[i]
		switch ev.Type {
		case model.ClockIn:
			sess := &Session{ClockIn: ev}
			key := ev.Timestamp.Date()
			day, ok := days[key]
			if !ok {
				day = &DailyReport{Date: key}
				days[key] = day
				order = append(order, key)
			}
			day.Sessions = append(day.Sessions, sess)
			open = append(open, sess)

		case model.ClockOut:
			if len(open) == 0 {
				orphans++
				continue
			}
			sess := open[len(open)-1]
			open = open[:len(open)-1]

			out := ev
			sess.ClockOut = &out
			sess.HoursWorked = round2(out.Timestamp.Sub(sess.ClockIn.Timestamp.Time).Hours())
			days[sess.ClockIn.Timestamp.Date()].TotalHours = round2(days[sess.ClockIn.Timestamp.Date()].TotalHours + sess.HoursWorked)
		}
	}

	result := Result{Orphans: orphans}
	for _, key := range order {
		result.Days = append(result.Days, days[key])
		result.TotalHours = round2(result.TotalHours + days[key].TotalHours)
	}
	sort.Slice(result.Days, func(i, j int) bool {
		return result.Days[i].Date < result.Days[j].Date
	})
	return result
}

// BuildWeekly wraps an aggregation result with the user header and window
// bounds.
func BuildWeekly(user *model.User, window Range, res Result) *WeeklyReport {
	days := res.Days
	if days == nil {
		days = []*DailyReport{}
	}
	return &WeeklyReport{
		UserID:       user.ID,
		UserEmail:    user.Email,
		UserName:     user.DisplayName(),
		StartDate:    window.Start.Date(),
		EndDate:      window.End.Date(),
		DailyReports: days,
		TotalHours:   res.TotalHours,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
