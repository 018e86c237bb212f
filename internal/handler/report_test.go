package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/punchcard/internal/database"
	"github.com/dukerupert/punchcard/internal/model"
	"github.com/dukerupert/punchcard/internal/report"
	"github.com/dukerupert/punchcard/internal/store"
)

type reportFixture struct {
	handler *ReportHandler
	events  *store.ClockEventStore
	users   *store.UserStore
	user    *model.User
}

func setupReport(t *testing.T) *reportFixture {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	events := store.NewClockEventStore(db)
	user, err := users.Create("worker@example.com", "hash", "Pat", "Doe", false)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	return &reportFixture{
		handler: NewReportHandler(events, users, slog.New(slog.DiscardHandler)),
		events:  events,
		users:   users,
		user:    user,
	}
}

func (f *reportFixture) seed(t *testing.T, userID int64, typ model.EventType, ts string) {
	t.Helper()
	parsed, err := model.ParseTimestamp(ts)
	if err != nil {
		t.Fatalf("parse %q: %v", ts, err)
	}
	if _, err := f.events.Create(userID, typ, parsed, 45.5, -122.6, "somewhere", ""); err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func TestReportMe(t *testing.T) {
	f := setupReport(t)

	f.seed(t, f.user.ID, model.ClockIn, "2024-03-11T08:00:00")
	f.seed(t, f.user.ID, model.ClockOut, "2024-03-11T12:30:00")
	f.seed(t, f.user.ID, model.ClockIn, "2024-03-12T09:00:00")
	f.seed(t, f.user.ID, model.ClockOut, "2024-03-12T17:00:00")

	w := httptest.NewRecorder()
	r := authedRequest("GET", "/api/reports/me?start_date=2024-03-09&end_date=2024-03-15", "", f.user)
	f.handler.Me(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var wr report.WeeklyReport
	if err := json.Unmarshal(w.Body.Bytes(), &wr); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if wr.UserID != f.user.ID {
		t.Errorf("user_id = %d, want %d", wr.UserID, f.user.ID)
	}
	if wr.TotalHours != 12.5 {
		t.Errorf("total_hours = %v, want 12.5", wr.TotalHours)
	}
	if len(wr.DailyReports) != 2 {
		t.Fatalf("daily reports = %d, want 2", len(wr.DailyReports))
	}
	if wr.DailyReports[0].Date != "2024-03-11" || wr.DailyReports[0].TotalHours != 4.5 {
		t.Errorf("day 1 = %s %v", wr.DailyReports[0].Date, wr.DailyReports[0].TotalHours)
	}
}

func TestReportMeExcludesEventsOutsideWindow(t *testing.T) {
	f := setupReport(t)

	f.seed(t, f.user.ID, model.ClockIn, "2024-03-01T08:00:00")
	f.seed(t, f.user.ID, model.ClockOut, "2024-03-01T16:00:00")
	f.seed(t, f.user.ID, model.ClockIn, "2024-03-11T08:00:00")
	f.seed(t, f.user.ID, model.ClockOut, "2024-03-11T10:00:00")

	w := httptest.NewRecorder()
	r := authedRequest("GET", "/api/reports/me?start_date=2024-03-09&end_date=2024-03-15", "", f.user)
	f.handler.Me(w, r)

	var wr report.WeeklyReport
	if err := json.Unmarshal(w.Body.Bytes(), &wr); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if wr.TotalHours != 2.0 {
		t.Errorf("total_hours = %v, want 2.0", wr.TotalHours)
	}
}

func TestReportMeRejectsBadDates(t *testing.T) {
	f := setupReport(t)

	for _, query := range []string{
		"?start_date=2024-03-09",
		"?start_date=bogus&end_date=2024-03-15",
		"?start_date=2024-03-15&end_date=2024-03-09",
	} {
		w := httptest.NewRecorder()
		f.handler.Me(w, authedRequest("GET", "/api/reports/me"+query, "", f.user))
		if w.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", query, w.Code)
		}
	}
}

func TestReportByUserNotFound(t *testing.T) {
	f := setupReport(t)

	w := httptest.NewRecorder()
	r := authedRequest("GET", "/api/reports/users/999", "", f.user)
	r.SetPathValue("id", "999")
	f.handler.ByUser(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestReportSummary(t *testing.T) {
	f := setupReport(t)

	other, err := f.users.Create("other@example.com", "hash", "", "", false)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	f.seed(t, f.user.ID, model.ClockIn, "2024-03-11T08:00:00")
	f.seed(t, f.user.ID, model.ClockOut, "2024-03-11T16:00:00")
	f.seed(t, other.ID, model.ClockIn, "2024-03-12T08:00:00")
	f.seed(t, other.ID, model.ClockOut, "2024-03-12T12:00:00")

	w := httptest.NewRecorder()
	r := authedRequest("GET", "/api/reports/summary?start_date=2024-03-09&end_date=2024-03-15", "", f.user)
	f.handler.Summary(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var sum summaryReport
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(sum.Employees) != 2 {
		t.Fatalf("employees = %d, want 2", len(sum.Employees))
	}

	hours := map[int64]float64{}
	for _, e := range sum.Employees {
		hours[e.UserID] = e.TotalHours
	}
	if hours[f.user.ID] != 8.0 {
		t.Errorf("user hours = %v, want 8.0", hours[f.user.ID])
	}
	if hours[other.ID] != 4.0 {
		t.Errorf("other hours = %v, want 4.0", hours[other.ID])
	}
	if sum.StartDate != "2024-03-09" || sum.EndDate != "2024-03-15" {
		t.Errorf("window = %s..%s", sum.StartDate, sum.EndDate)
	}
}
