package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/punchcard/internal/auth"
	"github.com/dukerupert/punchcard/internal/report"
	"github.com/dukerupert/punchcard/internal/store"
)

// ReportHandler serves worked-hours reports. Reports are derived on every
// request from the persisted events; nothing here is stored.
type ReportHandler struct {
	events *store.ClockEventStore
	users  *store.UserStore
	logger *slog.Logger
}

func NewReportHandler(es *store.ClockEventStore, us *store.UserStore, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{events: es, users: us, logger: logger}
}

// Me returns the weekly report for the authenticated user. Without explicit
// start_date/end_date params the current Saturday-to-Friday week is used.
func (h *ReportHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, auth.UserID(r.Context()))
}

// ByUser returns the weekly report for any user.
func (h *ReportHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	h.serve(w, r, id)
}

func (h *ReportHandler) serve(w http.ResponseWriter, r *http.Request, userID int64) {
	window, err := report.ParseRange(r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"), time.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		h.logger.Error("failed to get user", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	events, err := h.events.ListByUserAndRange(userID, window.Start, window.End)
	if err != nil {
		h.logger.Error("failed to list events", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}

	res := report.Build(events)
	if res.Orphans > 0 {
		h.logger.Debug("report contains orphan clock-outs", "user_id", userID, "orphans", res.Orphans)
	}
	writeJSON(w, http.StatusOK, report.BuildWeekly(user, window, res))
}

type employeeSummary struct {
	UserID     int64   `json:"user_id"`
	UserEmail  string  `json:"user_email"`
	UserName   string  `json:"user_name"`
	TotalHours float64 `json:"total_hours"`
}

type summaryReport struct {
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	Employees []employeeSummary `json:"employees"`
}

// Summary returns every employee's total hours over the window.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	window, err := report.ParseRange(r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"), time.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	users, err := h.users.List()
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list users"})
		return
	}

	out := summaryReport{
		StartDate: window.Start.Date(),
		EndDate:   window.End.Date(),
		Employees: []employeeSummary{},
	}
	for i := range users {
		u := &users[i]
		events, err := h.events.ListByUserAndRange(u.ID, window.Start, window.End)
		if err != nil {
			h.logger.Error("failed to list events", "user_id", u.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
			return
		}
		res := report.Build(events)
		out.Employees = append(out.Employees, employeeSummary{
			UserID:     u.ID,
			UserEmail:  u.Email,
			UserName:   u.DisplayName(),
			TotalHours: res.TotalHours,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
