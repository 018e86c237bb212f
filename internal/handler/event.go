package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/punchcard/internal/geocode"
	"github.com/dukerupert/punchcard/internal/model"
	"github.com/dukerupert/punchcard/internal/store"
)

// EventHandler is the administrative surface over raw clock events: manual
// entries, corrections, and deletions.
type EventHandler struct {
	events *store.ClockEventStore
	users  *store.UserStore
	logger *slog.Logger
}

func NewEventHandler(es *store.ClockEventStore, us *store.UserStore, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: es, users: us, logger: logger}
}

// List returns recent punches across all users joined with owner identity.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)
	events, err := h.events.ListAllWithUser(limit)
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}
	if events == nil {
		events = []model.ClockEventWithUser{}
	}
	writeJSON(w, http.StatusOK, events)
}

// ListByUser returns one user's recent punches.
func (h *EventHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	user, err := h.users.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	limit := parseLimit(r, 100)
	events, err := h.events.ListByUser(id, limit)
	if err != nil {
		h.logger.Error("failed to list events", "user_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}
	if events == nil {
		events = []model.ClockEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

type manualEventRequest struct {
	UserID    int64           `json:"user_id"`
	Type      model.EventType `json:"type"`
	Timestamp model.Timestamp `json:"timestamp"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	PONumber  string          `json:"po_number"`
	// Optional reference used when back-filling a clock-out for a known
	// clock-in. Validated, not persisted.
	ClockInID *int64 `json:"clock_in_id"`
}

// Create records a manual entry with an explicit timestamp.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req manualEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if !req.Type.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type must be clock_in or clock_out"})
		return
	}
	if req.Timestamp.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "timestamp is required"})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "latitude and longitude are required"})
		return
	}
	if err := validatePunchFields(*req.Latitude, *req.Longitude, req.PONumber); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	user, err := h.users.GetByID(req.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user not found"})
		return
	}

	if req.ClockInID != nil {
		ref, err := h.events.GetByID(*req.ClockInID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check clock_in_id"})
			return
		}
		if ref == nil || ref.UserID != req.UserID || ref.Type != model.ClockIn {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "clock_in_id does not reference a clock-in of this user"})
			return
		}
	}

	event, err := h.events.Create(req.UserID, req.Type, req.Timestamp, *req.Latitude, *req.Longitude,
		geocode.Placeholder(*req.Latitude, *req.Longitude), req.PONumber)
	if err != nil {
		h.logger.Error("failed to create manual event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create event"})
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

type updateEventRequest struct {
	Timestamp *model.Timestamp `json:"timestamp"`
	Latitude  *float64         `json:"latitude"`
	Longitude *float64         `json:"longitude"`
	Address   *string          `json:"address"`
	PONumber  *string          `json:"po_number"`
}

// Update applies a partial correction to an event. Moving a timestamp can
// produce negative session durations in later reports; that is allowed.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "latitude must be between -90 and 90"})
		return
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "longitude must be between -180 and 180"})
		return
	}
	if req.PONumber != nil && len(*req.PONumber) > maxPONumberLen {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "po_number must be at most 100 characters"})
		return
	}

	event, err := h.events.Update(id, store.UpdateFields{
		Timestamp: req.Timestamp,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Address:   req.Address,
		PONumber:  req.PONumber,
	})
	if err != nil {
		h.logger.Error("failed to update event", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Delete removes an event.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ok, err := h.events.Delete(id)
	if err != nil {
		h.logger.Error("failed to delete event", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete event"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 1000 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
