package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/punchcard/internal/auth"
	"github.com/dukerupert/punchcard/internal/geocode"
	"github.com/dukerupert/punchcard/internal/model"
	"github.com/dukerupert/punchcard/internal/store"
	"github.com/dukerupert/punchcard/internal/worker"
)

const maxPONumberLen = 100

// ClockHandler records live punches. Each write is acknowledged immediately
// with a coordinate placeholder address; a background job enriches the
// address afterwards, best-effort.
type ClockHandler struct {
	events   *store.ClockEventStore
	geocoder *geocode.Client
	pool     *worker.Pool
	logger   *slog.Logger
}

func NewClockHandler(es *store.ClockEventStore, gc *geocode.Client, pool *worker.Pool, logger *slog.Logger) *ClockHandler {
	return &ClockHandler{events: es, geocoder: gc, pool: pool, logger: logger}
}

type punchRequest struct {
	Type      model.EventType `json:"type"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	PONumber  string          `json:"po_number"`
}

func (r *punchRequest) validate(expected model.EventType) error {
	if r.Type != "" && r.Type != expected {
		return fmt.Errorf("type must be %q", expected)
	}
	if r.Latitude == nil || r.Longitude == nil {
		return fmt.Errorf("latitude and longitude are required")
	}
	return validatePunchFields(*r.Latitude, *r.Longitude, r.PONumber)
}

func validatePunchFields(lat, lon float64, poNumber string) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	if len(poNumber) > maxPONumberLen {
		return fmt.Errorf("po_number must be at most %d characters", maxPONumberLen)
	}
	return nil
}

// ClockIn records an entry punch for the authenticated user.
func (h *ClockHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, model.ClockIn)
}

// ClockOut records an exit punch for the authenticated user.
func (h *ClockHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, model.ClockOut)
}

func (h *ClockHandler) punch(w http.ResponseWriter, r *http.Request, typ model.EventType) {
	var req punchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := req.validate(typ); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	userID := auth.UserID(r.Context())
	now := model.NewTimestamp(time.Now().UTC())
	placeholder := geocode.Placeholder(*req.Latitude, *req.Longitude)

	event, err := h.events.Create(userID, typ, now, *req.Latitude, *req.Longitude, placeholder, req.PONumber)
	if err != nil {
		h.logger.Error("failed to create punch", "type", typ, "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record punch"})
		return
	}

	h.submitEnrichment(event)

	writeJSON(w, http.StatusCreated, event)
}

// submitEnrichment schedules the reverse-geocoding lookup. The punch is
// already durable; this may fail or run arbitrarily late without affecting
// it.
func (h *ClockHandler) submitEnrichment(event *model.ClockEvent) {
	id := event.ID
	lat, lon := event.Latitude, event.Longitude
	h.pool.Submit(worker.Job{
		Name: "geocode-enrich",
		Run: func(ctx context.Context) error {
			address := h.geocoder.Reverse(ctx, lat, lon)
			return h.events.UpdateAddress(id, address)
		},
	})
}

// ListMine returns the authenticated user's recent punches, newest first.
func (h *ClockHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)
	events, err := h.events.ListByUser(auth.UserID(r.Context()), limit)
	if err != nil {
		h.logger.Error("failed to list punches", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list punches"})
		return
	}
	if events == nil {
		events = []model.ClockEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
