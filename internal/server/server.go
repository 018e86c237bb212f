package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/punchcard/internal/auth"
	"github.com/dukerupert/punchcard/internal/config"
	"github.com/dukerupert/punchcard/internal/geocode"
	"github.com/dukerupert/punchcard/internal/handler"
	"github.com/dukerupert/punchcard/internal/middleware"
	"github.com/dukerupert/punchcard/internal/store"
	"github.com/dukerupert/punchcard/internal/worker"
)

type Server struct {
	db          *sql.DB
	cfg         *config.Config
	authH       *handler.AuthHandler
	clockH      *handler.ClockHandler
	eventH      *handler.EventHandler
	reportH     *handler.ReportHandler
	userH       *handler.UserHandler
	userStore   *store.UserStore
	tokens      *auth.TokenIssuer
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, geocoder *geocode.Client, pool *worker.Pool, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	eventStore := store.NewClockEventStore(db)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTLifetime)

	return &Server{
		db:          db,
		cfg:         cfg,
		authH:       handler.NewAuthHandler(userStore, tokens, logger.With("component", "auth")),
		clockH:      handler.NewClockHandler(eventStore, geocoder, pool, logger.With("component", "clock")),
		eventH:      handler.NewEventHandler(eventStore, userStore, logger.With("component", "event")),
		reportH:     handler.NewReportHandler(eventStore, userStore, logger.With("component", "report")),
		userH:       handler.NewUserHandler(userStore, logger.With("component", "user")),
		userStore:   userStore,
		tokens:      tokens,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the limiter for periodic cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	loginLimit := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	outerMux.Handle("POST /auth/login", loginLimit(http.HandlerFunc(s.authH.Login)))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.userStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	h := middleware.CORS(s.cfg.AllowedOrigins)(outerMux)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Punch routes
	mux.HandleFunc("POST /api/clock-in", s.clockH.ClockIn)
	mux.HandleFunc("POST /api/clock-out", s.clockH.ClockOut)
	mux.HandleFunc("GET /api/events/me", s.clockH.ListMine)

	// Report routes
	mux.HandleFunc("GET /api/reports/me", s.reportH.Me)

	// Account routes
	mux.HandleFunc("GET /api/users/me", s.userH.Me)

	// Administrative routes
	mux.Handle("GET /api/events", s.admin(s.eventH.List))
	mux.Handle("GET /api/events/users/{id}", s.admin(s.eventH.ListByUser))
	mux.Handle("POST /api/events", s.admin(s.eventH.Create))
	mux.Handle("PUT /api/events/{id}", s.admin(s.eventH.Update))
	mux.Handle("DELETE /api/events/{id}", s.admin(s.eventH.Delete))

	mux.Handle("GET /api/reports/users/{id}", s.admin(s.reportH.ByUser))
	mux.Handle("GET /api/reports/summary", s.admin(s.reportH.Summary))

	mux.Handle("POST /api/users", s.admin(s.userH.Create))
	mux.Handle("GET /api/users", s.admin(s.userH.List))
	mux.Handle("PUT /api/users/{id}", s.admin(s.userH.Update))
	mux.Handle("DELETE /api/users/{id}", s.admin(s.userH.Delete))
}

func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return middleware.RequireAdmin(h)
}
