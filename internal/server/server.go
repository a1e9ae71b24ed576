// Package server exposes the meal calendar over a JSON HTTP API.
package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"kids-meal-calendar/internal/app"
	"kids-meal-calendar/internal/auth"
)

// Server is the HTTP front end of the application.
type Server struct {
	http.Server
	app      *app.App
	auth     *auth.Manager
	logger   *zap.Logger
	dataPath string
}

// Option configures a Server.
type Option func(*Server)

// WithAuth requires a bearer token on every /api route.
func WithAuth(m *auth.Manager) Option {
	return func(s *Server) { s.auth = m }
}

// WithLogger sets the access and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDataPath sets the path whose size /api/metrics reports.
func WithDataPath(path string) Option {
	return func(s *Server) { s.dataPath = path }
}

// NewServer configures routes, returning a ready-to-run http.Server.
// extra handlers (such as the Telegram webhook) are mounted as given,
// outside bearer authentication.
func NewServer(addr string, a *app.App, extra map[string]http.Handler, opts ...Option) *Server {
	s := &Server{app: a, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /api/children/{childID}/calendar", s.requireAuth(s.handleCalendar))
	mux.HandleFunc("PUT /api/children/{childID}/calendar/{date}/{slot}", s.requireAuth(s.handleSaveMeal))
	mux.HandleFunc("GET /api/children/{childID}/calendar/export", s.requireAuth(s.handleExport))
	mux.HandleFunc("POST /api/children/{childID}/summary", s.requireAuth(s.handleRequestSummary))
	mux.HandleFunc("GET /api/children/{childID}/summary", s.requireAuth(s.handleLatestSummary))

	mux.HandleFunc("GET /api/children/{childID}/meals", s.requireAuth(s.handleListMeals))
	mux.HandleFunc("GET /api/children/{childID}/meals/date", s.requireAuth(s.handleMealsByDate))
	mux.HandleFunc("POST /api/children/{childID}/meals", s.requireAuth(s.handleCreateMeal))
	mux.HandleFunc("POST /api/children/{childID}/meals/import", s.requireAuth(s.handleImportMenu))
	mux.HandleFunc("PUT /api/meals/{mealID}", s.requireAuth(s.handleUpdateMeal))
	mux.HandleFunc("DELETE /api/meals/{mealID}", s.requireAuth(s.handleDeleteMeal))

	mux.HandleFunc("GET /api/metrics", s.requireAuth(s.handleMetrics))

	for pattern, h := range extra {
		mux.Handle(pattern, h)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withRequestID(s.withAccessLog(s.withRecover(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
