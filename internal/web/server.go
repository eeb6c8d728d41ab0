// Package web serves the simulator status page and its JSON API.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/cniweb/Hackathon2025/internal/alerts"
	"github.com/cniweb/Hackathon2025/internal/gamification"
	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/hierarchy"
	"github.com/cniweb/Hackathon2025/internal/insights"
	"github.com/cniweb/Hackathon2025/internal/metrics"
	"github.com/cniweb/Hackathon2025/internal/status"
)

// Deps are the components the handlers read and mutate.
type Deps struct {
	Tracker   *status.Tracker
	Selection *hierarchy.Model
	Game      *gamification.Engine
	Alerts    *alerts.Log
	Metrics   *metrics.Metrics // nil disables /metrics
	Price     decimal.Decimal  // zero uses insights.DefaultPrice
	Rand      generator.Rand   // nil uses generator.DefaultRand
	Logger    *slog.Logger
	AccessLog io.Writer // nil logs requests to stdout
}

// Server serves the status page and API over HTTP.
type Server struct {
	httpServer *http.Server
	deps       Deps
	log        *slog.Logger
}

// New creates a Server listening on addr.
func New(addr string, d Deps) *Server {
	if d.Price.IsZero() {
		d.Price = insights.DefaultPrice
	}
	if d.Rand == nil {
		d.Rand = generator.DefaultRand
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.AccessLog == nil {
		d.AccessLog = os.Stdout
	}
	s := &Server{deps: d, log: d.Logger.With(slog.String("component", "web"))}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(d.AccessLog, s.routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/samples", s.handleSamples).Methods(http.MethodGet)
	api.HandleFunc("/hierarchy", s.handleHierarchy).Methods(http.MethodGet)
	api.HandleFunc("/selection", s.handleGetSelection).Methods(http.MethodGet)
	api.HandleFunc("/selection", s.handlePutSelection).Methods(http.MethodPut)
	api.HandleFunc("/day", s.handleDay).Methods(http.MethodGet)
	api.HandleFunc("/months", s.handleMonths).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/compare", s.handleCompare).Methods(http.MethodGet)
	api.HandleFunc("/forecast", s.handleForecast).Methods(http.MethodGet)
	api.HandleFunc("/heatmap", s.handleHeatmap).Methods(http.MethodGet)
	api.HandleFunc("/cost", s.handleCost).Methods(http.MethodGet)
	api.HandleFunc("/profiles", s.handleProfiles).Methods(http.MethodGet)
	api.HandleFunc("/peaks", s.handlePeaks).Methods(http.MethodGet)
	api.HandleFunc("/peaks/{name}", s.handleDrillDown).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleClearAlerts).Methods(http.MethodDelete)
	api.HandleFunc("/gamification", s.handleGamification).Methods(http.MethodGet)
	api.HandleFunc("/gamification/quests/{id:[0-9]+}", s.handleCompleteQuest).Methods(http.MethodPost)
	api.HandleFunc("/gamification/profile", s.handleCompleteProfile).Methods(http.MethodPost)

	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

// Handler returns the root handler, including access logging.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.log.Error("render index", slog.Any("error", err))
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatSamples(snap))
}

// errorJSON is the body of every non-2xx API response.
type errorJSON struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorJSON{Error: err.Error()})
}
