// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/cors"

	"github.com/okian/fielddisplay/internal/adapters/mq/queue"
	"github.com/okian/fielddisplay/internal/audience"
	"github.com/okian/fielddisplay/internal/domain/screen"
	"github.com/okian/fielddisplay/internal/sequencer"
	"github.com/okian/fielddisplay/internal/sponsor"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScreenDependencies
	BoardDependencies
	SendDependencies
}

// Server wires HTTP routes for the status API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	screenHandler *ScreenHandler
	boardHandler  *BoardHandler
	sendHandler   *SendHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		screenHandler: NewScreenHandler(deps),
		boardHandler:  NewBoardHandler(deps),
		sendHandler:   NewSendHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/screen", MetricsMiddleware(s.screenHandler.HandleScreen, "screen"))
	mux.HandleFunc("/board", MetricsMiddleware(s.boardHandler.HandleGetBoard, "board"))
	mux.HandleFunc("/slides", MetricsMiddleware(s.boardHandler.HandleGetSlides, "slides"))
	mux.HandleFunc("/send", MetricsMiddleware(s.sendHandler.HandlePostSend, "send"))
}

// Handler returns mux wrapped with CORS so operator consoles on other
// origins can read and drive the display.
func Handler(mux *http.ServeMux) http.Handler {
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDependencyError maps an error from the display to a response. Any
// error that is not a known client or backpressure condition means the
// display cannot take requests right now.
func writeDependencyError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, screen.ErrUnknownScreen):
		writeError(w, http.StatusBadRequest, "unknown_screen", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, queue.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	default:
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	}
}

// Read shapes returned by the display.
type (
	Status   = sequencer.Status
	Snapshot = audience.Snapshot
	Slide    = sponsor.Slide
)
