// Package server exposes the lookup backend and the lookup page over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/kapu/roblox-profile-go/internal/constants"
	"github.com/kapu/roblox-profile-go/internal/controller"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/kapu/roblox-profile-go/internal/render"
	"github.com/kapu/roblox-profile-go/pkg/errors"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Backend is what ProfileService offers the HTTP layer.
type Backend interface {
	Lookup(ctx context.Context, query string) (*domain.ProfileResult, error)
	History(ctx context.Context, limit int) ([]*domain.LookupRecord, error)
	Health(ctx context.Context) domain.Health
}

type Server struct {
	backend  Backend
	limiter  *IPRateLimiter
	upgrader websocket.Upgrader
	logger   *zap.Logger
	sessions conc.WaitGroup
	conns    sync.Map // map[string]*websocket.Conn
}

func New(backend Backend, limiter *IPRateLimiter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		backend: backend,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/healthz", s.handleHealth)
	r.Get("/static/styles.css", handleStylesheet)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.With(s.limiter.Middleware).Get("/user", s.handleUser)
		r.Get("/history", s.handleHistory)
	})

	return r
}

// CloseSessions drops every open websocket and waits for the sessions to
// finish, or for ctx to end.
func (s *Server) CloseSessions(ctx context.Context) error {
	s.conns.Range(func(_, val any) bool {
		_ = val.(*websocket.Conn).Close()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("query") {
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: []map[string]any{{
			"loc":  []string{"query", "query"},
			"msg":  "field required",
			"type": "value_error.missing",
		}}})
		return
	}

	result, err := s.backend.Lookup(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		status := errors.StatusCode(err)
		detail := errors.Detail(err)
		if detail == "" {
			detail = http.StatusText(status)
		}
		writeDetail(w, status, detail)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.backend.History(r.Context(), limit)
	if err != nil {
		s.logger.Warn("History request failed", zap.Error(err))
		writeDetail(w, errors.StatusCode(err), errors.Detail(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": records})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.backend.Health(r.Context())

	status, code := "ok", http.StatusOK
	if !health.Healthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"cache":   health.Cache,
		"history": health.History,
	})
}

func handleStylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write(render.Stylesheet)
}

// handlePage serves the lookup page. With ?query= it runs one lookup through
// a controller and renders the settled state in place.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	var state domain.DisplayState = domain.Idle{}
	if r.URL.Query().Has("query") {
		state = s.lookupOnce(r.Context(), query)
	}

	view, err := render.Present(state)
	if err != nil {
		s.logger.Error("Failed to present state", zap.Error(err))
		view, _ = render.Present(domain.ShowingError{Message: constants.Messages.RequestFailed})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.Page(w, query, view); err != nil {
		s.logger.Error("Failed to render page", zap.Error(err))
	}
}

func (s *Server) lookupOnce(ctx context.Context, query string) domain.DisplayState {
	return controller.LookupOnce(ctx, serviceLookuper{backend: s.backend}, query, s.logger)
}
