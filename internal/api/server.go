// Package api exposes the HTTP interface for the ping service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pingmyweb/pingd/internal/catalog"
	"github.com/pingmyweb/pingd/internal/config"
	"github.com/pingmyweb/pingd/internal/metrics"
	"github.com/pingmyweb/pingd/internal/ping"
	"github.com/pingmyweb/pingd/internal/worker"
)

// Server wires HTTP handlers to the dispatcher, queue and stores.
type Server struct {
	router     chi.Router
	dispatcher worker.Dispatcher
	queue      ping.Queue
	users      ping.UserStore
	urls       ping.URLStore
	history    ping.HistoryStore
	catalog    *catalog.Catalog
	ids        ping.IDGenerator
	clock      ping.Clock
	cfg        config.Config
	logger     *zap.Logger
	ready      func() error
}

// NewServer constructs a Server with middleware and routes. ready, when
// non-nil, backs the readiness probe.
func NewServer(
	dispatcher worker.Dispatcher,
	queue ping.Queue,
	users ping.UserStore,
	urls ping.URLStore,
	history ping.HistoryStore,
	cat *catalog.Catalog,
	ids ping.IDGenerator,
	clock ping.Clock,
	cfg config.Config,
	logger *zap.Logger,
	ready func() error,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		dispatcher: dispatcher,
		queue:      queue,
		users:      users,
		urls:       urls,
		history:    history,
		catalog:    cat,
		ids:        ids,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
		ready:      ready,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(s.cfg.ServerTimeout()))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Route("/pings", func(r chi.Router) {
			r.Post("/", s.dispatchSync)
			r.Post("/async", s.dispatchAsync)
			r.Post("/search-engines", s.dispatchSearchEngines)
			r.Get("/history", s.getHistory)
		})
		r.Get("/urls/{url_id}", s.getURL)
		r.Get("/services", s.getServices)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.ready != nil {
		if err := s.ready(); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = 60 * time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}
