// Package httpserver exposes the operator API, the websocket broadcast stream
// and the metrics endpoint.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/CoPhuocVinh/demo-kafka/internal/adapters/http/mid"
	"github.com/CoPhuocVinh/demo-kafka/internal/application"
	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

// Server provides the HTTP endpoints of the demo.
type Server struct {
	production *application.ProductionService
	pool       *application.ConsumerPool
	groups     *application.ConsumerGroupService
	hub        *Hub
	metrics    http.Handler
	started    time.Time

	srv *http.Server
}

// New creates a new HTTP server instance. metrics may be nil.
func New(production *application.ProductionService, pool *application.ConsumerPool, groups *application.ConsumerGroupService, hub *Hub, metrics http.Handler) *Server {
	return &Server{
		production: production,
		pool:       pool,
		groups:     groups,
		hub:        hub,
		metrics:    metrics,
		started:    time.Now(),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	// preflights must be answered before routing; mounted subrouters have no OPTIONS routes
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(mid.I18n)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.health)
	r.Get("/ws", s.hub.ServeWS)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/demo", func(r chi.Router) {
		r.Get("/statistics", s.apiStatistics)
		r.Get("/consumers", s.apiConsumers)
		r.Get("/partitions", s.apiPartitions)
		r.Post("/start", s.apiStart)
		r.Post("/stop", s.apiStop)
		r.Post("/config", s.apiConfig)
		r.Post("/send", s.apiSend)
		r.Post("/seek", s.apiSeek)
	})
	return r
}

// Run serves on addr until Shutdown is called.
func (s *Server) Run(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	utils.Logger.Info("HTTP server listening", "addr", addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown disconnects websocket observers and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		utils.Logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
