// Package api serves the Jellyfin webhook receiver and the demo echo
// listener.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/dispatch"
	"github.com/Nomadcxx/jellyhook/internal/event"
	"github.com/Nomadcxx/jellyhook/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

// Dispatcher handles one decoded event.
type Dispatcher interface {
	Handle(ctx context.Context, e event.Event) dispatch.Result
	Stats() *dispatch.Stats
}

var _ Dispatcher = (*dispatch.Dispatcher)(nil)

type Config struct {
	Addr               string
	WebhookSecret      string
	RateLimitPerMinute int
	// Sync makes the webhook wait for the invocation and report its
	// result instead of answering 202 straight away.
	Sync bool
	// InvocationTimeout bounds one dispatch. In sync mode the write
	// deadline is stretched past it so the result can still be sent.
	InvocationTimeout time.Duration
	Dispatcher        Dispatcher
	Logger            *logging.Logger
}

type Server struct {
	httpServer    *http.Server
	dispatcher    Dispatcher
	webhookSecret string
	rateLimit     int
	sync          bool
	logger        *logging.Logger
	startTime     time.Time
	inflight      sync.WaitGroup
	now           func() time.Time
}

type HealthResponse struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	Handled        int64  `json:"handled"`
	Failures       int64  `json:"failures"`
	NotifyFailures int64  `json:"notify_failures"`
	LastHandled    string `json:"last_handled,omitempty"`
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	s := &Server{
		dispatcher:    cfg.Dispatcher,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		rateLimit:     cfg.RateLimitPerMinute,
		sync:          cfg.Sync,
		logger:        cfg.Logger,
		startTime:     time.Now(),
		now:           time.Now,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func writeTimeout(cfg Config) time.Duration {
	const base = 10 * time.Second
	if !cfg.Sync {
		return base
	}
	budget := cfg.InvocationTimeout
	if budget <= 0 {
		budget = dispatch.DefaultTimeout
	}
	return budget + base
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
		}
		r.Post("/webhooks/jellyfin", s.HandleJellyfinWebhook)
		r.Post("/api/v1/webhooks/jellyfin", s.HandleJellyfinWebhook)
	})

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/echo", s.HandleEcho)
		r.Post("/echo", s.HandleEcho)
	})

	return r
}

func (s *Server) Start() error {
	s.logger.Info("server", "Webhook receiver starting", logging.F("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook receiver error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight invocations.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// Wait blocks until every accepted webhook has been handled.
func (s *Server) Wait() {
	s.inflight.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	}
	if s.dispatcher != nil {
		stats := s.dispatcher.Stats().Snapshot()
		resp.Handled = stats.Handled
		resp.Failures = stats.Failures
		resp.NotifyFailures = stats.NotifyFailures
		if !stats.LastHandled.IsZero() {
			resp.LastHandled = stats.LastHandled.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("server", "Request served",
			logging.F("method", r.Method),
			logging.F("path", r.URL.Path),
			logging.F("status", ww.Status()),
			logging.F("bytes", ww.BytesWritten()),
			logging.F("request_id", middleware.GetReqID(r.Context())),
			logging.F("duration_ms", time.Since(start).Milliseconds()))
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
