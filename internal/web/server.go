// Package web provides the HTTP server and handlers for the JSON-to-CSV
// conversion UI: an upload page, a conversion endpoint, and the status and
// download routes the page polls.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/FeedConvert/internal/config"
	"github.com/JonMunkholm/FeedConvert/internal/converter"
	"github.com/JonMunkholm/FeedConvert/internal/history"
	custommw "github.com/JonMunkholm/FeedConvert/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// RunRecorder persists completed conversion runs. Satisfied by
// *history.Store; nil disables recording.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec history.RunRecord) error
	RecentRuns(ctx context.Context, limit int) ([]history.RunRecord, error)
}

// Server is the HTTP server for the conversion application.
type Server struct {
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	tasks   *TaskRegistry
	limiter *converter.TaskLimiter
	history RunRecorder
}

// NewServer creates a new Server instance. recorder may be nil when no
// history database is configured.
func NewServer(cfg *config.Config, recorder RunRecorder) *Server {
	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		tasks:   NewTaskRegistry(cfg.Convert.TaskTTL),
		limiter: converter.NewTaskLimiter(cfg.Convert.MaxConcurrent, cfg.Convert.MaxWaitTime),
		history: recorder,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if len(s.cfg.Server.TrustedProxies) > 0 {
		s.router.Use(custommw.TrustedRealIP(s.cfg.Server.TrustedProxies))
	} else {
		s.router.Use(middleware.RealIP)
	}
	s.router.Use(custommw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/", s.handleIndex)
	s.router.Post("/convert", s.handleConvert)
	s.router.Get("/status/{taskID}", s.handleStatus)
	s.router.Get("/download/{taskID}", s.handleDownload)
	s.router.Get("/history", s.handleHistory)
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server after waiting for in-flight
// conversions to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	if active := s.limiter.ActiveCount(); active > 0 {
		slog.Info("waiting for conversions to complete", "active", active)
		if err := s.limiter.WaitForDrain(ctx); err != nil {
			slog.Warn("conversions did not complete in time", "error", err)
		}
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}

	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeError writes a JSON error response in the shape the upload page
// understands: {"status": "error", "message": ...}.
func writeError(w http.ResponseWriter, status int, message string) {
	slog.Warn("request failed", "status", status, "message", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"status":"error","message":%q}`, message)
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
