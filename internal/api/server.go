package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ascotlan/iss-spotter/internal/health"
	"github.com/ascotlan/iss-spotter/internal/httputil"
	"github.com/ascotlan/iss-spotter/internal/lookup"
	"github.com/ascotlan/iss-spotter/internal/metrics"
	"github.com/ascotlan/iss-spotter/internal/upstream"
)

// PassFinder runs the lookup chain, either in full or from a known IP.
type PassFinder interface {
	NextPasses(ctx context.Context) ([]lookup.Pass, error)
	NextPassesFor(ctx context.Context, ip string) ([]lookup.Pass, error)
}

// defaultLookupTimeout bounds one lookup when no upstream timeout is set.
const defaultLookupTimeout = 90 * time.Second

// Config holds server options.
type Config struct {
	Addr       string
	TrustProxy bool
	// LookupTimeout is the longest one full chain may take: the three
	// sequential upstream calls at their own timeout each.
	LookupTimeout time.Duration
}

func (c Config) lookupTimeout() time.Duration {
	if c.LookupTimeout > 0 {
		return c.LookupTimeout
	}
	return defaultLookupTimeout
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	gate       *health.Gate
	drain      time.Duration
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, logger *slog.Logger, finder PassFinder, gate *health.Gate) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", gate.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/passes", passesHandler(logger, finder, cfg.TrustProxy))

	// Build middleware chain: metrics -> logging -> mux.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.lookupTimeout() + 10*time.Second,
			IdleTimeout:       120 * time.Second,
		},
		gate:   gate,
		drain:  cfg.lookupTimeout() + 5*time.Second,
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Run serves on ln until ctx is done, then closes the readiness gate and
// waits for in-flight lookups to finish. The gate is open only while ln is
// bound and being served.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- s.httpServer.Serve(ln) }()
	s.gate.Open()

	select {
	case err := <-errc:
		s.gate.Close()
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.gate.Close()
	s.logger.Info("shutting down server...", "component", "api", "drain_seconds", s.drain.Seconds())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.drain)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

type passesResponse struct {
	RequestID string        `json:"request_id"`
	IP        string        `json:"ip,omitempty"`
	Passes    []lookup.Pass `json:"passes"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// passesHandler answers with the passes over the requesting client. An
// explicit ?ip= wins over the connection address. Addresses that cannot be
// geolocated (loopback, private, unparsable) fall back to the full chain,
// which asks the IP lookup service for this server's public address.
func passesHandler(logger *slog.Logger, finder PassFinder, trustProxy bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()

		ip := r.URL.Query().Get("ip")
		if ip == "" {
			ip = httputil.ClientIP(r, trustProxy)
		}

		var (
			list []lookup.Pass
			err  error
		)
		if httputil.Geolocatable(ip) {
			list, err = finder.NextPassesFor(r.Context(), ip)
		} else {
			ip = ""
			list, err = finder.NextPasses(r.Context())
		}

		if err != nil {
			status := errorStatus(err)
			logger.Warn("pass lookup failed",
				"component", "api",
				"request_id", requestID,
				"status", status,
				"error", err,
			)
			writeJSON(w, status, errorResponse{RequestID: requestID, Error: err.Error()})
			return
		}

		if list == nil {
			list = []lookup.Pass{}
		}
		writeJSON(w, http.StatusOK, passesResponse{RequestID: requestID, IP: ip, Passes: list})
	}
}

// errorStatus maps a failed run to the status returned to the client.
func errorStatus(err error) int {
	switch {
	case upstream.IsRejected(err):
		return http.StatusUnprocessableEntity
	case upstream.IsTransport(err), upstream.IsRemoteStatus(err), upstream.IsMalformed(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
