// Package statusserver exposes the engine's runtime state over a small
// debug HTTP endpoint: the bandwidth estimate, the manifest fetcher's
// error state, and a liveness probe. It is a diagnostic surface, not part
// of the engine's contract.
package statusserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// BitrateSource supplies the current bandwidth estimate in bits per
// second; internal/bandwidth.Meter satisfies it.
type BitrateSource interface {
	GetEstimate() int64
}

// ManifestStatus supplies the manifest fetcher's health;
// internal/manifest.Fetcher satisfies it.
type ManifestStatus interface {
	HasManifest() bool
	LoadErrorCount() int
	CanContinueBuffering() bool
}

// Config holds the server's tunables.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// ReadTimeout and WriteTimeout bound request handling.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns localhost-only defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server serves /stats and /healthz.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	bitrate    BitrateSource
	manifest   ManifestStatus
	router     *chi.Mux
	httpServer *http.Server
}

// New constructs a Server. bitrate and manifest may be nil; the
// corresponding stats fields are then omitted.
func New(cfg Config, bitrate BitrateSource, manifest ManifestStatus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: logger, bitrate: bitrate, manifest: manifest}

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Get("/healthz", s.handleHealthz)
	router.Get("/stats", s.handleStats)
	s.router = router
	return s
}

// Handler returns the underlying router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins serving and returns once the listener is bound. The server
// runs until Stop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("statusserver: listening on %s: %w", s.cfg.Addr, err)
	}
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.logger.Info("status server listening", slog.String("addr", listener.Addr().String()))
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status server failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// stats is the /stats response shape. It is a diagnostic convenience, not
// a stable wire contract.
type stats struct {
	BitrateEstimateBps   *int64 `json:"bitrate_estimate_bps,omitempty"`
	HasManifest          *bool  `json:"has_manifest,omitempty"`
	ManifestErrorCount   *int   `json:"manifest_error_count,omitempty"`
	CanContinueBuffering *bool  `json:"can_continue_buffering,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	var out stats
	if s.bitrate != nil {
		estimate := s.bitrate.GetEstimate()
		out.BitrateEstimateBps = &estimate
	}
	if s.manifest != nil {
		has := s.manifest.HasManifest()
		count := s.manifest.LoadErrorCount()
		ok := s.manifest.CanContinueBuffering()
		out.HasManifest = &has
		out.ManifestErrorCount = &count
		out.CanContinueBuffering = &ok
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
