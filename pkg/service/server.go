// Package service serves ZipVoice synthesis and source separation over
// WebSocket.
//
// Each connection carries one job. The client sends a JSON request, the
// server answers with a "start" event, one binary WAV message per output
// (stems in model order) and a final "done" event, or an "error" event
// instead.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/sherpa/pkg/cache"
	"github.com/haivivi/sherpa/pkg/sherpa"
)

// Synthesizer generates speech. *sherpa.ZipVoiceTTS satisfies it.
type Synthesizer interface {
	GenerateContext(ctx context.Context, req sherpa.GenerateRequest) (*sherpa.GeneratedAudio, error)
}

// Separator splits audio into stems. *sherpa.SourceSeparation satisfies it.
type Separator interface {
	SampleRate() int
	ProcessContext(ctx context.Context, samples []float32, sampleRate, numChannels int) (*sherpa.SeparationResult, error)
}

// Config configures a Server. Nil engines disable their endpoint.
type Config struct {
	Synthesizer Synthesizer
	// SynthesizerID identifies the loaded model in cache keys.
	SynthesizerID string

	Separator   Separator
	SeparatorID string

	// Cache short-circuits repeated requests when set.
	Cache cache.Store

	// Timeout bounds one job. Zero means 5 minutes.
	Timeout time.Duration

	// MaxRequestBytes bounds the request message. Zero means 64 MiB.
	MaxRequestBytes int64

	Logger *slog.Logger
}

// Server is an http.Handler serving the inference endpoints.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	mux      *http.ServeMux
	upgrader websocket.Upgrader
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = 64 << 20
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /v1/zipvoice", s.handleZipVoice)
	s.mux.HandleFunc("GET /v1/separate", s.handleSeparate)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("service: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("service: listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","zipvoice":%t,"separate":%t}`+"\n",
		s.cfg.Synthesizer != nil, s.cfg.Separator != nil)
}
