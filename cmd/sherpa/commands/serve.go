package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/sherpa/cmd/sherpa/internal/config"
	"github.com/haivivi/sherpa/pkg/cli"
	"github.com/haivivi/sherpa/pkg/service"
	"github.com/haivivi/sherpa/pkg/sherpa"
)

var (
	serveAddr     string
	serveTimeout  time.Duration
	serveUseCache bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WebSocket inference service",
	Long: `Run the WebSocket inference service.

Models are loaded from the context's separation.yaml and zipvoice.yaml;
an endpoint is served only when its model is configured.

Endpoints:
  GET /healthz        readiness and enabled endpoints
  GET /v1/zipvoice    ZipVoice synthesis (WebSocket)
  GET /v1/separate    source separation (WebSocket)

Examples:
  sherpa serve --addr :8080
  sherpa -c gpu serve --cache`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 5*time.Minute, "per-job timeout")
	serveCmd.Flags().BoolVar(&serveUseCache, "cache", false, "reuse cached results")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := service.Config{
		Timeout: serveTimeout,
		Logger:  slog.Default(),
	}

	sc, err := loadService[config.Separation](config.SeparationService)
	if err != nil {
		return err
	}
	if sc.Spleeter != nil || sc.UVR != nil {
		scfg, err := sc.SherpaConfig()
		if err != nil {
			return err
		}
		scfg.Logger = slog.Default()
		ss, err := sherpa.NewSourceSeparation(scfg)
		if err != nil {
			return err
		}
		defer ss.Close()
		cfg.Separator, cfg.SeparatorID = ss, sc.ModelID()
		slog.Info("separation model loaded", "model", sc.ModelID(), "sample_rate", ss.SampleRate())
	}

	zc, err := loadService[config.ZipVoice](config.ZipVoiceService)
	if err != nil {
		return err
	}
	if zc.Encoder != "" {
		zc.Logger = slog.Default()
		tts, err := sherpa.NewZipVoiceTTS(*zc)
		if err != nil {
			return err
		}
		defer tts.Close()
		cfg.Synthesizer, cfg.SynthesizerID = tts, config.ZipVoiceModelID(zc)
		slog.Info("zipvoice model loaded", "sample_rate", tts.SampleRate())
	}

	switch {
	case cfg.Separator == nil && cfg.Synthesizer == nil:
		return errors.New("no models configured: add separation.yaml or zipvoice.yaml to the context")
	case cfg.Separator == nil:
		cli.PrintWarning("No separation model configured; /v1/separate is disabled.")
	case cfg.Synthesizer == nil:
		cli.PrintWarning("No zipvoice model configured; /v1/zipvoice is disabled.")
	}

	store, err := openCache(serveUseCache)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		cfg.Cache = store
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("listening", "addr", serveAddr)
	return service.New(cfg).ListenAndServe(ctx, serveAddr)
}
