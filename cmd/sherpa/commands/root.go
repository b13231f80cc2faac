package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/sherpa/cmd/sherpa/internal/config"
)

var (
	// Global flags
	verbose      bool
	contextName  string
	formatOutput string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sherpa",
	Short: "Source separation and voice cloning with sherpa-onnx",
	Long: `sherpa - command line interface for sherpa-onnx models.

Supported models:
  spleeter   Two-stem source separation (vocals, accompaniment)
  uvr        Ultimate Vocal Remover source separation
  zipvoice   Zero-shot voice cloning text-to-speech

Configuration is stored in the OS config directory, or in
$SHERPA_CONFIG_DIR when set:
  macOS:   ~/Library/Application Support/sherpa/
  Linux:   ~/.config/sherpa/
  Windows: %AppData%/sherpa/

Use 'sherpa config' to manage contexts and model configurations.

Examples:
  # Create a context and configure a model
  sherpa config add-context cpu
  sherpa config set cpu separation spleeter.vocals ./vocals.fp16.onnx
  sherpa config set cpu separation spleeter.accompaniment ./accompaniment.fp16.onnx

  # Split a song into stems
  sherpa config use-context cpu
  sherpa separate -o stems/ song.wav

  # Clone a voice
  sherpa -c gpu zipvoice -f request.yaml -o hello.wav`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		switch formatOutput {
		case "table", "yaml", "json":
			return nil
		default:
			return fmt.Errorf("unsupported output format: %s", formatOutput)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "configuration context (default: current context)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "table", "output format: table, yaml, json")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
