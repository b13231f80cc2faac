package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/sherpa/cmd/sherpa/internal/config"
	"github.com/haivivi/sherpa/pkg/audio/wav"
	"github.com/haivivi/sherpa/pkg/cache"
	"github.com/haivivi/sherpa/pkg/cli"
	"github.com/haivivi/sherpa/pkg/sherpa"
	"github.com/haivivi/sherpa/pkg/storage"
)

var (
	zvRequestFile string
	zvOutputFile  string
	zvNumThreads  int
	zvProvider    string
	zvUseCache    bool
)

// zipVoiceRequest is the request file layout.
type zipVoiceRequest struct {
	Text       string  `yaml:"text" json:"text"`
	PromptText string  `yaml:"prompt_text" json:"prompt_text"`
	PromptWAV  string  `yaml:"prompt_wav" json:"prompt_wav"`
	Speed      float32 `yaml:"speed" json:"speed"`
	NumSteps   int     `yaml:"num_steps" json:"num_steps"`
}

var zipvoiceCmd = &cobra.Command{
	Use:   "zipvoice",
	Short: "Synthesize speech in a reference voice",
	Long: `Synthesize speech with ZipVoice, cloning the voice of a reference prompt.

Model paths come from the context's zipvoice.yaml:

  tokens: /models/zipvoice/tokens.txt
  encoder: /models/zipvoice/encoder.onnx
  decoder: /models/zipvoice/decoder.onnx
  vocoder: /models/zipvoice/vocos_24khz.onnx
  data_dir: /models/zipvoice/espeak-ng-data
  lexicon: /models/zipvoice/lexicon.txt

Request file (prompt_wav is relative to the request file):

  text: Hello from a cloned voice.
  prompt_text: The transcript of the prompt.
  prompt_wav: prompt.wav
  speed: 1.0
  num_steps: 4

Examples:
  sherpa zipvoice -f request.yaml -o hello.wav
  sherpa zipvoice -f request.yaml -o s3://my-bucket/tts/hello.wav`,
	Args: cobra.NoArgs,
	RunE: runZipVoice,
}

func init() {
	f := zipvoiceCmd.Flags()
	f.StringVarP(&zvRequestFile, "file", "f", "", "request YAML/JSON file ('-' for stdin)")
	f.StringVarP(&zvOutputFile, "output", "o", "output.wav", "output WAV file or s3://bucket/key")
	f.IntVar(&zvNumThreads, "num-threads", 0, "ONNX Runtime threads (default from config, then 1)")
	f.StringVar(&zvProvider, "provider", "", "execution provider (default: auto)")
	f.BoolVar(&zvUseCache, "cache", false, "reuse cached results")
	zipvoiceCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(zipvoiceCmd)
}

// loadZipVoiceRequest reads the request file and its prompt audio. A path
// of "-" reads the request from stdin.
func loadZipVoiceRequest(path string) (sherpa.GenerateRequest, error) {
	var r zipVoiceRequest
	var err error
	if path == "-" {
		err = cli.LoadRequestFromReader(os.Stdin, &r)
	} else {
		err = cli.LoadRequest(path, &r)
	}
	if err != nil {
		return sherpa.GenerateRequest{}, err
	}
	if r.Speed == 0 {
		r.Speed = 1.0
	}
	if r.NumSteps == 0 {
		r.NumSteps = 4
	}
	req := sherpa.GenerateRequest{
		Text:       r.Text,
		PromptText: r.PromptText,
		Speed:      r.Speed,
		NumSteps:   r.NumSteps,
	}
	if r.PromptWAV != "" {
		a, err := wav.ReadFile(cli.ResolvePath(path, r.PromptWAV))
		if err != nil {
			return req, fmt.Errorf("prompt: %w", err)
		}
		m := a.Mono()
		req.PromptSamples = m.Samples
		req.PromptSampleRate = m.SampleRate
	}
	return req, nil
}

// synthesis is the summary printed after generation.
type synthesis struct {
	Output     string  `yaml:"output" json:"output"`
	SampleRate int     `yaml:"sample_rate" json:"sample_rate"`
	Duration   string  `yaml:"duration" json:"duration"`
	Elapsed    string  `yaml:"elapsed" json:"elapsed"`
	RTF        float64 `yaml:"rtf" json:"rtf"`
	Cached     bool    `yaml:"cached" json:"cached"`
}

func runZipVoice(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := loadZipVoiceRequest(zvRequestFile)
	if err != nil {
		return err
	}

	zc, err := loadService[config.ZipVoice](config.ZipVoiceService)
	if err != nil {
		return err
	}
	if zvNumThreads > 0 {
		zc.Onnx.NumThreads = zvNumThreads
	}
	if zvProvider != "" {
		zc.Onnx.Provider = zvProvider
	}
	zc.Logger = slog.Default()

	store, err := openCache(zvUseCache)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	out, name, err := openOutputFile(ctx, zvOutputFile)
	if err != nil {
		return err
	}

	start := time.Now()
	audio, cached, err := synthesizeCached(ctx, zc, store, req)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	data, err := wav.Encode(&wav.Audio{Samples: audio.Samples, SampleRate: audio.SampleRate, NumChannels: 1})
	if err != nil {
		return err
	}
	if err := storage.WriteFile(ctx, out, name, data); err != nil {
		return err
	}

	r := synthesis{
		Output:     out.Location(name),
		SampleRate: audio.SampleRate,
		Duration:   cli.FormatDuration(audio.Duration()),
		Elapsed:    cli.FormatDuration(elapsed),
		RTF:        cli.RealTimeFactor(elapsed, audio.Duration()),
		Cached:     cached,
	}
	return printResult(r, "ZipVoice",
		[]string{"Output", "Rate", "Duration", "Elapsed", "RTF", "Cached"},
		[][]string{{r.Output, fmt.Sprint(r.SampleRate), r.Duration, r.Elapsed, fmt.Sprintf("%.2f", r.RTF), fmt.Sprint(r.Cached)}})
}

// synthesizeCached consults the cache before loading the model, so a hit
// never pays the model load.
func synthesizeCached(ctx context.Context, zc *config.ZipVoice, store cache.Store, req sherpa.GenerateRequest) (*sherpa.GeneratedAudio, bool, error) {
	var key cache.Key
	if store != nil {
		key = cache.ZipVoiceKey(config.ZipVoiceModelID(zc), req)
		a, err := cache.GetAudio(ctx, store, key)
		if err == nil {
			return a, true, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			slog.Warn("cache lookup failed", "error", err)
		}
	}

	tts, err := sherpa.NewZipVoiceTTS(*zc)
	if err != nil {
		return nil, false, err
	}
	defer tts.Close()
	slog.Debug("zipvoice model loaded", "sample_rate", tts.SampleRate())

	audio, err := tts.GenerateContext(ctx, req)
	if err != nil {
		return nil, false, err
	}
	if store != nil {
		if err := cache.PutAudio(ctx, store, key, audio); err != nil {
			slog.Warn("cache store failed", "error", err)
		}
	}
	return audio, false, nil
}
