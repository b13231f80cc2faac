package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/haivivi/sherpa/cmd/sherpa/internal/config"
	"github.com/haivivi/sherpa/pkg/audio/resampler"
	"github.com/haivivi/sherpa/pkg/audio/wav"
	"github.com/haivivi/sherpa/pkg/cache"
	"github.com/haivivi/sherpa/pkg/cli"
	"github.com/haivivi/sherpa/pkg/sherpa"
	"github.com/haivivi/sherpa/pkg/storage"
)

var (
	sepSpleeterVocals string
	sepSpleeterAccomp string
	sepUVRModel       string
	sepNumThreads     int
	sepProvider       string
	sepOutputDir      string
	sepUseCache       bool
)

var separateCmd = &cobra.Command{
	Use:   "separate [flags] <input.wav>...",
	Short: "Split audio into stems",
	Long: `Split audio files into stems with a Spleeter or UVR model.

Each input is resampled to the model rate and its stems are written as
<name>/stem-<i>.wav under the output location, which is a local directory
or s3://bucket/prefix. Spleeter produces vocals (stem-0) and
accompaniment (stem-1).

The model comes from the flags or from the context's separation.yaml:

  spleeter:
    vocals: /models/spleeter/vocals.fp16.onnx
    accompaniment: /models/spleeter/accompaniment.fp16.onnx
  num_threads: 2

Examples:
  sherpa separate --uvr UVR_MDXNET_1_9703.onnx -o stems/ song.wav
  sherpa separate --cache -o s3://my-bucket/stems a.wav b.wav`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSeparate,
}

func init() {
	f := separateCmd.Flags()
	f.StringVar(&sepSpleeterVocals, "spleeter-vocals", "", "Spleeter vocals model")
	f.StringVar(&sepSpleeterAccomp, "spleeter-accompaniment", "", "Spleeter accompaniment model")
	f.StringVar(&sepUVRModel, "uvr", "", "UVR model")
	f.IntVar(&sepNumThreads, "num-threads", 0, "ONNX Runtime threads (default from config, then 1)")
	f.StringVar(&sepProvider, "provider", "", "execution provider (default: auto)")
	f.StringVarP(&sepOutputDir, "output", "o", "", "output directory or s3://bucket/prefix")
	f.BoolVar(&sepUseCache, "cache", false, "reuse cached results")
	rootCmd.AddCommand(separateCmd)
}

// separationSettings merges the context's separation.yaml with the flags.
func separationSettings() (*config.Separation, error) {
	sc, err := loadService[config.Separation](config.SeparationService)
	if err != nil {
		return nil, err
	}
	if sepSpleeterVocals != "" || sepSpleeterAccomp != "" {
		if sepSpleeterVocals == "" || sepSpleeterAccomp == "" {
			return nil, errors.New("--spleeter-vocals and --spleeter-accompaniment must be given together")
		}
		sc.Spleeter = &sherpa.SpleeterModel{Vocals: sepSpleeterVocals, Accompaniment: sepSpleeterAccomp}
		sc.UVR = nil
	}
	if sepUVRModel != "" {
		if sc.Spleeter != nil && sepSpleeterVocals != "" {
			return nil, errors.New("--uvr cannot be combined with --spleeter-*")
		}
		sc.UVR = &sherpa.UVRModel{Model: sepUVRModel}
		sc.Spleeter = nil
	}
	if sepNumThreads > 0 {
		sc.NumThreads = sepNumThreads
	}
	if sepProvider != "" {
		sc.Provider = sepProvider
	}
	return sc, nil
}

// separation is one input's outcome, printed in the summary.
type separation struct {
	Input    string   `yaml:"input" json:"input"`
	Stems    []string `yaml:"stems" json:"stems"`
	Duration string   `yaml:"duration" json:"duration"`
	Elapsed  string   `yaml:"elapsed" json:"elapsed"`
	RTF      float64  `yaml:"rtf" json:"rtf"`
	Cached   bool     `yaml:"cached" json:"cached"`
}

func runSeparate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sc, err := separationSettings()
	if err != nil {
		return err
	}
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
	rate := ss.SampleRate()
	slog.Debug("separation model loaded", "model", sc.ModelID(), "sample_rate", rate, "stems", ss.NumStems())

	// Decoding and resampling run concurrently; inference is serialised
	// by the handle.
	inputs := make([]*wav.Audio, len(args))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range args {
		g.Go(func() error {
			a, err := wav.ReadFile(path)
			if err != nil {
				return err
			}
			// Surround input is downmixed; the models take mono or stereo.
			dst := resampler.Format{SampleRate: rate, Channels: a.NumChannels}
			if dst.Channels > 2 {
				dst.Channels = 1
			}
			src := resampler.Format{SampleRate: a.SampleRate, Channels: a.NumChannels}
			samples, err := resampler.Convert(a.Samples, src, dst)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			inputs[i] = &wav.Audio{Samples: samples, SampleRate: dst.SampleRate, NumChannels: dst.Channels}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	store, err := openCache(sepUseCache)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	out, err := openOutputDir(ctx, sepOutputDir)
	if err != nil {
		return err
	}

	results := make([]separation, 0, len(args))
	for i, path := range args {
		r, err := separateOne(ctx, ss, sc.ModelID(), store, out, path, inputs[i])
		if err != nil {
			return err
		}
		results = append(results, *r)
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Input,
			strconv.Itoa(len(r.Stems)),
			r.Duration,
			r.Elapsed,
			fmt.Sprintf("%.2f", r.RTF),
			strconv.FormatBool(r.Cached),
			parentLocation(r.Stems[0]),
		})
	}
	return printResult(results, "Separation",
		[]string{"Input", "Stems", "Duration", "Elapsed", "RTF", "Cached", "Output"}, rows)
}

func separateOne(ctx context.Context, ss *sherpa.SourceSeparation, modelID string, store cache.Store, out storage.FileStore, path string, in *wav.Audio) (*separation, error) {
	start := time.Now()
	logger := slog.With("input", path)

	var (
		res    *sherpa.SeparationResult
		cached bool
		key    cache.Key
	)
	if store != nil {
		key = cache.SeparationKey(modelID, in.Samples, in.SampleRate, in.NumChannels)
		r, err := cache.GetSeparation(ctx, store, key)
		switch {
		case err == nil:
			res, cached = r, true
		case !errors.Is(err, cache.ErrNotFound):
			logger.Warn("cache lookup failed", "error", err)
		}
	}
	if res == nil {
		r, err := ss.ProcessContext(ctx, in.Samples, in.SampleRate, in.NumChannels)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		res = r
		if store != nil {
			if err := cache.PutSeparation(ctx, store, key, res); err != nil {
				logger.Warn("cache store failed", "error", err)
			}
		}
	}
	elapsed := time.Since(start)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	r := &separation{
		Input:    path,
		Duration: cli.FormatDuration(in.Duration()),
		Elapsed:  cli.FormatDuration(elapsed),
		RTF:      cli.RealTimeFactor(elapsed, in.Duration()),
		Cached:   cached,
	}
	for i, st := range res.Stems {
		data, err := wav.Encode(&wav.Audio{Samples: st.Samples, SampleRate: st.SampleRate, NumChannels: st.NumChannels})
		if err != nil {
			return nil, fmt.Errorf("%s: encode stem %d: %w", path, i, err)
		}
		p := fmt.Sprintf("%s/stem-%d.wav", name, i)
		if err := storage.WriteFile(ctx, out, p, data); err != nil {
			return nil, err
		}
		r.Stems = append(r.Stems, out.Location(p))
		logger.Debug("stem written", "stem", i, "location", out.Location(p), "bytes", len(data))
	}
	if len(r.Stems) == 0 {
		return nil, fmt.Errorf("%s: model produced no stems", path)
	}
	return r, nil
}

// parentLocation trims the last element of a store location. filepath.Dir
// would collapse the "//" of s3:// locations.
func parentLocation(loc string) string {
	i := strings.LastIndexAny(loc, `/\`)
	if i < 0 {
		return "."
	}
	return loc[:i]
}
