package sherpa

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// SeparationModel selects the source separation model family. It is one of
// [SpleeterModel] or [UVRModel].
type SeparationModel interface {
	separationModel()
}

// SpleeterModel is the two-stem Spleeter model (vocals + accompaniment).
type SpleeterModel struct {
	Vocals        string `yaml:"vocals" json:"vocals"`
	Accompaniment string `yaml:"accompaniment" json:"accompaniment"`
}

// UVRModel is a single-file UVR (Ultimate Vocal Remover) model.
type UVRModel struct {
	Model string `yaml:"model" json:"model"`
}

func (SpleeterModel) separationModel() {}
func (UVRModel) separationModel()      {}

// SeparationConfig configures a [SourceSeparation].
type SeparationConfig struct {
	// Model is required.
	Model SeparationModel

	// NumThreads is the ONNX Runtime thread count. Non-positive means 1.
	NumThreads int

	// Provider is the execution provider ("cpu", "cuda", "coreml", ...).
	// Empty asks ProviderResolver.
	Provider string

	// ProviderResolver supplies the provider when Provider is empty.
	// Nil uses DefaultProviderResolver.
	ProviderResolver ProviderResolver

	// Debug enables native debug output.
	Debug bool

	// Logger receives debug logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// native flattens the config into the layout the C API expects.
func (c SeparationConfig) native() (*nativeSeparationConfig, error) {
	n := &nativeSeparationConfig{
		NumThreads: c.NumThreads,
		Debug:      c.Debug,
		Provider:   resolveProvider(c.Provider, c.ProviderResolver),
	}
	if n.NumThreads <= 0 {
		n.NumThreads = 1
	}
	switch m := c.Model.(type) {
	case SpleeterModel:
		n.SpleeterVocals = m.Vocals
		n.SpleeterAccompaniment = m.Accompaniment
	case *SpleeterModel:
		n.SpleeterVocals = m.Vocals
		n.SpleeterAccompaniment = m.Accompaniment
	case UVRModel:
		n.UVRModel = m.Model
	case *UVRModel:
		n.UVRModel = m.Model
	case nil:
		return nil, fmt.Errorf("%w: no separation model configured", ErrCreationFailed)
	default:
		return nil, fmt.Errorf("%w: unsupported separation model %T", ErrCreationFailed, m)
	}
	return n, nil
}

// Stem is one separated source.
type Stem struct {
	// Samples are interleaved when NumChannels > 1.
	Samples     []float32 `msgpack:"samples" json:"-"`
	SampleRate  int       `msgpack:"sample_rate" json:"sample_rate"`
	NumChannels int       `msgpack:"num_channels" json:"num_channels"`
}

// Duration returns the playback length of the stem.
func (s Stem) Duration() time.Duration {
	if s.SampleRate <= 0 || s.NumChannels <= 0 {
		return 0
	}
	frames := len(s.Samples) / s.NumChannels
	return time.Duration(frames) * time.Second / time.Duration(s.SampleRate)
}

// SeparationResult holds the stems of one Process call, in the model's
// stem order (vocals first for Spleeter).
type SeparationResult struct {
	Stems []Stem `msgpack:"stems" json:"stems"`
}

// SourceSeparation owns a native source separation instance.
// Create with [NewSourceSeparation], [NewSpleeter] or [NewUVR] and release
// with Close.
type SourceSeparation struct {
	mu     sync.Mutex
	native separationNative
	logger *slog.Logger
}

// NewSourceSeparation creates a separation handle for cfg.Model.
func NewSourceSeparation(cfg SeparationConfig) (*SourceSeparation, error) {
	nc, err := cfg.native()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	native := nativeBackend.CreateSourceSeparation(nc)
	if native == nil {
		if !nativeBackend.Available() {
			return nil, fmt.Errorf("%w: %w", ErrCreationFailed, ErrNativeUnavailable)
		}
		return nil, fmt.Errorf("%w: source separation (provider %q)", ErrCreationFailed, nc.Provider)
	}

	s := &SourceSeparation{native: native, logger: logger}
	runtime.SetFinalizer(s, (*SourceSeparation).Close)

	if cfg.Debug {
		logger.Debug("sherpa: source separation created",
			"provider", nc.Provider,
			"threads", nc.NumThreads,
			"sample_rate", native.SampleRate(),
			"stems", native.NumStems())
	}
	return s, nil
}

// NewSpleeter creates a handle for a two-stem Spleeter model. cfg.Model is
// ignored.
func NewSpleeter(vocals, accompaniment string, cfg SeparationConfig) (*SourceSeparation, error) {
	cfg.Model = SpleeterModel{Vocals: vocals, Accompaniment: accompaniment}
	return NewSourceSeparation(cfg)
}

// NewUVR creates a handle for a UVR model. cfg.Model is ignored.
func NewUVR(model string, cfg SeparationConfig) (*SourceSeparation, error) {
	cfg.Model = UVRModel{Model: model}
	return NewSourceSeparation(cfg)
}

// SampleRate returns the sample rate the model operates at.
// Returns 0 after Close.
func (s *SourceSeparation) SampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.native == nil {
		return 0
	}
	return s.native.SampleRate()
}

// NumStems returns the number of stems each Process call yields.
// Returns 0 after Close.
func (s *SourceSeparation) NumStems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.native == nil {
		return 0
	}
	return s.native.NumStems()
}

// Process separates interleaved samples into stems. The call blocks for
// the duration of inference and cannot be interrupted; see
// [SourceSeparation.ProcessContext] for a cancellable wrapper.
//
// The returned samples are owned by the caller.
func (s *SourceSeparation) Process(samples []float32, sampleRate, numChannels int) (*SeparationResult, error) {
	return s.process(context.Background(), samples, sampleRate, numChannels)
}

// ProcessContext is Process with an external deadline. If ctx ends first
// it returns ctx.Err() immediately. A call still waiting for the handle
// when ctx ends never reaches the model; one already in inference keeps
// running in the background and its result is released when it finishes.
// samples must not be modified until then.
func (s *SourceSeparation) ProcessContext(ctx context.Context, samples []float32, sampleRate, numChannels int) (*SeparationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type outcome struct {
		res *SeparationResult
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := s.process(ctx, samples, sampleRate, numChannels)
		ch <- outcome{res, err}
	}()

	select {
	case o := <-ch:
		return o.res, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *SourceSeparation) process(ctx context.Context, samples []float32, sampleRate, numChannels int) (*SeparationResult, error) {
	if err := validateSeparationInput(samples, sampleRate, numChannels); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.native == nil {
		return nil, ErrClosed
	}
	// The handle may have been held by another call for a long time.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	raw := s.native.Process(samples, sampleRate, numChannels)
	if raw == nil {
		return nil, fmt.Errorf("%w: native process returned null", ErrProcessingFailed)
	}
	defer raw.release()

	stems, err := collectStems(raw, s.native.NumStems())
	if err != nil {
		return nil, err
	}
	res := &SeparationResult{Stems: stems}
	s.logger.Debug("sherpa: separation done",
		"samples", len(samples),
		"stems", len(res.Stems),
		"elapsed", time.Since(start))
	return res, nil
}

// Close releases the native instance. Safe to call multiple times.
func (s *SourceSeparation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.native != nil {
		s.native.Destroy()
		s.native = nil
		runtime.SetFinalizer(s, nil)
	}
	return nil
}

func validateSeparationInput(samples []float32, sampleRate, numChannels int) error {
	if len(samples) == 0 {
		return fmt.Errorf("%w: empty input", ErrProcessingFailed)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w: invalid sample rate %d", ErrProcessingFailed, sampleRate)
	}
	if numChannels <= 0 {
		return fmt.Errorf("%w: invalid channel count %d", ErrProcessingFailed, numChannels)
	}
	if len(samples)%numChannels != 0 {
		return fmt.Errorf("%w: %d samples is not a multiple of %d channels", ErrProcessingFailed, len(samples), numChannels)
	}
	return nil
}

// collectStems copies every stem out of raw. The stem count must match the
// model's; anything else, or a missing stem array, is an error.
func collectStems(raw *rawSeparation, want int) ([]Stem, error) {
	n := raw.numStems
	if n != want || !raw.hasStems {
		return nil, fmt.Errorf("%w: native result has %d stems (array present: %t), model has %d",
			ErrProcessingFailed, n, raw.hasStems, want)
	}
	stems := make([]Stem, 0, n)
	for i := range n {
		d := raw.stem(i)
		stems = append(stems, Stem{
			Samples:     copyFloats(d.samples, d.n),
			SampleRate:  d.sampleRate,
			NumChannels: d.numChannels,
		})
	}
	return stems, nil
}
