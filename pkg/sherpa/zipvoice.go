package sherpa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ZipVoice hyperparameter defaults, applied when the field is zero.
const (
	DefaultFeatScale       float32 = 0.1
	DefaultTShift          float32 = 0.5
	DefaultTargetRMS       float32 = 0.1
	DefaultGuidanceScale   float32 = 1.0
	DefaultMaxNumSentences         = 1
	DefaultSilenceScale    float32 = 0.2
)

// OnnxConfig holds the ONNX Runtime settings shared by every model family.
type OnnxConfig struct {
	Provider         string           `yaml:"provider,omitempty" json:"provider,omitempty"`
	ProviderResolver ProviderResolver `yaml:"-" json:"-"`
	NumThreads       int              `yaml:"num_threads,omitempty" json:"num_threads,omitempty"`
	Debug            bool             `yaml:"debug,omitempty" json:"debug,omitempty"`
}

// CommonTtsConfig holds the TTS settings that are independent of the model.
type CommonTtsConfig struct {
	MaxNumSentences int      `yaml:"max_num_sentences,omitempty" json:"max_num_sentences,omitempty"`
	RuleFsts        []string `yaml:"rule_fsts,omitempty" json:"rule_fsts,omitempty"`
	RuleFars        []string `yaml:"rule_fars,omitempty" json:"rule_fars,omitempty"`
	SilenceScale    float32  `yaml:"silence_scale,omitempty" json:"silence_scale,omitempty"`
}

// ZipVoiceConfig configures a [ZipVoiceTTS]. Zero hyperparameters take the
// Default* values.
type ZipVoiceConfig struct {
	Tokens  string `yaml:"tokens" json:"tokens"`
	Encoder string `yaml:"encoder" json:"encoder"`
	Decoder string `yaml:"decoder" json:"decoder"`
	Vocoder string `yaml:"vocoder" json:"vocoder"`
	DataDir string `yaml:"data_dir,omitempty" json:"data_dir,omitempty"`
	Lexicon string `yaml:"lexicon,omitempty" json:"lexicon,omitempty"`

	FeatScale     float32 `yaml:"feat_scale,omitempty" json:"feat_scale,omitempty"`
	TShift        float32 `yaml:"t_shift,omitempty" json:"t_shift,omitempty"`
	TargetRMS     float32 `yaml:"target_rms,omitempty" json:"target_rms,omitempty"`
	GuidanceScale float32 `yaml:"guidance_scale,omitempty" json:"guidance_scale,omitempty"`

	Onnx   OnnxConfig      `yaml:"onnx,omitempty" json:"onnx,omitempty"`
	Common CommonTtsConfig `yaml:"common,omitempty" json:"common,omitempty"`

	// Logger receives debug logs. Nil uses slog.Default().
	Logger *slog.Logger `yaml:"-" json:"-"`
}

func orDefault(v, def float32) float32 {
	if v == 0 {
		return def
	}
	return v
}

func (c ZipVoiceConfig) native() *nativeZipVoiceConfig {
	n := &nativeZipVoiceConfig{
		Tokens:  c.Tokens,
		Encoder: c.Encoder,
		Decoder: c.Decoder,
		Vocoder: c.Vocoder,
		DataDir: c.DataDir,
		Lexicon: c.Lexicon,

		FeatScale:     orDefault(c.FeatScale, DefaultFeatScale),
		TShift:        orDefault(c.TShift, DefaultTShift),
		TargetRMS:     orDefault(c.TargetRMS, DefaultTargetRMS),
		GuidanceScale: orDefault(c.GuidanceScale, DefaultGuidanceScale),

		NumThreads: c.Onnx.NumThreads,
		Debug:      c.Onnx.Debug,
		Provider:   resolveProvider(c.Onnx.Provider, c.Onnx.ProviderResolver),

		MaxNumSentences: c.Common.MaxNumSentences,
		RuleFsts:        strings.Join(c.Common.RuleFsts, ","),
		RuleFars:        strings.Join(c.Common.RuleFars, ","),
		SilenceScale:    orDefault(c.Common.SilenceScale, DefaultSilenceScale),
	}
	if n.NumThreads <= 0 {
		n.NumThreads = 1
	}
	if n.MaxNumSentences <= 0 {
		n.MaxNumSentences = DefaultMaxNumSentences
	}
	return n
}

// Fingerprint is a stable digest of everything in c that shapes the
// generated audio: model files and hyperparameters after defaults are
// applied. The execution provider, thread count, debug flag and logger are
// left out.
func (c ZipVoiceConfig) Fingerprint() string {
	c.Onnx = OnnxConfig{Provider: "-"}
	n := c.native()
	n.Provider, n.NumThreads = "", 0
	b, err := msgpack.Marshal(n)
	if err != nil {
		panic(fmt.Sprintf("sherpa: fingerprint: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// GenerateRequest is one ZipVoice synthesis call. PromptSamples is the
// reference speech whose voice is cloned and PromptText is its transcript.
type GenerateRequest struct {
	Text             string    `yaml:"text" json:"text"`
	PromptText       string    `yaml:"prompt_text" json:"prompt_text"`
	PromptSamples    []float32 `yaml:"-" json:"-"`
	PromptSampleRate int       `yaml:"-" json:"-"`
	Speed            float32   `yaml:"speed" json:"speed"`
	NumSteps         int       `yaml:"num_steps" json:"num_steps"`
}

func (r *GenerateRequest) validate() error {
	if r.Text == "" {
		return fmt.Errorf("%w: empty text", ErrGenerationFailed)
	}
	if r.NumSteps < 1 {
		return fmt.Errorf("%w: num_steps must be >= 1, got %d", ErrGenerationFailed, r.NumSteps)
	}
	if r.Speed <= 0 {
		return fmt.Errorf("%w: speed must be > 0, got %g", ErrGenerationFailed, r.Speed)
	}
	if len(r.PromptSamples) > 0 && r.PromptSampleRate <= 0 {
		return fmt.Errorf("%w: invalid prompt sample rate %d", ErrGenerationFailed, r.PromptSampleRate)
	}
	return nil
}

// GeneratedAudio is mono synthesized speech.
type GeneratedAudio struct {
	Samples    []float32 `msgpack:"samples" json:"-"`
	SampleRate int       `msgpack:"sample_rate" json:"sample_rate"`
	// DurationSeconds is len(Samples)/SampleRate, truncated.
	DurationSeconds int `msgpack:"duration" json:"duration_seconds"`
}

// Duration returns the exact playback length.
func (a *GeneratedAudio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(a.Samples)) * time.Second / time.Duration(a.SampleRate)
}

// ZipVoiceTTS owns a native offline TTS instance loaded with a ZipVoice
// model.
type ZipVoiceTTS struct {
	mu     sync.Mutex
	native ttsNative
	logger *slog.Logger
}

// NewZipVoiceTTS loads the model described by cfg.
func NewZipVoiceTTS(cfg ZipVoiceConfig) (*ZipVoiceTTS, error) {
	nc := cfg.native()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	native := nativeBackend.CreateZipVoiceTTS(nc)
	if native == nil {
		if !nativeBackend.Available() {
			return nil, fmt.Errorf("%w: %w", ErrCreationFailed, ErrNativeUnavailable)
		}
		return nil, fmt.Errorf("%w: zipvoice tts (encoder %q, provider %q)", ErrCreationFailed, nc.Encoder, nc.Provider)
	}

	t := &ZipVoiceTTS{native: native, logger: logger}
	runtime.SetFinalizer(t, (*ZipVoiceTTS).Close)

	if nc.Debug {
		logger.Debug("sherpa: zipvoice tts created",
			"provider", nc.Provider,
			"threads", nc.NumThreads,
			"sample_rate", native.SampleRate())
	}
	return t, nil
}

// SampleRate returns the output sample rate. Returns 0 after Close.
func (t *ZipVoiceTTS) SampleRate() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.native == nil {
		return 0
	}
	return t.native.SampleRate()
}

// Generate synthesizes req.Text in the voice of the prompt.
func (t *ZipVoiceTTS) Generate(req GenerateRequest) (*GeneratedAudio, error) {
	return t.generate(context.Background(), req)
}

// GenerateContext is Generate with an external deadline. If ctx ends first
// it returns ctx.Err(). A call still waiting for the handle when ctx ends
// never reaches the model; one already generating finishes in the
// background and its buffer is released then.
func (t *ZipVoiceTTS) GenerateContext(ctx context.Context, req GenerateRequest) (*GeneratedAudio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type outcome struct {
		audio *GeneratedAudio
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		audio, err := t.generate(ctx, req)
		ch <- outcome{audio, err}
	}()

	select {
	case o := <-ch:
		return o.audio, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *ZipVoiceTTS) generate(ctx context.Context, req GenerateRequest) (*GeneratedAudio, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.native == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	raw := t.native.Generate(req.Text, req.PromptText, req.PromptSamples, req.PromptSampleRate, req.Speed, req.NumSteps)
	if raw == nil {
		return nil, fmt.Errorf("%w: native generate returned null", ErrGenerationFailed)
	}
	defer raw.release()

	switch {
	case raw.n < 0:
		return nil, fmt.Errorf("%w: negative sample count %d", ErrGenerationFailed, raw.n)
	case raw.n > 0 && raw.samples == nil:
		return nil, fmt.Errorf("%w: null samples for %d-sample result", ErrGenerationFailed, raw.n)
	case raw.sampleRate <= 0:
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrGenerationFailed, raw.sampleRate)
	}

	samples := copyFloats(raw.samples, raw.n)
	audio := &GeneratedAudio{
		Samples:         samples,
		SampleRate:      raw.sampleRate,
		DurationSeconds: len(samples) / raw.sampleRate,
	}
	t.logger.Debug("sherpa: zipvoice generated",
		"chars", len(req.Text),
		"samples", len(samples),
		"audio", audio.Duration(),
		"elapsed", time.Since(start))
	return audio, nil
}

// Close releases the native instance. Safe to call multiple times.
func (t *ZipVoiceTTS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.native != nil {
		t.native.Destroy()
		t.native = nil
		runtime.SetFinalizer(t, nil)
	}
	return nil
}
