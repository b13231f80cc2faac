package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/sherpa/pkg/sherpa"
)

// Key namespaces.
const (
	SeparationPrefix = "separation"
	ZipVoicePrefix   = "zipvoice"
)

// digest hashes the msgpack encoding of v.
func digest(v any) string {
	b, err := msgpack.Marshal(v)
	if err != nil {
		// Only plain structs of strings, ints and float slices are hashed.
		panic(fmt.Sprintf("cache: digest: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SeparationKey derives the cache key for separating samples with the model
// identified by model (e.g., its file paths).
func SeparationKey(model string, samples []float32, sampleRate, numChannels int) Key {
	return Key{SeparationPrefix, digest(struct {
		Model       string
		SampleRate  int
		NumChannels int
		Samples     []float32
	}{model, sampleRate, numChannels, samples})}
}

// ZipVoiceKey derives the cache key for synthesizing req with the model
// identified by model.
func ZipVoiceKey(model string, req sherpa.GenerateRequest) Key {
	return Key{ZipVoicePrefix, digest(struct {
		Model            string
		Text             string
		PromptText       string
		PromptSampleRate int
		Speed            float32
		NumSteps         int
		PromptSamples    []float32
	}{model, req.Text, req.PromptText, req.PromptSampleRate, req.Speed, req.NumSteps, req.PromptSamples})}
}

// PutSeparation stores res under key.
func PutSeparation(ctx context.Context, s Store, key Key, res *sherpa.SeparationResult) error {
	b, err := msgpack.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache: encode separation: %w", err)
	}
	return s.Set(ctx, key, b)
}

// GetSeparation loads the result stored under key. Returns ErrNotFound on
// a miss.
func GetSeparation(ctx context.Context, s Store, key Key) (*sherpa.SeparationResult, error) {
	b, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var res sherpa.SeparationResult
	if err := msgpack.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("cache: decode separation: %w", err)
	}
	return &res, nil
}

// PutAudio stores generated audio under key.
func PutAudio(ctx context.Context, s Store, key Key, a *sherpa.GeneratedAudio) error {
	b, err := msgpack.Marshal(a)
	if err != nil {
		return fmt.Errorf("cache: encode audio: %w", err)
	}
	return s.Set(ctx, key, b)
}

// GetAudio loads generated audio stored under key. Returns ErrNotFound on
// a miss.
func GetAudio(ctx context.Context, s Store, key Key) (*sherpa.GeneratedAudio, error) {
	b, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var a sherpa.GeneratedAudio
	if err := msgpack.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("cache: decode audio: %w", err)
	}
	return &a, nil
}
