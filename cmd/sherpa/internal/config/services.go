package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/haivivi/sherpa/pkg/sherpa"
	"github.com/haivivi/sherpa/pkg/storage"
)

// Service file names within a context.
const (
	SeparationService = "separation"
	ZipVoiceService   = "zipvoice"
	CacheService      = "cache"
	StorageService    = "storage"
)

// Separation is the contents of separation.yaml. Exactly one of Spleeter
// and UVR must be set.
type Separation struct {
	Spleeter   *sherpa.SpleeterModel `yaml:"spleeter,omitempty" json:"spleeter,omitempty"`
	UVR        *sherpa.UVRModel      `yaml:"uvr,omitempty" json:"uvr,omitempty"`
	NumThreads int                   `yaml:"num_threads,omitempty" json:"num_threads,omitempty"`
	Provider   string                `yaml:"provider,omitempty" json:"provider,omitempty"`
	Debug      bool                  `yaml:"debug,omitempty" json:"debug,omitempty"`
}

// Model returns the selected model.
func (s *Separation) Model() (sherpa.SeparationModel, error) {
	switch {
	case s.Spleeter != nil && s.UVR != nil:
		return nil, errors.New("separation: both spleeter and uvr are configured")
	case s.Spleeter != nil:
		return *s.Spleeter, nil
	case s.UVR != nil:
		return *s.UVR, nil
	default:
		return nil, errors.New("separation: no model configured (set spleeter or uvr)")
	}
}

// ModelID identifies the configured model in cache keys.
func (s *Separation) ModelID() string {
	switch {
	case s.Spleeter != nil:
		return fmt.Sprintf("spleeter:%s:%s", s.Spleeter.Vocals, s.Spleeter.Accompaniment)
	case s.UVR != nil:
		return "uvr:" + s.UVR.Model
	default:
		return ""
	}
}

// SherpaConfig converts the file contents to a binding config.
func (s *Separation) SherpaConfig() (sherpa.SeparationConfig, error) {
	m, err := s.Model()
	if err != nil {
		return sherpa.SeparationConfig{}, err
	}
	return sherpa.SeparationConfig{
		Model:      m,
		NumThreads: s.NumThreads,
		Provider:   s.Provider,
		Debug:      s.Debug,
	}, nil
}

// ZipVoice is the contents of zipvoice.yaml.
type ZipVoice = sherpa.ZipVoiceConfig

// ZipVoiceModelID identifies a ZipVoice model and its synthesis settings
// in cache keys.
func ZipVoiceModelID(c *ZipVoice) string {
	return "zipvoice:" + c.Fingerprint()
}

// Cache is the contents of cache.yaml.
type Cache struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Dir defaults to ~/.sherpa/cache.
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
	// TTL is a Go duration string ("24h"). Empty keeps entries forever.
	TTL string `yaml:"ttl,omitempty" json:"ttl,omitempty"`
}

// ParseTTL returns the configured TTL.
func (c *Cache) ParseTTL() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("cache: invalid ttl %q: %w", c.TTL, err)
	}
	return d, nil
}

// Storage is the contents of storage.yaml.
type Storage struct {
	// Output is the default output location (directory or s3://bucket/prefix).
	Output string            `yaml:"output,omitempty" json:"output,omitempty"`
	S3     storage.S3Options `yaml:"s3,omitempty" json:"s3,omitempty"`
}
