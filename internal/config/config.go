// Package config reads the optional YAML file shared by the command line tools.
package config

import (
	"context"
	"fmt"
	"os"
	"screenshot-tests/internal/capture"
	diffimage "screenshot-tests/internal/diff/image"
	"screenshot-tests/internal/retry"
	"screenshot-tests/internal/storage"
	"screenshot-tests/internal/tiling"
	"time"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Capture    CaptureConfig    `yaml:"capture"`
	Storage    StorageConfig    `yaml:"storage"`
	Comparison ComparisonConfig `yaml:"comparison"`
	Retry      RetryConfig      `yaml:"retry"`
}

type CaptureConfig struct {
	TileSize  int `yaml:"tileSize"`
	MaxPixels int `yaml:"maxPixels"`
}

type StorageConfig struct {
	// Recorded receives tiles, dumps and metadata.json from capture runs.
	Recorded  Location `yaml:"recorded"`
	Reference Location `yaml:"reference"`
	Failures  Location `yaml:"failures"`
}

// Location is a directory, or a bucket and prefix when Bucket is set.
type Location struct {
	Directory string `yaml:"directory"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

type ComparisonConfig struct {
	Method      string   `yaml:"method"`
	MaxDistance *float64 `yaml:"maxDistance"`
	HShift      int      `yaml:"hShift"`
	VShift      int      `yaml:"vShift"`
	Tolerance   float64  `yaml:"tolerance"`
}

type RetryConfig struct {
	On         string        `yaml:"on"`
	Base       time.Duration `yaml:"base"`
	Max        time.Duration `yaml:"max"`
	MaxRetries uint          `yaml:"maxRetries"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.defaults()
	return c
}

// LoadFile reads a YAML configuration file. Unset fields take their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	c.defaults()

	if _, err := c.Method(); err != nil {
		return nil, err
	}
	if _, err := retry.NewRetryOnFromString(c.Retry.On); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) defaults() {
	if c.Capture.TileSize <= 0 {
		c.Capture.TileSize = tiling.DefaultTileSize
	}
	if c.Capture.MaxPixels == 0 {
		c.Capture.MaxPixels = capture.DefaultMaxPixels
	}
	if c.Storage.Recorded.Bucket == "" && c.Storage.Recorded.Directory == "" {
		c.Storage.Recorded.Directory = "screenshots"
	}
	if c.Storage.Reference.Bucket == "" && c.Storage.Reference.Directory == "" {
		c.Storage.Reference.Directory = "screenshots/reference"
	}
	if c.Storage.Failures.Bucket == "" && c.Storage.Failures.Directory == "" {
		c.Storage.Failures.Directory = "screenshots/failures"
	}
	if c.Comparison.Method == "" {
		c.Comparison.Method = string(diffimage.KindShiftTolerant)
	}
	if c.Comparison.MaxDistance == nil {
		d := diffimage.DefaultMaxDistance
		c.Comparison.MaxDistance = &d
	}
	if c.Retry.On == "" {
		c.Retry.On = "gateway-error,connect-failure,throttling"
	}
	if c.Retry.Base <= 0 {
		c.Retry.Base = retry.StorageBackOff.Base
	}
	if c.Retry.Max <= 0 {
		c.Retry.Max = retry.StorageBackOff.Max
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = retry.StorageBackOff.MaxRetries
	}
}

// Method converts the comparison section into a validated method.
func (c *Config) Method() (diffimage.Method, error) {
	kind, err := diffimage.ParseKind(c.Comparison.Method)
	if err != nil {
		return diffimage.Method{}, err
	}

	var m diffimage.Method
	switch kind {
	case diffimage.KindRMS:
		m = diffimage.RMS(c.Comparison.Tolerance)
	case diffimage.KindExact:
		m = diffimage.Exact()
	default:
		maxDistance := diffimage.DefaultMaxDistance
		if c.Comparison.MaxDistance != nil {
			maxDistance = *c.Comparison.MaxDistance
		}
		m = diffimage.ShiftTolerant(maxDistance, c.Comparison.HShift, c.Comparison.VShift)
		m.Tolerance = c.Comparison.Tolerance
	}
	if err := m.Validate(); err != nil {
		return diffimage.Method{}, err
	}
	return m, nil
}

// Open returns the storage behind l. Buckets are wrapped with the retry policy.
func (c *Config) Open(ctx context.Context, l Location, log logr.Logger) (storage.Storage, error) {
	if l.Bucket == "" {
		return storage.NewFileStorage(ctx, storage.FileConfig{Directory: l.Directory})
	}

	s, err := storage.NewS3Storage(ctx, storage.S3Config{Bucket: l.Bucket, Prefix: l.Prefix})
	if err != nil {
		return nil, err
	}
	on, err := retry.NewRetryOnFromString(c.Retry.On)
	if err != nil {
		return nil, err
	}
	strategy := retry.BackOff{Base: c.Retry.Base, Max: c.Retry.Max, MaxRetries: c.Retry.MaxRetries}
	return storage.WithRetry(s, strategy, on, log.WithName("storage").WithValues("bucket", l.Bucket, "prefix", l.Prefix)), nil
}
