package config_test

import (
	"context"
	"os"
	"path/filepath"
	"screenshot-tests/internal/config"
	diffimage "screenshot-tests/internal/diff/image"
	"screenshot-tests/internal/storage"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	c := config.Default()
	if diff := cmp.Diff(config.CaptureConfig{TileSize: 512, MaxPixels: 10_000_000}, c.Capture); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	m, err := c.Method()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(diffimage.DefaultMethod(), m); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenshot.yaml")
	data := `
capture:
  tileSize: 256
  maxPixels: -1
storage:
  reference:
    bucket: golden
    prefix: web/reference
comparison:
  method: shift-tolerant
  maxDistance: 0
  hShift: 2
  vShift: 1
  tolerance: 3
retry:
  on: 5xx,SlowDown
  base: 50ms
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if diff := cmp.Diff(config.CaptureConfig{TileSize: 256, MaxPixels: -1}, c.Capture); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	wantStorage := config.StorageConfig{
		Recorded:  config.Location{Directory: "screenshots"},
		Reference: config.Location{Bucket: "golden", Prefix: "web/reference"},
		Failures:  config.Location{Directory: "screenshots/failures"},
	}
	if diff := cmp.Diff(wantStorage, c.Storage); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	m, err := c.Method()
	if err != nil {
		t.Fatal(err)
	}
	want := diffimage.Method{Kind: diffimage.KindShiftTolerant, MaxDistance: 0, HShift: 2, VShift: 1, Tolerance: 3}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(50*time.Millisecond, c.Retry.Base); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(uint(5), c.Retry.MaxRetries); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown method", "comparison:\n  method: perceptual\n"},
		{"distance out of range", "comparison:\n  maxDistance: 2\n"},
		{"empty retry entry", "retry:\n  on: 5xx,,throttling\n"},
		{"not yaml", "capture: [\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := config.Parse([]byte(tt.data)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestOpenDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := config.Default().Open(ctx, config.Location{Directory: dir}, logr.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, "a.png", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if ok, err := storage.Exists(ctx, s, "a.png"); err != nil || !ok {
		t.Errorf("Expected a.png to exist, got %v %v", ok, err)
	}
}
