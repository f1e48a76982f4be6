package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"screenshot-tests/internal/storage"
	"screenshot-tests/internal/tiling"

	"github.com/go-logr/logr"
)

// DefaultMaxPixels bounds the area of a single capture. Zero or a negative
// value disables the check.
const DefaultMaxPixels = 10_000_000

// Surface is something that can be measured and rendered a viewport at a time.
type Surface interface {
	// Size returns the full extent of the surface in pixels.
	Size(ctx context.Context) (image.Point, error)
	// Render draws the given viewport of the surface into a buffer of exactly that size.
	Render(ctx context.Context, viewport image.Rectangle) (*image.NRGBA, error)
}

type CaptureError struct {
	Name   string
	Reason string
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("failed to capture %s: %s", e.Name, e.Reason)
}

// Coordinator splits a surface into tiles and writes each tile to storage.
type Coordinator struct {
	TileSize  int
	MaxPixels int
	Storage   storage.Storage
	// Owner, when set, is the goroutine every capture runs on.
	Owner *Owner
	Log   logr.Logger
}

func NewCoordinator(s storage.Storage, owner *Owner) *Coordinator {
	return &Coordinator{
		TileSize:  tiling.DefaultTileSize,
		MaxPixels: DefaultMaxPixels,
		Storage:   s,
		Owner:     owner,
		Log:       logr.Discard(),
	}
}

// Capture renders surface tile by tile under name and returns the resulting
// tiling. A surface that is empty or too large yields a *CaptureError.
func (c *Coordinator) Capture(ctx context.Context, surface Surface, name string) (*tiling.Tiling, error) {
	if c.Owner == nil {
		return c.capture(ctx, surface, name)
	}

	var t *tiling.Tiling
	err := c.Owner.Run(ctx, func(ctx context.Context) error {
		var err error
		t, err = c.capture(ctx, surface, name)
		return err
	})
	return t, err
}

func (c *Coordinator) capture(ctx context.Context, surface Surface, name string) (*tiling.Tiling, error) {
	size, err := surface.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to measure surface: %w", err)
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, &CaptureError{Name: name, Reason: "View is not measured, call Measure() before capturing"}
	}
	if c.MaxPixels > 0 && int64(size.X)*int64(size.Y) > int64(c.MaxPixels) {
		return nil, &CaptureError{Name: name, Reason: fmt.Sprintf("View too large: (%d, %d)", size.X, size.Y)}
	}

	tileSize := c.TileSize
	if tileSize <= 0 {
		tileSize = tiling.DefaultTileSize
	}

	maxI := tiling.Count(size.X, tileSize)
	maxJ := tiling.Count(size.Y, tileSize)
	t := tiling.New(maxI, maxJ)

	for i := 0; i < maxI; i++ {
		for j := 0; j < maxJ; j++ {
			viewport := image.Rect(i*tileSize, j*tileSize, min((i+1)*tileSize, size.X), min((j+1)*tileSize, size.Y))
			tileName := tiling.TileName(name, i, j)

			if err := c.writeTile(ctx, surface, viewport, tileName); err != nil {
				return nil, err
			}
			t.Set(i, j, tileName)
		}
	}

	c.Log.V(1).Info("captured surface", "name", name, "width", size.X, "height", size.Y, "tiles", maxI*maxJ)
	return t, nil
}

func (c *Coordinator) writeTile(ctx context.Context, surface Surface, viewport image.Rectangle, tileName string) error {
	img, err := surface.Render(ctx, viewport)
	if err != nil {
		return fmt.Errorf("failed to render tile %s: %w", tileName, err)
	}
	if img.Rect.Size() != viewport.Size() {
		return fmt.Errorf("failed to render tile %s: got %v pixels for viewport %v", tileName, img.Rect.Size(), viewport.Size())
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		return fmt.Errorf("failed to encode tile %s: %w", tileName, err)
	}
	if _, err := c.Storage.Put(ctx, tiling.FileName(tileName), buffer.Bytes()); err != nil {
		return fmt.Errorf("failed to write tile %s: %w", tileName, err)
	}
	return nil
}
