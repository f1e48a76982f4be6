package tiling

import (
	"context"
	"fmt"
	"image"
)

type IncompleteTilingError struct {
	I int
	J int
}

func (e *IncompleteTilingError) Error() string {
	return fmt.Sprintf("tiling is incomplete: no tile at (%d, %d)", e.I, e.J)
}

// Loader resolves a tile name to its decoded pixels.
type Loader func(ctx context.Context, name string) (image.Image, error)

// Assemble lays the tiles of t out into one image. Column widths come from
// the first row and row heights from the first column; pixels not covered by
// a tile stay fully transparent.
func Assemble(ctx context.Context, t *Tiling, load Loader) (*image.NRGBA, error) {
	for i := 0; i < t.Width(); i++ {
		for j := 0; j < t.Height(); j++ {
			if t.Get(i, j) == "" {
				return nil, &IncompleteTilingError{I: i, J: j}
			}
		}
	}

	tiles := make([][]*image.NRGBA, t.Width())
	for i := range tiles {
		tiles[i] = make([]*image.NRGBA, t.Height())
		for j := range tiles[i] {
			name := t.Get(i, j)
			img, err := load(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to load tile %s: %w", name, err)
			}
			tiles[i][j] = toNRGBA(img)
		}
	}

	xs := make([]int, t.Width()+1)
	for i := 0; i < t.Width(); i++ {
		xs[i+1] = xs[i] + tiles[i][0].Rect.Dx()
	}
	ys := make([]int, t.Height()+1)
	for j := 0; j < t.Height(); j++ {
		ys[j+1] = ys[j] + tiles[0][j].Rect.Dy()
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, xs[t.Width()], ys[t.Height()]))
	for i := 0; i < t.Width(); i++ {
		for j := 0; j < t.Height(); j++ {
			copyPixels(canvas, image.Pt(xs[i], ys[j]), tiles[i][j])
		}
	}

	return canvas, nil
}

// copyPixels copies src verbatim, clipped to dst, so straight alpha survives untouched.
func copyPixels(dst *image.NRGBA, at image.Point, src *image.NRGBA) {
	r := image.Rectangle{Min: at, Max: at.Add(src.Rect.Size())}.Intersect(dst.Rect)
	if r.Empty() {
		return
	}
	rowBytes := r.Dx() * 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		srcOffset := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y-at.Y)
		dstOffset := dst.PixOffset(r.Min.X, y)
		copy(dst.Pix[dstOffset:dstOffset+rowBytes], src.Pix[srcOffset:srcOffset+rowBytes])
	}
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}

	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return n
}
