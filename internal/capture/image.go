package capture

import (
	"context"
	"fmt"
	"image"
	diffimage "screenshot-tests/internal/diff/image"

	"golang.org/x/net/html"
)

// ImageSurface serves an already rendered image as a surface.
type ImageSurface struct {
	img *image.NRGBA
	// Document, when set, is reported as the surface hierarchy.
	Document *html.Node
}

func NewImageSurface(img image.Image) *ImageSurface {
	return &ImageSurface{
		img: diffimage.ToNRGBA(img),
	}
}

func (s *ImageSurface) Size(ctx context.Context) (image.Point, error) {
	return s.img.Rect.Size(), nil
}

func (s *ImageSurface) Render(ctx context.Context, viewport image.Rectangle) (*image.NRGBA, error) {
	if !viewport.In(s.img.Rect) {
		return nil, fmt.Errorf("viewport %v outside surface %v", viewport, s.img.Rect)
	}

	out := image.NewNRGBA(image.Rect(0, 0, viewport.Dx(), viewport.Dy()))
	rowBytes := viewport.Dx() * 4
	for y := 0; y < viewport.Dy(); y++ {
		srcOffset := s.img.PixOffset(viewport.Min.X, viewport.Min.Y+y)
		copy(out.Pix[out.PixOffset(0, y):out.PixOffset(0, y)+rowBytes], s.img.Pix[srcOffset:srcOffset+rowBytes])
	}
	return out, nil
}

func (s *ImageSurface) Hierarchy(ctx context.Context) (*html.Node, error) {
	return s.Document, nil
}
