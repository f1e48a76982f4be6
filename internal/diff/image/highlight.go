package image

import (
	"image"
	"image/color"
	"sync"
)

var highlight = color.NRGBA{R: 255, A: 255}

// RedHighlight copies incoming and paints every pixel that differs from the
// reference pixel at the same position, or has no reference pixel, pure red.
func RedHighlight(reference image.Image, incoming image.Image) *image.NRGBA {
	ref := ToNRGBA(reference)
	inc := ToNRGBA(incoming)

	out := image.NewNRGBA(inc.Rect)
	copy(out.Pix, inc.Pix)

	splitRows(inc.Rect.Dy(), func(startY int, endY int) {
		for y := startY; y < endY; y++ {
			for x := 0; x < inc.Rect.Dx(); x++ {
				if pixelDiffers(ref, inc, x, y) {
					out.SetNRGBA(x, y, highlight)
				}
			}
		}
	})

	return out
}

// DiffBounds returns the smallest rectangle, in incoming coordinates,
// containing every differing pixel. ok is false when nothing differs.
func DiffBounds(reference image.Image, incoming image.Image) (bounds image.Rectangle, ok bool) {
	ref := ToNRGBA(reference)
	inc := ToNRGBA(incoming)

	var mu sync.Mutex
	splitRows(inc.Rect.Dy(), func(startY int, endY int) {
		var local image.Rectangle
		found := false
		for y := startY; y < endY; y++ {
			for x := 0; x < inc.Rect.Dx(); x++ {
				if !pixelDiffers(ref, inc, x, y) {
					continue
				}
				p := image.Rect(x, y, x+1, y+1)
				if !found {
					local = p
					found = true
				} else {
					local = local.Union(p)
				}
			}
		}
		if !found {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if !ok {
			bounds = local
			ok = true
		} else {
			bounds = bounds.Union(local)
		}
	})

	return bounds, ok
}

func pixelDiffers(reference *image.NRGBA, incoming *image.NRGBA, x int, y int) bool {
	if !(image.Point{X: x, Y: y}).In(reference.Rect) {
		return true
	}
	a := reference.Pix[reference.PixOffset(x, y):]
	b := incoming.Pix[incoming.PixOffset(x, y):]
	return a[0] != b[0] || a[1] != b[1] || a[2] != b[2] || a[3] != b[3]
}
