package image

import (
	"bytes"
	"image"
	"sync/atomic"
)

func exact(reference *image.NRGBA, incoming *image.NRGBA) float64 {
	width := incoming.Rect.Dx()
	height := incoming.Rect.Dy()

	var differs atomic.Bool
	splitRows(height, func(startY int, endY int) {
		for y := startY; y < endY && !differs.Load(); y++ {
			refRow := reference.Pix[reference.PixOffset(0, y) : reference.PixOffset(0, y)+width*4]
			incRow := incoming.Pix[incoming.PixOffset(0, y) : incoming.PixOffset(0, y)+width*4]
			if !bytes.Equal(refRow, incRow) {
				differs.Store(true)
			}
		}
	})

	if differs.Load() {
		return 1
	}
	return 0
}
