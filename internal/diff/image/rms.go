package image

import (
	"image"
	"math"
	"sync"
)

type histogram [3][256]int64

// rootMeanSquare builds one 256-bin histogram per colour channel of the
// absolute differences and returns sqrt(sum(count * bin^2) / pixels).
func rootMeanSquare(reference *image.NRGBA, incoming *image.NRGBA) float64 {
	width := incoming.Rect.Dx()
	height := incoming.Rect.Dy()
	if width == 0 || height == 0 {
		return 0
	}

	var mu sync.Mutex
	var total histogram
	splitRows(height, func(startY int, endY int) {
		var local histogram
		for y := startY; y < endY; y++ {
			refRow := reference.Pix[reference.PixOffset(0, y):]
			incRow := incoming.Pix[incoming.PixOffset(0, y):]
			for x := 0; x < width; x++ {
				o := x * 4
				for c := 0; c < 3; c++ {
					local[c][absDiff(refRow[o+c], incRow[o+c])]++
				}
			}
		}

		mu.Lock()
		defer mu.Unlock()
		for c := range total {
			for bin := range total[c] {
				total[c][bin] += local[c][bin]
			}
		}
	})

	var sumOfSquares float64
	for c := range total {
		for bin, count := range total[c] {
			sumOfSquares += float64(count) * float64(bin) * float64(bin)
		}
	}

	return math.Sqrt(sumOfSquares / float64(width*height))
}

func absDiff(a uint8, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
