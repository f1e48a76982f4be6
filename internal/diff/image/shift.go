package image

import (
	"image"
	"sync/atomic"
)

func shiftTolerant(reference *image.NRGBA, incoming *image.NRGBA, maxDistance float64, hShift int, vShift int) float64 {
	width := incoming.Rect.Dx()
	height := incoming.Rect.Dy()

	// distance^2 * 4 * 255^2, compared against the squared channel deltas directly.
	limit := maxDistance * maxDistance * 4 * 255 * 255

	var unmatched int64
	splitRows(height, func(startY int, endY int) {
		var local int64
		for y := startY; y < endY; y++ {
			for x := 0; x < width; x++ {
				if !matchInWindow(reference, incoming.Pix[incoming.PixOffset(x, y):], x, y, width, height, hShift, vShift, limit) {
					local++
				}
			}
		}
		atomic.AddInt64(&unmatched, local)
	})

	return float64(unmatched)
}

func matchInWindow(reference *image.NRGBA, pixel []uint8, x int, y int, width int, height int, hShift int, vShift int, limit float64) bool {
	if squaredDistance(reference.Pix[reference.PixOffset(x, y):], pixel) <= limit {
		return true
	}

	for ry := max(0, y-vShift); ry <= min(height-1, y+vShift); ry++ {
		for rx := max(0, x-hShift); rx <= min(width-1, x+hShift); rx++ {
			if squaredDistance(reference.Pix[reference.PixOffset(rx, ry):], pixel) <= limit {
				return true
			}
		}
	}
	return false
}

func squaredDistance(a []uint8, b []uint8) float64 {
	dr := int(a[0]) - int(b[0])
	dg := int(a[1]) - int(b[1])
	db := int(a[2]) - int(b[2])
	da := int(a[3]) - int(b[3])
	return float64(dr*dr + dg*dg + db*db + da*da)
}
