package image

import (
	"fmt"
	"image"
	"math"
)

type Kind string

const (
	// KindShiftTolerant counts incoming pixels with no close enough reference
	// pixel inside a small search window.
	KindShiftTolerant Kind = "shift-tolerant"
	// KindRMS scores the root mean square of per-channel differences.
	KindRMS Kind = "rms"
	// KindExact scores 1 if any pixel differs and 0 otherwise.
	KindExact Kind = "exact"
)

// MaxDifference is the score of two images whose dimensions differ.
const MaxDifference = math.MaxFloat64

const DefaultMaxDistance = 0.004

// Method selects a comparison strategy and carries its parameters. Scores
// strictly greater than Tolerance are mismatches.
type Method struct {
	Kind Kind

	// MaxDistance is the normalized RGBA distance in [0, 1] under which two
	// pixels match. Shift-tolerant only.
	MaxDistance float64
	// HShift and VShift bound the search window. Shift-tolerant only.
	HShift int
	VShift int

	Tolerance float64
}

func ShiftTolerant(maxDistance float64, hShift int, vShift int) Method {
	return Method{
		Kind:        KindShiftTolerant,
		MaxDistance: maxDistance,
		HShift:      hShift,
		VShift:      vShift,
	}
}

func RMS(tolerance float64) Method {
	return Method{
		Kind:      KindRMS,
		Tolerance: tolerance,
	}
}

func Exact() Method {
	return Method{
		Kind: KindExact,
	}
}

func DefaultMethod() Method {
	return ShiftTolerant(DefaultMaxDistance, 0, 0)
}

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindShiftTolerant, KindRMS, KindExact:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown comparison method %q", s)
}

func (m Method) Validate() error {
	if _, err := ParseKind(string(m.Kind)); err != nil {
		return err
	}
	if m.MaxDistance < 0 || m.MaxDistance > 1 {
		return fmt.Errorf("maxDistance must be within [0, 1], got %v", m.MaxDistance)
	}
	if m.HShift < 0 || m.VShift < 0 {
		return fmt.Errorf("shift must not be negative, got h=%d v=%d", m.HShift, m.VShift)
	}
	if m.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %v", m.Tolerance)
	}
	return nil
}

// Compare scores how far incoming is from reference. Images of different
// dimensions score MaxDifference.
func (m Method) Compare(reference image.Image, incoming image.Image) float64 {
	if reference.Bounds().Size() != incoming.Bounds().Size() {
		return MaxDifference
	}

	ref := ToNRGBA(reference)
	inc := ToNRGBA(incoming)

	switch m.Kind {
	case KindRMS:
		return rootMeanSquare(ref, inc)
	case KindExact:
		return exact(ref, inc)
	default:
		return shiftTolerant(ref, inc, m.MaxDistance, m.HShift, m.VShift)
	}
}

func (m Method) Exceeds(score float64) bool {
	return score > m.Tolerance
}

func (m Method) String() string {
	switch m.Kind {
	case KindRMS:
		return fmt.Sprintf("%s(tolerance=%v)", m.Kind, m.Tolerance)
	case KindExact:
		return string(m.Kind)
	default:
		return fmt.Sprintf("%s(maxDistance=%v, hShift=%d, vShift=%d, tolerance=%v)", KindShiftTolerant, m.MaxDistance, m.HShift, m.VShift, m.Tolerance)
	}
}

// ToNRGBA returns img as straight-alpha pixels anchored at the origin.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
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
