package gpuvision

import "fmt"

// Tolerance is the largest per-channel difference, on the 0..255 scale,
// expected between the accelerated and reference blur outputs.
const Tolerance = 2

// Comparison summarizes how two same-sized images differ.
type Comparison struct {
	Pixels     int
	Differing  int
	MaxAbsDiff int
}

// DifferingFraction is the share of pixels with any channel differing.
func (c Comparison) DifferingFraction() float64 {
	if c.Pixels == 0 {
		return 0
	}
	return float64(c.Differing) / float64(c.Pixels)
}

// Compare reports the per-pixel agreement of two images with identical
// geometry.
func Compare(a, b *Image) (Comparison, error) {
	if err := a.check("first"); err != nil {
		return Comparison{}, err
	}
	if err := b.check("second"); err != nil {
		return Comparison{}, err
	}
	if a.Width != b.Width || a.Height != b.Height || a.Channels != b.Channels {
		return Comparison{}, fmt.Errorf("compare %dx%dx%d with %dx%dx%d: %w",
			a.Width, a.Height, a.Channels, b.Width, b.Height, b.Channels, ErrDimensionMismatch)
	}

	res := Comparison{Pixels: a.Width * a.Height}
	for y := 0; y < a.Height; y++ {
		ra, rb := a.Row(y), b.Row(y)
		for x := 0; x < a.Width; x++ {
			differs := false
			for c := 0; c < a.Channels; c++ {
				i := x*a.Channels + c
				d := int(ra[i]) - int(rb[i])
				if d < 0 {
					d = -d
				}
				if d > 0 {
					differs = true
				}
				res.MaxAbsDiff = max(res.MaxAbsDiff, d)
			}
			if differs {
				res.Differing++
			}
		}
	}
	return res, nil
}

// CountNonZero returns the number of set pixels in a single-channel image.
func CountNonZero(img *Image) int {
	n := 0
	for y := 0; y < img.Height; y++ {
		for _, v := range img.Row(y) {
			if v != 0 {
				n++
			}
		}
	}
	return n
}
