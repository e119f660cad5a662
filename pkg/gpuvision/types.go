package gpuvision

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch is returned when an output buffer does not match
	// the source dimensions or layout.
	ErrDimensionMismatch = errors.New("gpuvision: dimension mismatch")

	// ErrInvalidChannelCount is returned when the source is not a 3-channel image.
	ErrInvalidChannelCount = errors.New("gpuvision: invalid channel count")

	// ErrInvalidParameter is returned for negative blur sizes and malformed buffers.
	ErrInvalidParameter = errors.New("gpuvision: invalid parameter")

	// ErrPipelineClosed is returned by Process after Shutdown.
	ErrPipelineClosed = errors.New("gpuvision: pipeline is shut down")

	// ErrAcceleratorUnavailable is returned when the accelerated mode is
	// requested but no usable device exists in this build or host.
	ErrAcceleratorUnavailable = errors.New("gpuvision: accelerated device unavailable")

	// ErrDeviceFailure is returned when an accelerated stage leaves its
	// output empty or misshapen.
	ErrDeviceFailure = errors.New("gpuvision: device operation failed")
)

// ExecutionMode selects the code path used by a ThresholdPipeline.
type ExecutionMode int

const (
	// ModeReference runs every stage on the host processor.
	ModeReference ExecutionMode = iota
	// ModeAccelerated runs color conversion and blur on a GPU device.
	ModeAccelerated
)

func (m ExecutionMode) String() string {
	switch m {
	case ModeReference:
		return "reference"
	case ModeAccelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// ColorRange is an inclusive box in OpenCV 8-bit HSV space
// (H in [0, 180], S and V in [0, 255]).
type ColorRange struct {
	HMin, SMin, VMin float64
	HMax, SMax, VMax float64
}

// NewColorRange builds a range from per-channel bounds in H, S, V order.
func NewColorRange(hMin, sMin, vMin, hMax, sMax, vMax float64) ColorRange {
	return ColorRange{HMin: hMin, SMin: sMin, VMin: vMin, HMax: hMax, SMax: sMax, VMax: vMax}
}

func (r ColorRange) String() string {
	return fmt.Sprintf("H[%g,%g] S[%g,%g] V[%g,%g]", r.HMin, r.HMax, r.SMin, r.SMax, r.VMin, r.VMax)
}

// Empty reports whether no 8-bit pixel can satisfy the range.
func (r ColorRange) Empty() bool {
	_, _, ok := r.bounds()
	return !ok
}

// bounds converts the float bounds into the equivalent inclusive integer
// bounds over 0..255. ok is false when some channel admits no value, which
// covers min > max as well as bounds lying entirely outside 0..255.
func (r ColorRange) bounds() (lo, hi [3]uint8, ok bool) {
	mins := [3]float64{r.HMin, r.SMin, r.VMin}
	maxs := [3]float64{r.HMax, r.SMax, r.VMax}
	for c := 0; c < 3; c++ {
		if math.IsNaN(mins[c]) || math.IsNaN(maxs[c]) {
			return lo, hi, false
		}
		l := math.Max(math.Ceil(mins[c]), 0)
		h := math.Min(math.Floor(maxs[c]), 255)
		if l > h {
			return lo, hi, false
		}
		lo[c] = uint8(l)
		hi[c] = uint8(h)
	}
	return lo, hi, true
}

// MaxBlurSize is the largest accepted blur size (kernel side 255).
const MaxBlurSize = 127

// KernelSize returns the blur window side for a blur size: 2*blurSize+1.
// Callers validate blurSize against MaxBlurSize first.
func KernelSize(blurSize int) int {
	return 2*blurSize + 1
}
