//go:build !purego && !js

package gpuvision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// hostBackend runs the reference path on OpenCV through gocv. The Mats are
// scratch storage reused across frames.
type hostBackend struct {
	hsv  gocv.Mat
	blur gocv.Mat
	gray gocv.Mat
	mask gocv.Mat
}

func newHostBackend() backend {
	return &hostBackend{
		hsv:  gocv.NewMat(),
		blur: gocv.NewMat(),
		gray: gocv.NewMat(),
		mask: gocv.NewMat(),
	}
}

func (b *hostBackend) name() string { return "opencv" }

// setKernel is a no-op: gocv.GaussianBlur takes the kernel size per call.
func (b *hostBackend) setKernel(int) error { return nil }

func (b *hostBackend) process(src *Image, ksize int, rng ColorRange, mask, gray *Image) error {
	in, err := wrapImage(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := gocv.CvtColor(in, &b.hsv, gocv.ColorBGRToHSV); err != nil {
		return fmt.Errorf("convert to hsv: %w", err)
	}
	if err := blurMat(b.hsv, &b.blur, ksize); err != nil {
		return err
	}
	selected, err := thresholdMat(b.blur, rng, &b.mask)
	if err != nil {
		return err
	}
	if gray != nil {
		if err := gocv.CvtColor(in, &b.gray, gocv.ColorBGRToGray); err != nil {
			return fmt.Errorf("convert to gray: %w", err)
		}
	}

	if err := storeMask(b.mask, selected, mask); err != nil {
		return err
	}
	if gray != nil {
		if err := storeMat(b.gray, gray); err != nil {
			return fmt.Errorf("gray: %w", err)
		}
	}
	return nil
}

// blurMat applies the Gaussian with sigma derived from ksize and a
// reflect-101 border.
func blurMat(src gocv.Mat, dst *gocv.Mat, ksize int) error {
	if err := gocv.GaussianBlur(src, dst, image.Pt(ksize, ksize), 0, 0, gocv.BorderReflect101); err != nil {
		return fmt.Errorf("gaussian blur %d: %w", ksize, err)
	}
	return nil
}

func (b *hostBackend) close() {
	b.hsv.Close()
	b.blur.Close()
	b.gray.Close()
	b.mask.Close()
}

// wrapImage exposes a BGR Image as a CV_8UC3 Mat.
func wrapImage(src *Image) (gocv.Mat, error) {
	m, err := gocv.NewMatFromBytes(src.Height, src.Width, gocv.MatTypeCV8UC3, src.compact())
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("wrap source: %w", err)
	}
	return m, nil
}

// thresholdMat applies the inclusive HSV range to an 8-bit 3-channel Mat,
// writing the CV_8UC1 result into scratch. It reports false, leaving scratch
// untouched, when the range admits no pixel.
func thresholdMat(hsv gocv.Mat, rng ColorRange, scratch *gocv.Mat) (bool, error) {
	lo, hi, ok := rng.bounds()
	if !ok {
		return false, nil
	}
	if err := gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(float64(lo[0]), float64(lo[1]), float64(lo[2]), 0),
		gocv.NewScalar(float64(hi[0]), float64(hi[1]), float64(hi[2]), 0),
		scratch); err != nil {
		return false, fmt.Errorf("in range: %w", err)
	}
	return true, nil
}

// storeMask copies a thresholdMat result into mask, clearing it when nothing
// was selected.
func storeMask(scratch gocv.Mat, selected bool, mask *Image) error {
	if !selected {
		mask.zero()
		return nil
	}
	if err := storeMat(scratch, mask); err != nil {
		return fmt.Errorf("mask: %w", err)
	}
	return nil
}

// shaped is satisfied by both host and device matrices.
type shaped interface {
	Empty() bool
	Rows() int
	Cols() int
	Channels() int
}

// checkStage verifies a device stage produced a matrix of the expected shape.
// The gocv CUDA calls report failures only through their outputs, so the
// accelerated backend checks each stage with it.
func checkStage(stage string, m shaped, rows, cols, channels int) error {
	if m.Empty() || m.Rows() != rows || m.Cols() != cols || m.Channels() != channels {
		return fmt.Errorf("%s produced %dx%dx%d, want %dx%dx%d: %w",
			stage, m.Cols(), m.Rows(), m.Channels(), cols, rows, channels, ErrDeviceFailure)
	}
	return nil
}

// storeMat copies a continuous 8-bit Mat into dst.
func storeMat(m gocv.Mat, dst *Image) error {
	if m.Rows() != dst.Height || m.Cols() != dst.Width || m.Channels() != dst.Channels {
		return fmt.Errorf("mat %dx%dx%d does not fit %dx%dx%d: %w",
			m.Cols(), m.Rows(), m.Channels(), dst.Width, dst.Height, dst.Channels, ErrDimensionMismatch)
	}
	data, err := m.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("read mat: %w", err)
	}
	dst.storeCompact(data)
	return nil
}

// ReadImage loads a file into a BGR Image using OpenCV's decoders.
func ReadImage(path string) (*Image, error) {
	m := gocv.IMRead(path, gocv.IMReadColor)
	defer m.Close()
	if m.Empty() {
		return nil, fmt.Errorf("could not load image: %s", path)
	}

	img := NewImage(m.Cols(), m.Rows(), 3)
	if err := storeMat(m, img); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return img, nil
}
