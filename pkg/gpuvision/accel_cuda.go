//go:build cuda && !purego && !js

package gpuvision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/cuda"
)

func acceleratorDeviceCount() int {
	return cuda.GetCudaEnabledDeviceCount()
}

// cudaBackend converts and blurs on the GPU, then downloads the blurred HSV
// frame and thresholds it on the host. Device buffers are allocated on the
// first frame and kept until close. Kernels wider than the CUDA filter limit
// are blurred on the host after downloading the HSV frame.
type cudaBackend struct {
	gpuImage cuda.GpuMat
	gpuHSV   cuda.GpuMat
	gpuBlur  cuda.GpuMat
	gpuGray  cuda.GpuMat

	filter    cuda.GaussianFilter
	hasFilter bool
	allocated bool

	hsv  gocv.Mat
	blur gocv.Mat
	gray gocv.Mat
	mask gocv.Mat
}

func newAcceleratedBackend() (backend, error) {
	if n := acceleratorDeviceCount(); n <= 0 {
		return nil, fmt.Errorf("no CUDA devices: %w", ErrAcceleratorUnavailable)
	}
	return &cudaBackend{}, nil
}

func (b *cudaBackend) name() string { return "cuda" }

func (b *cudaBackend) allocate() {
	if b.allocated {
		return
	}
	b.gpuImage = cuda.NewGpuMat()
	b.gpuHSV = cuda.NewGpuMat()
	b.gpuBlur = cuda.NewGpuMat()
	b.gpuGray = cuda.NewGpuMat()
	b.hsv = gocv.NewMat()
	b.blur = gocv.NewMat()
	b.gray = gocv.NewMat()
	b.mask = gocv.NewMat()
	b.allocated = true
	Logger().Debug("allocated CUDA scratch buffers")
}

func (b *cudaBackend) setKernel(ksize int) error {
	if b.hasFilter {
		b.filter.Close()
		b.hasFilter = false
	}
	if !acceleratedKernelFits(ksize) {
		Logger().WithField("ksize", ksize).Debug("kernel wider than CUDA filter limit, blurring on host")
		return nil
	}
	b.filter = cuda.NewGaussianFilter(gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC3, image.Pt(ksize, ksize), 0)
	b.hasFilter = true
	return nil
}

func (b *cudaBackend) process(src *Image, ksize int, rng ColorRange, mask, gray *Image) error {
	b.allocate()

	in, err := wrapImage(src)
	if err != nil {
		return err
	}
	defer in.Close()

	rows, cols := src.Height, src.Width
	b.gpuImage.Upload(in)
	if err := checkStage("upload", &b.gpuImage, rows, cols, 3); err != nil {
		return err
	}
	cuda.CvtColor(b.gpuImage, &b.gpuHSV, gocv.ColorBGRToHSV)
	if err := checkStage("convert to hsv", &b.gpuHSV, rows, cols, 3); err != nil {
		return err
	}

	if b.hasFilter {
		b.filter.Apply(b.gpuHSV, &b.gpuBlur)
		if err := checkStage("gaussian filter", &b.gpuBlur, rows, cols, 3); err != nil {
			return err
		}
		b.gpuBlur.Download(&b.blur)
	} else {
		b.gpuHSV.Download(&b.hsv)
		if err := checkStage("download hsv", &b.hsv, rows, cols, 3); err != nil {
			return err
		}
		if err := blurMat(b.hsv, &b.blur, ksize); err != nil {
			return err
		}
	}
	if err := checkStage("download blur", &b.blur, rows, cols, 3); err != nil {
		return err
	}

	selected, err := thresholdMat(b.blur, rng, &b.mask)
	if err != nil {
		return err
	}
	if gray != nil {
		cuda.CvtColor(b.gpuImage, &b.gpuGray, gocv.ColorBGRToGray)
		if err := checkStage("convert to gray", &b.gpuGray, rows, cols, 1); err != nil {
			return err
		}
		b.gpuGray.Download(&b.gray)
		if err := checkStage("download gray", &b.gray, rows, cols, 1); err != nil {
			return err
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

func (b *cudaBackend) close() {
	if b.hasFilter {
		b.filter.Close()
		b.hasFilter = false
	}
	if !b.allocated {
		return
	}
	b.gpuImage.Close()
	b.gpuHSV.Close()
	b.gpuBlur.Close()
	b.gpuGray.Close()
	b.hsv.Close()
	b.blur.Close()
	b.gray.Close()
	b.mask.Close()
	b.allocated = false
}
