package gpuvision

// backend executes the pipeline stages for one execution path. Inputs are
// validated by ThresholdPipeline before any backend method is called.
type backend interface {
	name() string

	// setKernel prepares the blur for an odd kernel side. It is called once
	// at initialization and again only when the kernel side changes.
	setKernel(ksize int) error

	// process writes the mask, and gray when non-nil.
	process(src *Image, ksize int, rng ColorRange, mask, gray *Image) error

	// close releases scratch buffers. It is called exactly once.
	close()
}

// maxAcceleratedKernel is the widest separable filter OpenCV's CUDA module
// builds. Wider kernels are blurred on the host.
const maxAcceleratedKernel = 32

func acceleratedKernelFits(ksize int) bool { return ksize <= maxAcceleratedKernel }

// portableBackend runs the pure Go kernels. It is the host path of the
// purego build and the baseline that other paths are compared against.
type portableBackend struct {
	kernel  []float64
	hsv     []uint8
	blurred []uint8
	mask    []uint8
	gray    []uint8
	scratch blurScratch
}

func newPortableBackend() *portableBackend { return &portableBackend{} }

func (b *portableBackend) name() string { return "portable" }

func (b *portableBackend) setKernel(ksize int) error {
	b.kernel = gaussianKernel(ksize)
	return nil
}

func (b *portableBackend) process(src *Image, ksize int, rng ColorRange, mask, gray *Image) error {
	if len(b.kernel) != ksize {
		b.kernel = gaussianKernel(ksize)
	}
	n := src.Width * src.Height
	b.hsv = grow(b.hsv, 3*n)
	b.blurred = grow(b.blurred, 3*n)
	b.mask = grow(b.mask, n)

	pix := src.compact()
	if gray != nil {
		b.gray = grow(b.gray, n)
		bgrToGray(pix, b.gray)
	}

	lo, hi, ok := rng.bounds()
	if ok {
		bgrToHSV(pix, b.hsv)
		gaussianBlur(b.hsv, b.blurred, src.Width, src.Height, 3, b.kernel, &b.scratch)
		inRange(b.blurred, b.mask, lo, hi)
	} else {
		clear(b.mask)
	}

	mask.storeCompact(b.mask)
	if gray != nil {
		gray.storeCompact(b.gray)
	}
	return nil
}

func (b *portableBackend) close() {
	*b = portableBackend{}
}

func grow(buf []uint8, n int) []uint8 {
	if cap(buf) < n {
		return make([]uint8, n)
	}
	return buf[:n]
}
