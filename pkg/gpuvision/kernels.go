package gpuvision

import "math"

// Portable 8-bit kernels. They follow OpenCV's fixed-point conventions so the
// pure Go build agrees with the gocv build to within one intensity level.

const hsvShift = 12

var (
	sdivTable    [256]int
	hdivTable180 [256]int
)

func init() {
	for i := 1; i < 256; i++ {
		sdivTable[i] = int(math.RoundToEven(float64(255<<hsvShift) / float64(i)))
		hdivTable180[i] = int(math.RoundToEven(float64(180<<hsvShift) / (6 * float64(i))))
	}
}

// bgrToHSV converts packed BGR pixels to packed HSV with H in [0, 180].
func bgrToHSV(src, dst []uint8) {
	for i := 0; i+2 < len(src); i += 3 {
		b, g, r := int(src[i]), int(src[i+1]), int(src[i+2])

		v := max(b, g, r)
		vmin := min(b, g, r)
		diff := v - vmin

		s := (diff*sdivTable[v] + (1 << (hsvShift - 1))) >> hsvShift

		var h int
		switch v {
		case r:
			h = g - b
		case g:
			h = b - r + 2*diff
		default:
			h = r - g + 4*diff
		}
		h = (h*hdivTable180[diff] + (1 << (hsvShift - 1))) >> hsvShift
		if h < 0 {
			h += 180
		}

		dst[i] = clampU8(h)
		dst[i+1] = uint8(s)
		dst[i+2] = uint8(v)
	}
}

// bgrToGray converts packed BGR pixels to luma using the BT.601 weights in
// 14-bit fixed point.
func bgrToGray(src, dst []uint8) {
	const (
		shift = 14
		r2y   = 4899
		g2y   = 9617
		b2y   = 1868
	)
	for i, j := 0, 0; i+2 < len(src); i, j = i+3, j+1 {
		y := int(src[i])*b2y + int(src[i+1])*g2y + int(src[i+2])*r2y
		dst[j] = uint8((y + (1 << (shift - 1))) >> shift)
	}
}

var smallGaussianTab = [][]float64{
	{1},
	{0.25, 0.5, 0.25},
	{0.0625, 0.25, 0.375, 0.25, 0.0625},
	{0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// gaussianKernel returns the normalized 1D kernel OpenCV uses for an odd
// size when sigma is derived from the size.
func gaussianKernel(size int) []float64 {
	if size <= 7 {
		k := make([]float64, size)
		copy(k, smallGaussianTab[size/2])
		return k
	}
	sigma := ((float64(size)-1)*0.5-1)*0.3 + 0.8
	k := make([]float64, size)
	half := size / 2
	sum := 0.0
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// reflect101 maps an out-of-range index back into [0, n) mirroring around
// the edge pixels without repeating them (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// blurScratch holds the float row buffer and border tables for gaussianBlur
// so repeated calls on same-sized frames do not allocate.
type blurScratch struct {
	tmp  []float64
	xmap []int
	ymap []int
}

func (s *blurScratch) ensure(width, height, channels, half int) {
	if n := width * height * channels; cap(s.tmp) < n {
		s.tmp = make([]float64, n)
	} else {
		s.tmp = s.tmp[:n]
	}
	if n := width + 2*half; cap(s.xmap) < n {
		s.xmap = make([]int, n)
	} else {
		s.xmap = s.xmap[:n]
	}
	if n := height + 2*half; cap(s.ymap) < n {
		s.ymap = make([]int, n)
	} else {
		s.ymap = s.ymap[:n]
	}
	for i := range s.xmap {
		s.xmap[i] = reflect101(i-half, width)
	}
	for i := range s.ymap {
		s.ymap[i] = reflect101(i-half, height)
	}
}

// gaussianBlur applies the separable kernel to packed interleaved pixels.
// A single-tap kernel copies src to dst unchanged.
func gaussianBlur(src, dst []uint8, width, height, channels int, kernel []float64, s *blurScratch) {
	n := width * height * channels
	if len(kernel) == 1 {
		copy(dst[:n], src[:n])
		return
	}
	half := len(kernel) / 2
	s.ensure(width, height, channels, half)
	tmp := s.tmp

	// Horizontal pass
	for y := 0; y < height; y++ {
		rowOff := y * width * channels
		for x := 0; x < width; x++ {
			for c := 0; c < channels; c++ {
				var sum float64
				for k, w := range kernel {
					sum += float64(src[rowOff+s.xmap[x+k]*channels+c]) * w
				}
				tmp[rowOff+x*channels+c] = sum
			}
		}
	}

	// Vertical pass
	stride := width * channels
	for y := 0; y < height; y++ {
		dstOff := y * stride
		for i := 0; i < stride; i++ {
			var sum float64
			for k, w := range kernel {
				sum += tmp[s.ymap[y+k]*stride+i] * w
			}
			dst[dstOff+i] = clampU8(int(math.RoundToEven(sum)))
		}
	}
}

// inRange writes 255 for every 3-channel pixel whose channels all lie in
// [lo, hi], 0 otherwise.
func inRange(src, dst []uint8, lo, hi [3]uint8) {
	for i, j := 0, 0; i+2 < len(src); i, j = i+3, j+1 {
		if src[i] >= lo[0] && src[i] <= hi[0] &&
			src[i+1] >= lo[1] && src[i+1] <= hi[1] &&
			src[i+2] >= lo[2] && src[i+2] <= hi[2] {
			dst[j] = 255
		} else {
			dst[j] = 0
		}
	}
}

func clampU8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
