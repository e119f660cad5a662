package gpuvision

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorRangeBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		rng    ColorRange
		lo, hi [3]uint8
		ok     bool
	}{
		{"integral", NewColorRange(0, 0, 99, 176, 255, 255), [3]uint8{0, 0, 99}, [3]uint8{176, 255, 255}, true},
		{"fractional", NewColorRange(10.2, 0, 0, 20.8, 255, 255), [3]uint8{11, 0, 0}, [3]uint8{20, 255, 255}, true},
		{"clamped", NewColorRange(-5, -1, 0, 400, 300, 256), [3]uint8{0, 0, 0}, [3]uint8{255, 255, 255}, true},
		{"min above max", NewColorRange(50, 0, 0, 40, 255, 255), [3]uint8{}, [3]uint8{}, false},
		{"no integer inside", NewColorRange(10.2, 0, 0, 10.8, 255, 255), [3]uint8{}, [3]uint8{}, false},
		{"above 255", NewColorRange(0, 0, 256, 180, 255, 300), [3]uint8{}, [3]uint8{}, false},
		{"NaN", NewColorRange(math.NaN(), 0, 0, 10, 255, 255), [3]uint8{}, [3]uint8{}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lo, hi, ok := tt.rng.bounds()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, !tt.ok, tt.rng.Empty())
			if tt.ok {
				assert.Equal(t, tt.lo, lo)
				assert.Equal(t, tt.hi, hi)
			}
		})
	}
}

func TestColorRangeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "H[0,176] S[0,255] V[99,255]", NewColorRange(0, 0, 99, 176, 255, 255).String())
}

func TestImageCheck(t *testing.T) {
	t.Parallel()

	var nilImage *Image
	tests := []struct {
		name string
		img  *Image
		ok   bool
	}{
		{"packed", NewImage(4, 3, 3), true},
		{"padded", &Image{Pix: make([]uint8, 2*16+12), Stride: 16, Width: 4, Height: 3, Channels: 3}, true},
		{"nil", nilImage, false},
		{"zero width", NewImage(0, 3, 3), false},
		{"stride too small", &Image{Pix: make([]uint8, 36), Stride: 8, Width: 4, Height: 3, Channels: 3}, false},
		{"buffer too small", &Image{Pix: make([]uint8, 35), Stride: 12, Width: 4, Height: 3, Channels: 3}, false},
	}
	for _, tt := range tests {
		tt := tt
		err := tt.img.check("test")
		if tt.ok {
			assert.NoError(t, err, tt.name)
		} else {
			assert.ErrorIs(t, err, ErrInvalidParameter, tt.name)
		}
	}
}

func TestImageCompactRoundTrip(t *testing.T) {
	t.Parallel()

	img := &Image{Pix: make([]uint8, 3*5), Stride: 5, Width: 3, Height: 3, Channels: 1}
	img.storeCompact([]uint8{1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.Equal(t, []uint8{1, 2, 3, 0, 0, 4, 5, 6, 0, 0, 7, 8, 9, 0, 0}, img.Pix)
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9}, img.compact())
	assert.Equal(t, uint8(6), img.At(2, 1, 0))

	img.zero()
	assert.Zero(t, CountNonZero(img))
}

func TestFromImageToImage(t *testing.T) {
	t.Parallel()

	rgba := image.NewRGBA(image.Rect(2, 3, 4, 5))
	rgba.Set(2, 3, color.RGBA{R: 255, A: 255})
	rgba.Set(3, 3, color.RGBA{G: 255, A: 255})
	rgba.Set(2, 4, color.RGBA{B: 255, A: 255})
	rgba.Set(3, 4, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	img := FromImage(rgba)
	require.Equal(t, 2, img.Width)
	require.Equal(t, 2, img.Height)
	require.Equal(t, 3, img.Channels)
	assert.Equal(t, []uint8{0, 0, 255, 0, 255, 0, 255, 0, 0, 30, 20, 10}, img.Pix)

	back, ok := img.ToImage().(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, back.RGBAAt(1, 1))

	mask := filled(2, 2, 200)
	gray, ok := mask.ToImage().(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, color.Gray{Y: 200}, gray.GrayAt(1, 0))
}

func TestCompare(t *testing.T) {
	t.Parallel()

	a := NewImage(3, 2, 1)
	b := NewImage(3, 2, 1)
	copy(a.Pix, []uint8{0, 10, 20, 30, 40, 50})
	copy(b.Pix, []uint8{0, 12, 20, 29, 40, 50})

	cmp, err := Compare(a, b)
	require.NoError(t, err)
	assert.Equal(t, Comparison{Pixels: 6, Differing: 2, MaxAbsDiff: 2}, cmp)
	assert.InDelta(t, 1.0/3, cmp.DifferingFraction(), 1e-12)

	_, err = Compare(a, NewImage(2, 3, 1))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = Compare(a, NewImage(3, 2, 3))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = Compare(a, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	assert.Zero(t, Comparison{}.DifferingFraction())
}

func TestCompare_MultiChannelCountsPixelsOnce(t *testing.T) {
	t.Parallel()

	a := solidImage(2, 1, [3]uint8{10, 10, 10})
	b := solidImage(2, 1, [3]uint8{10, 10, 10})
	b.Pix[0], b.Pix[1] = 15, 13

	cmp, err := Compare(a, b)
	require.NoError(t, err)
	assert.Equal(t, Comparison{Pixels: 2, Differing: 1, MaxAbsDiff: 5}, cmp)
}

func TestReadImage(t *testing.T) {
	t.Parallel()

	want := blocks(12, 9, 3, bgrGreen, bgrBlue, bgrRed, [3]uint8{10, 20, 30})
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, want.ToImage()))
	require.NoError(t, f.Close())

	got, err := ReadImage(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ReadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestImageFill(t *testing.T) {
	t.Parallel()

	img := NewImage(2, 2, 3)
	img.Fill(1, 2, 3)
	assert.Equal(t, []uint8{1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 3}, img.Pix)

	img.Fill()
	assert.Equal(t, []uint8{1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 3}, img.Pix)

	img.Fill(9)
	assert.Equal(t, uint8(9), img.At(1, 1, 2))
}
