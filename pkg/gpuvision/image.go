package gpuvision

import (
	"fmt"
	"image"
	"image/color"
)

// Image is a caller-owned 8-bit pixel buffer. Color images are stored as
// interleaved BGR (3 channels), masks and grayscale images use 1 channel.
// Row y starts at Pix[y*Stride].
type Image struct {
	Pix      []uint8
	Stride   int
	Width    int
	Height   int
	Channels int
}

// NewImage allocates a tightly packed image.
func NewImage(width, height, channels int) *Image {
	return &Image{
		Pix:      make([]uint8, width*height*channels),
		Stride:   width * channels,
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}

// NewImageLike allocates an image with the dimensions of src and the given
// channel count.
func NewImageLike(src *Image, channels int) *Image {
	return NewImage(src.Width, src.Height, channels)
}

// rowBytes is the number of meaningful bytes in one row.
func (img *Image) rowBytes() int { return img.Width * img.Channels }

// Row returns the meaningful bytes of row y.
func (img *Image) Row(y int) []uint8 {
	off := y * img.Stride
	return img.Pix[off : off+img.rowBytes()]
}

// packed reports whether rows are stored without padding.
func (img *Image) packed() bool { return img.Stride == img.rowBytes() }

// At returns channel c of the pixel at (x, y).
func (img *Image) At(x, y, c int) uint8 {
	return img.Pix[y*img.Stride+x*img.Channels+c]
}

// Fill sets every pixel to the given per-channel values, repeating them
// across channels. Fill with no values does nothing.
func (img *Image) Fill(values ...uint8) {
	if len(values) == 0 {
		return
	}
	for y := 0; y < img.Height; y++ {
		row := img.Row(y)
		for x := 0; x < img.Width; x++ {
			for c := 0; c < img.Channels; c++ {
				row[x*img.Channels+c] = values[c%len(values)]
			}
		}
	}
}

func (img *Image) zero() {
	for y := 0; y < img.Height; y++ {
		clear(img.Row(y))
	}
}

// check verifies that the buffer is large enough for the declared geometry.
func (img *Image) check(name string) error {
	if img == nil {
		return fmt.Errorf("%s image is nil: %w", name, ErrInvalidParameter)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%s image has empty size %dx%d: %w", name, img.Width, img.Height, ErrInvalidParameter)
	}
	if img.Stride < img.rowBytes() {
		return fmt.Errorf("%s image stride %d shorter than row %d: %w", name, img.Stride, img.rowBytes(), ErrInvalidParameter)
	}
	if need := (img.Height-1)*img.Stride + img.rowBytes(); len(img.Pix) < need {
		return fmt.Errorf("%s image buffer holds %d bytes, need %d: %w", name, len(img.Pix), need, ErrInvalidParameter)
	}
	return nil
}

// compact returns the pixel bytes without row padding. The returned slice
// aliases Pix when the image is already packed.
func (img *Image) compact() []uint8 {
	if img.packed() {
		return img.Pix[:img.Height*img.rowBytes()]
	}
	out := make([]uint8, 0, img.Height*img.rowBytes())
	for y := 0; y < img.Height; y++ {
		out = append(out, img.Row(y)...)
	}
	return out
}

// storeCompact copies tightly packed bytes into the image rows.
func (img *Image) storeCompact(data []uint8) {
	if img.packed() {
		copy(img.Pix, data[:img.Height*img.rowBytes()])
		return
	}
	rb := img.rowBytes()
	for y := 0; y < img.Height; y++ {
		copy(img.Row(y), data[y*rb:(y+1)*rb])
	}
}

// FromImage converts any image.Image into a 3-channel BGR Image.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	dst := NewImage(b.Dx(), b.Dy(), 3)
	for y := 0; y < dst.Height; y++ {
		row := dst.Row(y)
		for x := 0; x < dst.Width; x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			row[x*3] = c.B
			row[x*3+1] = c.G
			row[x*3+2] = c.R
		}
	}
	return dst
}

// ToImage converts the buffer into a standard library image: *image.Gray for
// single-channel images and *image.RGBA for BGR images.
func (img *Image) ToImage() image.Image {
	r := image.Rect(0, 0, img.Width, img.Height)
	if img.Channels == 1 {
		g := image.NewGray(r)
		for y := 0; y < img.Height; y++ {
			copy(g.Pix[y*g.Stride:], img.Row(y))
		}
		return g
	}
	out := image.NewRGBA(r)
	for y := 0; y < img.Height; y++ {
		row := img.Row(y)
		for x := 0; x < img.Width; x++ {
			o := y*out.Stride + x*4
			out.Pix[o] = row[x*img.Channels+2]
			out.Pix[o+1] = row[x*img.Channels+1]
			out.Pix[o+2] = row[x*img.Channels]
			out.Pix[o+3] = 0xff
		}
	}
	return out
}
