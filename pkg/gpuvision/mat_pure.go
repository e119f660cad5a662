//go:build purego || js

package gpuvision

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// newHostBackend returns the pure Go reference path used when cgo and
// OpenCV are not available.
func newHostBackend() backend {
	return newPortableBackend()
}

// ReadImage decodes a file into a BGR Image with the standard library and
// x/image decoders.
func ReadImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return FromImage(img), nil
}

// maskHulls labels the blobs of mask in Go and returns the convex hull of each.
func maskHulls(mask *Image) ([][]image.Point, error) {
	return portableHulls(mask), nil
}
