//go:build !purego && !js

package gpuvision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// maskHulls finds the outer contours of mask with OpenCV and returns the
// convex hull of each.
func maskHulls(mask *Image) ([][]image.Point, error) {
	m, err := gocv.NewMatFromBytes(mask.Height, mask.Width, gocv.MatTypeCV8UC1, mask.compact())
	if err != nil {
		return nil, fmt.Errorf("wrap mask: %w", err)
	}
	defer m.Close()

	contours := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	hulls := make([][]image.Point, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		hulls = append(hulls, convexHull(contours.At(i).ToPoints()))
	}
	return hulls, nil
}
