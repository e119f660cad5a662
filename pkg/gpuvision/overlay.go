package gpuvision

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LabelColor is the default text color for preview annotations.
var LabelColor = color.RGBA{255, 255, 255, 255}

// LabelBackground fills the box behind each preview line so labels stay
// readable over selected (white) mask regions.
var LabelBackground = color.RGBA{0, 0, 0, 255}

// DrawLabel draws s with its baseline at (x, y) using the 7x13 bitmap face.
func DrawLabel(img draw.Image, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// labelBox is the backing rectangle for a line drawn at baseline (x, y).
func labelBox(s string, x, y int) image.Rectangle {
	face := basicfont.Face7x13
	m := face.Metrics()
	w := font.MeasureString(face, s).Ceil()
	return image.Rect(x-2, y-m.Ascent.Ceil(), x+w+2, y+m.Descent.Ceil())
}

// Preview renders a mask or gray buffer as an RGBA image with the given
// text lines stacked in the top-left corner, each on a dark box.
func Preview(img *Image, lines ...string) *image.RGBA {
	src := img.ToImage()
	out := image.NewRGBA(src.Bounds())
	draw.Draw(out, out.Bounds(), src, image.Point{}, draw.Src)

	bg := image.NewUniform(LabelBackground)
	lineHeight := basicfont.Face7x13.Metrics().Height.Ceil()
	for i, line := range lines {
		y := (i + 1) * lineHeight
		draw.Draw(out, labelBox(line, 4, y).Intersect(out.Bounds()), bg, image.Point{}, draw.Src)
		DrawLabel(out, line, 4, y, LabelColor)
	}
	return out
}
