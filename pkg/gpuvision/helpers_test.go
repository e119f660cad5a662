package gpuvision

import "math/rand"

var (
	bgrRed   = [3]uint8{0, 0, 255}
	bgrGreen = [3]uint8{0, 255, 0}
	bgrBlue  = [3]uint8{255, 0, 0}
	bgrGray  = [3]uint8{128, 128, 128}
	bgrWhite = [3]uint8{255, 255, 255}
)

// greenRange selects saturated, bright green and nothing else among the
// test colors.
var greenRange = NewColorRange(50, 200, 200, 70, 255, 255)

func solidImage(w, h int, c [3]uint8) *Image {
	img := NewImage(w, h, 3)
	img.Fill(c[0], c[1], c[2])
	return img
}

func paint(img *Image, fn func(x, y int) [3]uint8) *Image {
	for y := 0; y < img.Height; y++ {
		row := img.Row(y)
		for x := 0; x < img.Width; x++ {
			c := fn(x, y)
			copy(row[x*3:x*3+3], c[:])
		}
	}
	return img
}

func checkerboard(w, h int, a, b [3]uint8) *Image {
	return paint(NewImage(w, h, 3), func(x, y int) [3]uint8 {
		if (x+y)%2 == 0 {
			return a
		}
		return b
	})
}

// blocks tiles the image with size x size squares cycling through colors.
func blocks(w, h, size int, colors ...[3]uint8) *Image {
	return paint(NewImage(w, h, 3), func(x, y int) [3]uint8 {
		return colors[(x/size+y/size*3)%len(colors)]
	})
}

func noiseImage(w, h int, seed int64) *Image {
	rnd := rand.New(rand.NewSource(seed))
	img := NewImage(w, h, 3)
	rnd.Read(img.Pix)
	return img
}

func filled(w, h int, v uint8) *Image {
	img := NewImage(w, h, 1)
	img.Fill(v)
	return img
}
