package bilevel

import (
	"image"
)

// DefaultThreshold is the cutoff used when no other threshold is given.
const DefaultThreshold = 128

// The two levels of a binary image.
const (
	Black uint8 = 0x00
	White uint8 = 0xff
)

// Binarize thresholds a grayscale image into a black and white image.
// A pixel becomes white only if its value is strictly greater than threshold,
// so thresholds above 254 give an all black image and negative ones an all white image.
func Binarize(src *image.Gray, threshold int) *image.Gray {
	dst := image.NewGray(src.Bounds().Sub(src.Bounds().Min))
	binarizeRows(dst, src, threshold, 0, dst.Bounds().Dy())

	return dst
}

func binarizeRows(dst, src *image.Gray, threshold, y0, y1 int) {
	b := src.Bounds()
	width := b.Dx()

	for y := y0; y < y1; y++ {
		si := src.PixOffset(b.Min.X, b.Min.Y+y)
		di := dst.PixOffset(0, y)
		for x := 0; x < width; x++ {
			if int(src.Pix[si+x]) > threshold {
				dst.Pix[di+x] = White
			} else {
				dst.Pix[di+x] = Black
			}
		}
	}
}
