package bilevel

import (
	"image"
	"math"
)

// BT.601 luma coefficients.
const (
	redWeight   = 0.299
	greenWeight = 0.587
	blueWeight  = 0.114
)

// lumaShift is the fixed point precision of the weights. Every float64 weight
// is an exact multiple of 2^-56, so the scaled weights are exact integers.
const lumaShift = 56

var (
	redFixed   = fixedWeight(redWeight)
	greenFixed = fixedWeight(greenWeight)
	blueFixed  = fixedWeight(blueWeight)
)

func fixedWeight(w float64) uint64 {
	return uint64(math.Ldexp(w, lumaShift))
}

// Luminance returns the weighted luma of an RGB triple, truncated toward zero.
// The sum is the exact value of the float64 weights times the channels, without
// intermediate rounding. The weights add up to slightly less than one,
// so pure white yields 254 and any gray level v > 0 yields v-1.
func Luminance(r, g, b uint8) uint8 {
	// 255 * (redFixed + greenFixed + blueFixed) < 2^64
	lum := redFixed*uint64(r) + greenFixed*uint64(g) + blueFixed*uint64(b)

	return uint8(lum >> lumaShift)
}

// Grayscale converts the image to a single channel luminance image.
// The returned image has the same size as src with its min-point at (0, 0).
func Grayscale(src image.Image) *image.Gray {
	img := imgToNRGBA(src)
	dst := image.NewGray(img.Bounds())
	grayscaleRows(dst, img, 0, img.Bounds().Dy())

	return dst
}

// grayscaleRows fills the rows [y0, y1) of dst with the luminance of src.
func grayscaleRows(dst *image.Gray, src *image.NRGBA, y0, y1 int) {
	width := src.Bounds().Dx()

	for y := y0; y < y1; y++ {
		si := src.PixOffset(0, y)
		di := dst.PixOffset(0, y)
		for x := 0; x < width; x++ {
			dst.Pix[di+x] = Luminance(src.Pix[si], src.Pix[si+1], src.Pix[si+2])
			si += 4
		}
	}
}
