package bilevel

import (
	"fmt"
	"image"
	"io"

	"github.com/esimov/bilevel/utils"
)

// Processor options
type Processor struct {
	// Threshold is the binarization cutoff. The zero value is a valid threshold,
	// use NewProcessor or DefaultThreshold for the usual midpoint.
	Threshold int
	// Workers is the number of row bands converted concurrently. Values below two
	// run both stages sequentially. The output does not depend on it.
	Workers int
	// Sink receives the grayscale and the binary image. It can be nil.
	Sink Sink
	// Spinner, if set, is shown by Execute while the image is converted.
	Spinner *utils.Spinner
}

// Stats summarizes the binary image.
type Stats struct {
	Width  int
	Height int
	Black  int
	White  int
}

// Result holds the images produced by the pipeline.
type Result struct {
	Gray   *image.Gray
	Binary *image.Gray
	Stats  Stats
}

// NewProcessor returns a sequential Processor thresholding at DefaultThreshold.
func NewProcessor() *Processor {
	return &Processor{
		Threshold: DefaultThreshold,
		Workers:   1,
	}
}

// Process decodes the source image from r and runs it through the pipeline.
// A decoding failure aborts the process before any stage is executed.
func (p *Processor) Process(r io.Reader) (*Result, error) {
	src, err := DecodeImage(r)
	if err != nil {
		return nil, err
	}
	return p.ProcessImage(src)
}

// ProcessImage converts src to grayscale, then binarizes the grayscale image.
// Every stage output is handed to the Sink as soon as it is ready.
func (p *Processor) ProcessImage(src image.Image) (*Result, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: missing image", ErrInvalidDimension)
	}
	if b := src.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimension, b.Dx(), b.Dy())
	}

	gray := p.grayscale(imgToNRGBA(src))
	if err := p.emit(GrayStage, gray); err != nil {
		return nil, err
	}

	bin := p.binarize(gray)
	if err := p.emit(BinaryStage, bin); err != nil {
		return nil, err
	}

	return &Result{
		Gray:   gray,
		Binary: bin,
		Stats:  levelStats(bin),
	}, nil
}

// grayscale is the band parallel version of Grayscale.
func (p *Processor) grayscale(src *image.NRGBA) *image.Gray {
	dst := image.NewGray(src.Bounds())
	eachRowBand(dst.Bounds().Dy(), p.Workers, func(y0, y1 int) {
		grayscaleRows(dst, src, y0, y1)
	})
	return dst
}

// binarize is the band parallel version of Binarize.
func (p *Processor) binarize(src *image.Gray) *image.Gray {
	dst := image.NewGray(src.Bounds().Sub(src.Bounds().Min))
	eachRowBand(dst.Bounds().Dy(), p.Workers, func(y0, y1 int) {
		binarizeRows(dst, src, p.Threshold, y0, y1)
	})
	return dst
}

func (p *Processor) emit(stage Stage, img *image.Gray) error {
	if p.Sink == nil {
		return nil
	}
	if err := p.Sink.Emit(stage, img); err != nil {
		return fmt.Errorf("could not output the %s image: %w", stage, err)
	}
	return nil
}

// levelStats counts the black and white pixels of a binary image.
func levelStats(img *image.Gray) Stats {
	b := img.Bounds()
	s := Stats{Width: b.Dx(), Height: b.Dy()}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for _, px := range row {
			if px == White {
				s.White++
			} else {
				s.Black++
			}
		}
	}
	return s
}
