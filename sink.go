package bilevel

import (
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Stage identifies the pipeline step which produced an image.
type Stage int

const (
	// GrayStage is the luminance image produced by Grayscale.
	GrayStage Stage = iota
	// BinaryStage is the black and white image produced by Binarize.
	BinaryStage
)

func (s Stage) String() string {
	switch s {
	case GrayStage:
		return "grayscale"
	case BinaryStage:
		return "binary"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Sink receives the image produced by each pipeline stage.
// Implementations decide how the images are presented: written to a file,
// kept in memory or shown in a preview window.
type Sink interface {
	Emit(stage Stage, img *image.Gray) error
}

// SinkFunc is an adapter to allow the use of ordinary functions as sinks.
type SinkFunc func(stage Stage, img *image.Gray) error

// Emit calls f(stage, img).
func (f SinkFunc) Emit(stage Stage, img *image.Gray) error {
	return f(stage, img)
}

// FileSink writes every stage into its own file. The image format is
// selected by the file extension. Stages with an empty path are skipped.
type FileSink struct {
	GrayPath   string
	BinaryPath string
}

// Emit implements Sink.
func (s FileSink) Emit(stage Stage, img *image.Gray) error {
	path := s.path(stage)
	if path == "" {
		return nil
	}
	return writeFile(path, img)
}

func (s FileSink) path(stage Stage) string {
	switch stage {
	case GrayStage:
		return s.GrayPath
	case BinaryStage:
		return s.BinaryPath
	}
	return ""
}

// writeFile encodes img into path. The file is removed in case the encoding fails.
func writeFile(path string, img image.Image) error {
	ext := filepath.Ext(path)
	if !isValidExtension(ext, SupportedExtensions) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create the destination file: %w", err)
	}

	if err := EncodeImage(file, ext, img); err != nil {
		file.Close()
		if err := os.Remove(path); err != nil {
			log.Printf("could not remove the destination file: %v", err)
		}
		return err
	}
	return file.Close()
}

// WriterSink encodes every stage into its own writer using the format of Ext
// (PNG when empty). Stages with a nil writer are skipped.
type WriterSink struct {
	Gray   io.Writer
	Binary io.Writer
	Ext    string
}

// Emit implements Sink.
func (s WriterSink) Emit(stage Stage, img *image.Gray) error {
	var w io.Writer
	switch stage {
	case GrayStage:
		w = s.Gray
	case BinaryStage:
		w = s.Binary
	}
	if w == nil {
		return nil
	}
	return EncodeImage(w, s.Ext, img)
}

// MemorySink keeps the last image emitted by each stage.
type MemorySink struct {
	gray   *image.Gray
	binary *image.Gray
}

// Emit implements Sink.
func (s *MemorySink) Emit(stage Stage, img *image.Gray) error {
	switch stage {
	case GrayStage:
		s.gray = img
	case BinaryStage:
		s.binary = img
	}
	return nil
}

// Gray returns the grayscale image, or nil if none was emitted.
func (s *MemorySink) Gray() *image.Gray { return s.gray }

// Binary returns the binary image, or nil if none was emitted.
func (s *MemorySink) Binary() *image.Gray { return s.binary }

// MultiSink creates a sink that duplicates every image to all the provided sinks.
// The first failing sink stops the emission and its error is returned.
func MultiSink(sinks ...Sink) Sink {
	all := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			all = append(all, s)
		}
	}
	return all
}

type multiSink []Sink

func (m multiSink) Emit(stage Stage, img *image.Gray) error {
	for _, s := range m {
		if err := s.Emit(stage, img); err != nil {
			return err
		}
	}
	return nil
}
