package bilevel

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimension is returned for images without a positive width and height.
	ErrInvalidDimension = errors.New("image width and height must be positive")

	// ErrUnsupportedFormat is returned when an output extension has no encoder.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrDirectorySource is returned when the source path is a directory.
	ErrDirectorySource = errors.New("the source should be an image file, not a directory")
)

// DecodeError reports a source image which could not be opened, read or decoded.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("could not decode the source image: %v", e.Err)
	}
	return fmt.Sprintf("could not decode the source image %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
