package bilevel

import (
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/esimov/bilevel/utils"
	"golang.org/x/term"
)

// Ops describes where the source image is read from and where the stage outputs are written.
// Src can be a file path, an URL or PipeName for stdin. Dst and Gray can be file paths
// or PipeName for stdout; an empty destination means that stage is not written.
type Ops struct {
	Src, Dst, Gray, PipeName string
}

// Execute runs the conversion over the source described by op.
// The images are written to the destinations of op and also handed to the processor Sink, if any.
func (p *Processor) Execute(op *Ops) (*Result, error) {
	if err := op.validate(); err != nil {
		return nil, err
	}

	src, closeSrc, err := op.openSource()
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	out, err := op.sink()
	if err != nil {
		return nil, err
	}

	proc := *p
	proc.Sink = MultiSink(out, p.Sink)

	if p.Spinner != nil {
		p.Spinner.Start()
	}
	res, err := proc.Process(src)
	if err != nil {
		out.discard()
	}

	var de *DecodeError
	if errors.As(err, &de) && de.Source == "" {
		de.Source = op.Src
	}

	if p.Spinner != nil {
		if err != nil {
			p.Spinner.StopMsg = fmt.Sprintf("%s %s %s\n",
				utils.DecorateText("◐ BILEVEL", utils.StatusMessage),
				utils.DecorateText("converting image failed...", utils.DefaultMessage),
				utils.DecorateText("✘", utils.ErrorMessage),
			)
		} else {
			p.Spinner.StopMsg = fmt.Sprintf("%s %s %s\n",
				utils.DecorateText("◐ BILEVEL", utils.StatusMessage),
				utils.DecorateText("⇢", utils.DefaultMessage),
				utils.DecorateText("the image has been converted successfully ✔", utils.SuccessMessage),
			)
		}
		p.Spinner.Stop()
	}

	return res, err
}

// validate checks the destinations before anything is read or written.
func (op *Ops) validate() error {
	if op.Src == "" {
		return &DecodeError{Err: errors.New("no source image provided")}
	}
	if op.isPipe(op.Dst) && op.isPipe(op.Gray) {
		return errors.New("only one of the outputs can be written to stdout")
	}

	for _, dst := range []string{op.Dst, op.Gray} {
		if dst == "" || op.isPipe(dst) {
			continue
		}
		if ext := filepath.Ext(dst); !isValidExtension(ext, SupportedExtensions) {
			return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
		}
	}
	return nil
}

func (op *Ops) isPipe(name string) bool {
	return op.PipeName != "" && name == op.PipeName
}

// openSource opens the source image, be it a regular file, an URL or stdin.
// The returned function releases the resources held by the reader.
func (op *Ops) openSource() (io.Reader, func(), error) {
	switch {
	case op.isPipe(op.Src):
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdin")
		}
		return os.Stdin, func() {}, nil
	case utils.IsValidUrl(op.Src):
		file, err := utils.DownloadImage(op.Src)
		if err != nil {
			return nil, nil, &DecodeError{Source: op.Src, Err: err}
		}
		return file, func() {
			closeFile(file)
			if err := os.Remove(file.Name()); err != nil {
				log.Printf("could not remove the temporary file: %v", err)
			}
		}, nil
	}

	fi, err := os.Stat(op.Src)
	if err != nil {
		return nil, nil, &DecodeError{Source: op.Src, Err: err}
	}
	if fi.IsDir() {
		return nil, nil, &DecodeError{Source: op.Src, Err: ErrDirectorySource}
	}

	file, err := os.Open(op.Src)
	if err != nil {
		return nil, nil, &DecodeError{Source: op.Src, Err: err}
	}
	return file, func() { closeFile(file) }, nil
}

// sink builds the sink writing the stage outputs to their destinations.
func (op *Ops) sink() (*outputSink, error) {
	out := &outputSink{}

	if op.isPipe(op.Gray) || op.isPipe(op.Dst) {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdout")
		}
	}

	if op.isPipe(op.Gray) {
		out.pipe.Gray = os.Stdout
	} else {
		out.files.GrayPath = op.Gray
	}
	if op.isPipe(op.Dst) {
		out.pipe.Binary = os.Stdout
	} else {
		out.files.BinaryPath = op.Dst
	}

	return out, nil
}

// outputSink writes the stages to the destination files and pipes,
// remembering the files written so far.
type outputSink struct {
	files   FileSink
	pipe    WriterSink
	written []string
}

// Emit implements Sink.
func (s *outputSink) Emit(stage Stage, img *image.Gray) error {
	if err := s.files.Emit(stage, img); err != nil {
		return err
	}
	if path := s.files.path(stage); path != "" {
		s.written = append(s.written, path)
	}
	return s.pipe.Emit(stage, img)
}

// discard removes the destination files written by a failed run.
func (s *outputSink) discard() {
	for _, path := range s.written {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("could not remove the destination file: %v", err)
		}
	}
	s.written = nil
}

func closeFile(f *os.File) {
	if err := f.Close(); err != nil {
		log.Printf("could not close the opened file: %v", err)
	}
}
