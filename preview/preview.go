// Package preview shows the images produced by the conversion pipeline in an
// external image viewer. Every image is written into a temporary PNG file which
// is then handed to the viewer process; the viewer runs detached from the pipeline.
package preview

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/esimov/bilevel"
)

const (
	maxScreenX = 1366
	maxScreenY = 768
)

var _ bilevel.Sink = (*Viewer)(nil)

// Viewer is a bilevel.Sink opening every emitted image in an external viewer.
type Viewer struct {
	// Title prefixes the temporary file names, so the viewer window shows it.
	Title string
	// Command is the viewer command line; the image path is appended to it.
	// When empty the platform default is used.
	Command []string

	start func(cmd *exec.Cmd) error

	mu    sync.Mutex
	procs []*exec.Cmd
	files []string
}

// New returns a preview sink using the platform default viewer.
func New(title string) *Viewer {
	return &Viewer{Title: title}
}

// Emit implements bilevel.Sink. It returns as soon as the viewer process is started.
func (v *Viewer) Emit(stage bilevel.Stage, img *image.Gray) error {
	path, err := v.save(stage, fitScreen(img))
	if err != nil {
		return err
	}

	args := append(v.command(), path)
	cmd := exec.Command(args[0], args[1:]...)

	start := v.start
	if start == nil {
		start = (*exec.Cmd).Start
	}
	if err := start(cmd); err != nil {
		v.forget(path)
		return fmt.Errorf("unable to launch the image viewer %q: %w", args[0], err)
	}

	v.mu.Lock()
	v.procs = append(v.procs, cmd)
	v.mu.Unlock()

	return nil
}

// Wait waits for the viewer processes started so far to exit.
func (v *Viewer) Wait() error {
	v.mu.Lock()
	procs := v.procs
	v.procs = nil
	v.mu.Unlock()

	var first error
	for _, p := range procs {
		if p.Process == nil {
			continue
		}
		if err := p.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close waits for the viewer processes, then removes the temporary files.
// The platform default opener hands the file over to another application
// and returns at once, so in that case the files are left to the viewer.
func (v *Viewer) Close() error {
	err := v.Wait()
	if len(v.Command) == 0 {
		return err
	}

	for _, path := range v.Files() {
		v.forget(path)
	}
	return err
}

// forget removes a temporary file and drops it from the list of files.
func (v *Viewer) forget(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("could not remove the preview file: %v", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for i, f := range v.files {
		if f == path {
			v.files = append(v.files[:i], v.files[i+1:]...)
			break
		}
	}
}

// Files returns the temporary files written for the viewer.
func (v *Viewer) Files() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]string(nil), v.files...)
}

// save writes the image into a new temporary PNG file.
func (v *Viewer) save(stage bilevel.Stage, img image.Image) (string, error) {
	prefix := strings.ReplaceAll(strings.TrimSpace(v.Title), " ", "_")
	if prefix == "" {
		prefix = "preview"
	}

	f, err := os.CreateTemp("", fmt.Sprintf("%s-%s-*.png", prefix, stage))
	if err != nil {
		return "", fmt.Errorf("unable to create the preview file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}

	if err := imaging.Save(img, path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("unable to write the preview file: %w", err)
	}

	v.mu.Lock()
	v.files = append(v.files, path)
	v.mu.Unlock()

	return path, nil
}

func (v *Viewer) command() []string {
	if len(v.Command) > 0 {
		return append([]string(nil), v.Command...)
	}
	return defaultCommand(runtime.GOOS)
}

// defaultCommand returns the command opening a file with the default application of the platform.
func defaultCommand(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler"}
	default:
		return []string{"xdg-open"}
	}
}

// fitScreen downsizes the image, retaining its aspect ratio, in case it is larger than the screen.
// Nearest neighbor sampling keeps binary images black and white.
func fitScreen(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxScreenX && b.Dy() <= maxScreenY {
		return img
	}
	return imaging.Fit(img, maxScreenX, maxScreenY, imaging.NearestNeighbor)
}
