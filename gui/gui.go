// Package gui shows the images produced by the conversion pipeline in a Gio window.
// The grayscale and the binary image are laid out side by side, and the window
// is refreshed every time a stage emits a new image.
package gui

import (
	"image"
	"image/color"
	"math"
	"sync"

	"gioui.org/app"
	"gioui.org/io/key"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"

	"github.com/esimov/bilevel"
	"github.com/esimov/bilevel/utils"
)

type (
	C = layout.Context
	D = layout.Dimensions
)

const (
	maxScreenX = 1366
	maxScreenY = 768
)

var defaultBkgColor = color.NRGBA{R: 0x2b, G: 0x2b, B: 0x2b, A: 0xff}

var _ bilevel.Sink = (*Gui)(nil)

// Gui is a bilevel.Sink displaying every stage in a Gio window.
type Gui struct {
	title string

	mu     sync.Mutex
	stages [2]stageImage
	win    *app.Window
}

type stageImage struct {
	src  paint.ImageOp
	size image.Point
	ok   bool
}

// New initializes the Gio interface. The window is opened by Run.
func New(title string) *Gui {
	return &Gui{title: title}
}

// Emit implements bilevel.Sink. It returns as soon as the image is queued for drawing.
func (g *Gui) Emit(stage bilevel.Stage, img *image.Gray) error {
	if stage != bilevel.GrayStage && stage != bilevel.BinaryStage {
		return nil
	}
	src := paint.NewImageOp(img)
	// Keeps the pixels of the binary image sharp when scaled.
	src.Filter = paint.FilterNearest

	g.mu.Lock()
	g.stages[stage] = stageImage{src: src, size: img.Bounds().Size(), ok: true}
	win := g.win
	g.mu.Unlock()

	if win != nil {
		win.Invalidate()
	}
	return nil
}

// Run opens the window and processes its events until the window is closed or
// the ESC key is pressed. app.Main has to run on the main goroutine meanwhile.
func (g *Gui) Run() error {
	w := new(app.Window)
	w.Option(app.Title(g.title), app.Size(unit.Dp(maxScreenX/2), unit.Dp(maxScreenY/2)))

	g.mu.Lock()
	g.win = w
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.win = nil
		g.mu.Unlock()
	}()

	var (
		ops   op.Ops
		sized bool
	)
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			for {
				ev, ok := gtx.Event(key.Filter{Name: key.NameEscape})
				if !ok {
					break
				}
				if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
					w.Perform(system.ActionClose)
				}
			}

			stages := g.snapshot()
			if !sized {
				if width, height, ok := windowSize(stages); ok {
					w.Option(app.Size(unit.Dp(width), unit.Dp(height)))
					sized = true
				}
			}
			g.draw(gtx, stages)
			e.Frame(gtx.Ops)
		}
	}
}

func (g *Gui) snapshot() [2]stageImage {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.stages
}

// draw lays out the available stages side by side over the background.
func (g *Gui) draw(gtx C, stages [2]stageImage) D {
	paint.Fill(gtx.Ops, defaultBkgColor)

	var children []layout.FlexChild
	for _, s := range stages {
		if !s.ok {
			continue
		}
		src := s.src
		children = append(children, layout.Flexed(1, func(gtx C) D {
			return layout.UniformInset(unit.Dp(4)).Layout(gtx, func(gtx C) D {
				return widget.Image{
					Src:      src,
					Fit:      widget.Contain,
					Position: layout.Center,
					Scale:    1 / gtx.Metric.PxPerDp,
				}.Layout(gtx)
			})
		}))
	}

	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx, children...)
}

// windowSize returns the size of a window holding the two stages side by side.
// The aspect ratio is retained in case the images do not fit on the screen.
func windowSize(stages [2]stageImage) (width, height float64, ok bool) {
	for _, s := range stages {
		if s.ok {
			// Both stages have the same size.
			width, height, ok = float64(2*s.size.X), float64(s.size.Y), true
			break
		}
	}
	if !ok {
		return 0, 0, false
	}

	if width > maxScreenX || height > maxScreenY {
		ratio := utils.Min(maxScreenX/width, maxScreenY/height)
		width, height = width*ratio, height*ratio
	}
	return math.Round(width), math.Round(height), true
}
