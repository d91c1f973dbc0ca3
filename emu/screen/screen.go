// Package screen holds the host backends. A backend is both the Input Adapter
// and the Display Sink for the scheduler, and owns the host's loop.
//
// Window backends are chosen at build time: pixel by default, ebiten with
// -tags ebiten. The terminal backend is always available.
package screen

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/beanboi7/chyp8/emu/clock"
	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/image/colornames"
)

// PixelSize is how many host pixels one display pixel covers at scale 1.
const PixelSize = 10

const Title = "Chyp8"

var (
	PixelOn  color.RGBA = colornames.Limegreen
	PixelOff color.RGBA = colornames.Black
)

type Options struct {
	Scale int
	Title string
}

// Backend runs the host loop, driving the scheduler until it is done.
type Backend interface {
	clock.Input
	clock.Display
	Run(ctx context.Context, sched *clock.Scheduler) error
}

type Factory func(logger *log.Logger, opts Options) (Backend, error)

var backends = map[string]Factory{}

// window is the name of the window backend compiled in, if any.
var window string

// windowMain hands the main thread to the window toolkit for the duration of
// f, nil when the toolkit takes it on its own.
var windowMain func(f func())

// Main runs f, which creates and runs the named backend, on the thread that
// backend needs. Only the window backend initialises its toolkit, so the
// terminal and every other command keep working without a display.
func Main(name string, f func()) {
	if name == window && windowMain != nil {
		windowMain(f)
		return
	}
	f()
}

func register(name string, factory Factory) {
	backends[name] = factory
}

// New creates the named backend.
func New(name string, logger *log.Logger, opts Options) (Backend, error) {
	factory, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q, available: %v", name, Names())
	}
	if opts.Scale <= 0 {
		return nil, fmt.Errorf("invalid scale %d", opts.Scale)
	}
	if opts.Title == "" {
		opts.Title = Title
	}
	return factory(logger, opts)
}

func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the window backend when one is compiled in, the terminal
// otherwise.
func Default() string {
	if window != "" {
		return window
	}
	return terminalName
}

// RGBA converts a frame to a 64x32 image, one image pixel per display pixel.
func RGBA(frame cpu.Framebuffer, on, off color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cpu.Width, cpu.Height))
	for y := 0; y < cpu.Height; y++ {
		for x := 0; x < cpu.Width; x++ {
			c := off
			if frame.At(x, y) {
				c = on
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// windowSize is the window size in host pixels for a scale factor.
func windowSize(scale int) (int, int) {
	return cpu.Width * PixelSize * scale, cpu.Height * PixelSize * scale
}
