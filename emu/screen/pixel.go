//go:build !ebiten

package screen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beanboi7/chyp8/emu/clock"
	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/input"
	"github.com/faiface/pixel"
	"github.com/faiface/pixel/pixelgl"
	"github.com/faiface/pixel/text"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font/basicfont"
)

const pixelName = "pixel"

func init() {
	register(pixelName, NewWindow)
	window = pixelName
	// pixelgl owns the main thread, window calls made from f are marshalled
	// onto it
	windowMain = pixelgl.Run
}

var buttons = map[rune]pixelgl.Button{
	'1': pixelgl.Key1, '2': pixelgl.Key2, '3': pixelgl.Key3, '4': pixelgl.Key4,
	'q': pixelgl.KeyQ, 'w': pixelgl.KeyW, 'e': pixelgl.KeyE, 'r': pixelgl.KeyR,
	'a': pixelgl.KeyA, 's': pixelgl.KeyS, 'd': pixelgl.KeyD, 'f': pixelgl.KeyF,
	'z': pixelgl.KeyZ, 'x': pixelgl.KeyX, 'c': pixelgl.KeyC, 'v': pixelgl.KeyV,
}

type Window struct {
	*pixelgl.Window
	KeyMap map[uint8]pixelgl.Button

	logger *log.Logger
	scale  float64
	sprite *pixel.Sprite
	status *text.Text
	paused bool
}

func NewWindow(logger *log.Logger, opts Options) (Backend, error) {
	w, h := windowSize(opts.Scale)
	cfg := pixelgl.WindowConfig{
		Title:  opts.Title,
		Bounds: pixel.R(0, 0, float64(w), float64(h)),
		VSync:  true,
	}

	win, err := pixelgl.NewWindow(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating window: %w", err)
	}
	win.SetSmooth(false)

	keyMap := make(map[uint8]pixelgl.Button, len(input.QWERTY))
	for r, key := range input.QWERTY {
		keyMap[key] = buttons[r]
	}

	pic := pixel.PictureDataFromImage(RGBA(cpu.Framebuffer{}, PixelOn, PixelOff))
	atlas := text.NewAtlas(basicfont.Face7x13, text.ASCII)
	status := text.New(pixel.V(4, 4), atlas)
	status.Color = colornames.White

	logger.Debug("Window created", log.Int("width", w), log.Int("height", h))

	return &Window{
		Window: win,
		KeyMap: keyMap,
		logger: logger,
		scale:  float64(PixelSize * opts.Scale),
		sprite: pixel.NewSprite(pic, pic.Bounds()),
		status: status,
	}, nil
}

// Poll reads the keypad and the control keys: Escape or closing the window
// quits, Space pauses, Enter steps.
func (w *Window) Poll(time.Time) input.State {
	var state input.State
	for key, button := range w.KeyMap {
		state.Keys[key] = w.Pressed(button)
	}
	state.Quit = w.Closed() || w.JustPressed(pixelgl.KeyEscape)
	state.Pause = w.JustPressed(pixelgl.KeySpace)
	state.Step = w.JustPressed(pixelgl.KeyEnter)
	return state
}

// Draw uploads a changed frame, it is shown on the next render.
func (w *Window) Draw(frame cpu.Framebuffer) error {
	pic := pixel.PictureDataFromImage(RGBA(frame, PixelOn, PixelOff))
	w.sprite.Set(pic, pic.Bounds())
	return nil
}

func (w *Window) Run(ctx context.Context, sched *clock.Scheduler) error {
	defer w.Destroy()

	for !sched.Done() {
		select {
		case <-ctx.Done():
			sched.Quit()
			return ctx.Err()
		default:
		}

		if err := sched.Step(time.Now()); err != nil {
			if errors.Is(err, clock.ErrQuit) {
				return nil
			}
			return err
		}

		w.render(sched.Paused())
		w.Update()
	}
	return nil
}

// render redraws the whole window, the back buffer does not survive a swap.
func (w *Window) render(paused bool) {
	w.Clear(PixelOff)
	w.sprite.Draw(w.Window, pixel.IM.Scaled(pixel.ZV, w.scale).Moved(w.Bounds().Center()))

	if paused != w.paused {
		w.paused = paused
		w.status.Clear()
		if paused {
			fmt.Fprint(w.status, "PAUSED - space resumes, enter steps")
		}
	}
	w.status.Draw(w.Window, pixel.IM)
}
