//go:build ebiten

package screen

import (
	"context"
	"errors"
	"time"

	"github.com/beanboi7/chyp8/emu/clock"
	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/input"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font/basicfont"
)

const ebitenName = "ebiten"

func init() {
	register(ebitenName, NewEbiten)
	window = ebitenName
}

var ebitenKeys = map[rune]ebiten.Key{
	'1': ebiten.KeyDigit1, '2': ebiten.KeyDigit2, '3': ebiten.KeyDigit3, '4': ebiten.KeyDigit4,
	'q': ebiten.KeyQ, 'w': ebiten.KeyW, 'e': ebiten.KeyE, 'r': ebiten.KeyR,
	'a': ebiten.KeyA, 's': ebiten.KeyS, 'd': ebiten.KeyD, 'f': ebiten.KeyF,
	'z': ebiten.KeyZ, 'x': ebiten.KeyX, 'c': ebiten.KeyC, 'v': ebiten.KeyV,
}

// EbitenOutput is an ebiten.Game: Update drives the scheduler, Draw presents
// the last frame the scheduler handed over.
type EbitenOutput struct {
	logger *log.Logger
	title  string
	width  int
	height int
	keyMap map[uint8]ebiten.Key

	ctx   context.Context
	sched *clock.Scheduler
	err   error

	frame *ebiten.Image
}

func NewEbiten(logger *log.Logger, opts Options) (Backend, error) {
	w, h := windowSize(opts.Scale)

	keyMap := make(map[uint8]ebiten.Key, len(input.QWERTY))
	for r, key := range input.QWERTY {
		keyMap[key] = ebitenKeys[r]
	}

	eo := &EbitenOutput{
		logger: logger,
		title:  opts.Title,
		width:  w,
		height: h,
		keyMap: keyMap,
		frame:  ebiten.NewImage(cpu.Width, cpu.Height),
	}
	eo.frame.Fill(PixelOff)
	return eo, nil
}

func (eo *EbitenOutput) Poll(time.Time) input.State {
	var state input.State
	for key, k := range eo.keyMap {
		state.Keys[key] = ebiten.IsKeyPressed(k)
	}
	state.Quit = ebiten.IsWindowBeingClosed() || inpututil.IsKeyJustPressed(ebiten.KeyEscape)
	state.Pause = inpututil.IsKeyJustPressed(ebiten.KeySpace)
	state.Step = inpututil.IsKeyJustPressed(ebiten.KeyEnter)
	return state
}

// Draw implements clock.Display, ebiten's own Draw lives on game.
func (eo *EbitenOutput) Draw(frame cpu.Framebuffer) error {
	eo.frame.WritePixels(RGBA(frame, PixelOn, PixelOff).Pix)
	return nil
}

func (eo *EbitenOutput) Run(ctx context.Context, sched *clock.Scheduler) error {
	eo.ctx = ctx
	eo.sched = sched

	ebiten.SetWindowSize(eo.width, eo.height)
	ebiten.SetWindowTitle(eo.title)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)

	if err := ebiten.RunGame(game{eo}); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return eo.err
}

// game adapts EbitenOutput to ebiten.Game, whose Draw signature clashes with
// clock.Display.
type game struct {
	eo *EbitenOutput
}

func (g game) Update() error {
	eo := g.eo
	select {
	case <-eo.ctx.Done():
		eo.sched.Quit()
		eo.err = eo.ctx.Err()
		return ebiten.Termination
	default:
	}

	if err := eo.sched.Step(time.Now()); err != nil {
		if !errors.Is(err, clock.ErrQuit) {
			eo.err = err
		}
		return ebiten.Termination
	}
	return nil
}

func (g game) Draw(screen *ebiten.Image) {
	eo := g.eo
	screen.Fill(PixelOff)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(PixelSize, PixelSize)
	screen.DrawImage(eo.frame, op)

	if eo.sched != nil && eo.sched.Paused() {
		text.Draw(screen, "PAUSED - space resumes, enter steps", basicfont.Face7x13, 4, cpu.Height*PixelSize-6, colornames.White)
	}
}

func (g game) Layout(int, int) (int, int) {
	return cpu.Width * PixelSize, cpu.Height * PixelSize
}
