package screen

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/beanboi7/chyp8/emu/clock"
	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/input"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/term"
)

const terminalName = "term"

// pollInterval is how often the terminal loop steps the scheduler.
const pollInterval = 8 * time.Millisecond

func init() {
	register(terminalName, NewTerminal)
}

// Terminal draws the display with half-block characters, two display rows per
// text row, and reads the keypad from stdin in raw mode. Terminals report
// key presses only, so keys count as held for input.KeyRepeatDuration.
type Terminal struct {
	logger *log.Logger
	in     *os.File
	out    io.Writer

	keypad  *input.Keypad
	events  chan rune
	pending input.State
	paused  bool
	buf     bytes.Buffer
}

func NewTerminal(logger *log.Logger, _ Options) (Backend, error) {
	return &Terminal{
		logger: logger,
		in:     os.Stdin,
		out:    os.Stdout,
		keypad: input.NewKeypad(input.KeyRepeatDuration),
		events: make(chan rune, 64),
	}, nil
}

func (t *Terminal) Run(ctx context.Context, sched *clock.Scheduler) error {
	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("stdin is not a terminal")
	}
	if cols, rows, err := term.GetSize(fd); err == nil && (cols < cpu.Width || rows < cpu.Height/2+1) {
		t.logger.Warn("Terminal is smaller than the display",
			log.Int("columns", cols), log.Int("rows", rows))
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("setting raw mode: %w", err)
	}
	defer func() {
		fmt.Fprint(t.out, "\x1b[0m\x1b[?25h\r\n")
		_ = term.Restore(fd, state)
	}()

	// clear, hide cursor
	fmt.Fprint(t.out, "\x1b[2J\x1b[?25l")
	t.Draw(cpu.Framebuffer{})

	// the reader is left blocked on stdin when the loop ends, the process
	// exits right after
	go t.read()

	return sched.Run(ctx, pollInterval)
}

func (t *Terminal) read() {
	r := bufio.NewReader(t.in)
	for {
		c, _, err := r.ReadRune()
		if err != nil {
			close(t.events)
			return
		}
		t.events <- c
	}
}

// Poll drains the keys typed since the last call.
func (t *Terminal) Poll(now time.Time) input.State {
	state := t.pending
	t.pending = input.State{}

drain:
	for {
		select {
		case c, ok := <-t.events:
			if !ok {
				state.Quit = true
				break drain
			}
			t.handle(&state, c, now)
		default:
			break drain
		}
	}

	if state.Pause {
		t.paused = !t.paused
		t.status()
	}
	state.Keys = t.keypad.Snapshot(now)
	return state
}

func (t *Terminal) handle(state *input.State, c rune, now time.Time) {
	if control := input.ControlFor(c); control != input.NoControl {
		state.Apply(control)
		return
	}
	if key, ok := input.QWERTY.Lookup(c); ok {
		t.keypad.Press(key, now)
	}
}

func (t *Terminal) Draw(frame cpu.Framebuffer) error {
	t.buf.Reset()
	t.buf.WriteString("\x1b[H")
	writeHalfBlocks(&t.buf, frame)
	_, err := t.out.Write(t.buf.Bytes())
	return err
}

func (t *Terminal) status() {
	line := ""
	if t.paused {
		line = "PAUSED - space resumes, enter steps"
	}
	fmt.Fprintf(t.out, "\x1b[%d;1H\x1b[2K%s", cpu.Height/2+1, line)
}

// writeHalfBlocks renders two display rows per line, lines end in \r\n since
// the terminal is in raw mode.
func writeHalfBlocks(w *bytes.Buffer, frame cpu.Framebuffer) {
	for y := 0; y < cpu.Height; y += 2 {
		for x := 0; x < cpu.Width; x++ {
			top, bottom := frame.At(x, y), frame.At(x, y+1)
			switch {
			case top && bottom:
				w.WriteRune('█')
			case top:
				w.WriteRune('▀')
			case bottom:
				w.WriteRune('▄')
			default:
				w.WriteByte(' ')
			}
		}
		w.WriteString("\r\n")
	}
}
