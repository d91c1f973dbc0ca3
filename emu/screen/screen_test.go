package screen

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/input"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func newTestLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ErrorLevel
	return log.NewWithConfig(cfg)
}

func TestRGBA(t *testing.T) {
	var frame cpu.Framebuffer
	frame.Set(3, 7, true)

	img := RGBA(frame, PixelOn, PixelOff)
	assert.Equal(t, cpu.Width, img.Bounds().Dx())
	assert.Equal(t, cpu.Height, img.Bounds().Dy())
	assert.Equal(t, PixelOn, img.RGBAAt(3, 7))
	assert.Equal(t, PixelOff, img.RGBAAt(4, 7))
}

func TestNewBackend(t *testing.T) {
	_, err := New("nope", newTestLogger(), Options{Scale: 1})
	assert.Error(t, err)

	_, err = New(terminalName, newTestLogger(), Options{Scale: 0})
	assert.Error(t, err)

	b, err := New(terminalName, newTestLogger(), Options{Scale: 1})
	assert.NoError(t, err)
	assert.NotNil(t, b)
}

func TestDefaultIsRegistered(t *testing.T) {
	found := false
	for _, name := range Names() {
		if name == Default() {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMainRunsTerminalDirectly(t *testing.T) {
	called := false
	Main(terminalName, func() { called = true })
	assert.True(t, called)

	// unknown names fail later in New, never in the window toolkit
	called = false
	Main("nope", func() { called = true })
	assert.True(t, called)
}

func TestWindowSize(t *testing.T) {
	w, h := windowSize(2)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 640, h)
}

func TestHalfBlocks(t *testing.T) {
	var frame cpu.Framebuffer
	frame.Set(0, 0, true)
	frame.Set(0, 1, true)
	frame.Set(1, 0, true)
	frame.Set(2, 1, true)

	var buf bytes.Buffer
	writeHalfBlocks(&buf, frame)

	lines := strings.Split(buf.String(), "\r\n")
	assert.Equal(t, cpu.Height/2+1, len(lines))
	assert.Equal(t, cpu.Width, utf8.RuneCountInString(lines[0]))
	assert.True(t, strings.HasPrefix(lines[0], "█▀▄ "))
	assert.Equal(t, strings.Repeat(" ", cpu.Width), lines[1])
}

func newTestTerminal() (*Terminal, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Terminal{
		logger: newTestLogger(),
		out:    out,
		keypad: input.NewKeypad(100 * time.Millisecond),
		events: make(chan rune, 8),
	}, out
}

func TestTerminalPoll(t *testing.T) {
	term, out := newTestTerminal()
	now := time.Unix(10, 0)

	term.events <- 'w'
	term.events <- 'V'
	term.events <- 'p'
	state := term.Poll(now)
	assert.True(t, state.Keys[0x5])
	assert.True(t, state.Keys[0xF])
	assert.False(t, state.Quit)

	// still held on the next poll, released after the hold time
	assert.True(t, term.Poll(now.Add(50 * time.Millisecond)).Keys[0x5])
	assert.False(t, term.Poll(now.Add(100 * time.Millisecond)).Keys[0x5])

	term.events <- ' '
	state = term.Poll(now)
	assert.True(t, state.Pause)
	assert.True(t, strings.Contains(out.String(), "PAUSED"))

	term.events <- '\r'
	assert.True(t, term.Poll(now).Step)

	close(term.events)
	assert.True(t, term.Poll(now).Quit)
}

func TestTerminalDraw(t *testing.T) {
	term, out := newTestTerminal()

	var frame cpu.Framebuffer
	frame.Set(5, 0, true)
	assert.NoError(t, term.Draw(frame))
	assert.True(t, strings.HasPrefix(out.String(), "\x1b[H     ▀"))
}
