package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/input"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

type fakeInput struct {
	keys    [16]bool
	pending input.State
	polls   int
}

func (f *fakeInput) Poll(time.Time) input.State {
	f.polls++
	state := f.pending
	state.Keys = f.keys
	f.pending = input.State{}
	return state
}

type fakeDisplay struct {
	frames int
	last   cpu.Framebuffer
	err    error
}

func (f *fakeDisplay) Draw(frame cpu.Framebuffer) error {
	f.frames++
	f.last = frame
	return f.err
}

type fakeSound struct {
	active  bool
	changes int
}

func (f *fakeSound) SetActive(on bool) {
	if on != f.active {
		f.changes++
	}
	f.active = on
}

type fixture struct {
	sched   *Scheduler
	emu     *cpu.EMU
	input   *fakeInput
	display *fakeDisplay
	sound   *fakeSound
	now     time.Time
}

func newTestLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ErrorLevel
	return log.NewWithConfig(cfg)
}

func newFixture(t *testing.T, speed int, program ...uint8) *fixture {
	t.Helper()

	emu := cpu.New(cpu.WithSeed(1))
	_, _, err := emu.Load(program)
	assert.NoError(t, err)

	f := &fixture{
		emu:     emu,
		input:   &fakeInput{},
		display: &fakeDisplay{},
		sound:   &fakeSound{},
		now:     time.Unix(1000, 0),
	}
	f.sched, err = New(newTestLogger(), emu, Config{
		Speed:   speed,
		Input:   f.input,
		Display: f.display,
		Sound:   f.sound,
	})
	assert.NoError(t, err)

	// the first step only sets the reference time
	assert.NoError(t, f.sched.Step(f.now))
	assert.Equal(t, uint64(0), emu.Cycles())
	return f
}

// advance moves the fake clock forward and runs one outer loop iteration.
func (f *fixture) advance(d time.Duration) error {
	f.now = f.now.Add(d)
	return f.sched.Step(f.now)
}

func (f *fixture) run(t *testing.T, total, interval time.Duration) {
	t.Helper()
	for elapsed := time.Duration(0); elapsed < total; elapsed += interval {
		assert.NoError(t, f.advance(interval))
	}
}

func TestNewValidates(t *testing.T) {
	emu := cpu.New()

	_, err := New(newTestLogger(), emu, Config{Speed: 0, Input: &fakeInput{}, Display: &fakeDisplay{}})
	assert.Error(t, err)

	_, err = New(newTestLogger(), emu, Config{Speed: DefaultSpeed})
	assert.Error(t, err)

	_, err = New(newTestLogger(), emu, Config{Speed: MaxSpeed + 1, Input: &fakeInput{}, Display: &fakeDisplay{}})
	assert.Error(t, err)

	_, err = New(newTestLogger(), emu, Config{Speed: MaxSpeed, Input: &fakeInput{}, Display: &fakeDisplay{}})
	assert.NoError(t, err)
}

func TestCycles(t *testing.T) {
	assert.Equal(t, 5, Cycles(10*time.Millisecond, 500))
	assert.Equal(t, 0, Cycles(time.Millisecond, 500))
	assert.Equal(t, 1, Cycles(3*time.Millisecond, 500))
	assert.Equal(t, 0, Cycles(-time.Second, 500))
	assert.Equal(t, 700, Cycles(time.Second, 700))
	assert.Equal(t, 10*time.Millisecond, Duration(5, 500))
}

func TestStepExecutesElapsedCycles(t *testing.T) {
	// jp 0x200
	f := newFixture(t, 500, 0x12, 0x00)

	assert.NoError(t, f.advance(10*time.Millisecond))
	assert.Equal(t, uint64(5), f.emu.Cycles())

	assert.NoError(t, f.advance(20*time.Millisecond))
	assert.Equal(t, uint64(15), f.emu.Cycles())
}

func TestStepCarriesRemainder(t *testing.T) {
	f := newFixture(t, 500, 0x12, 0x00)

	// 1ms is half an instruction at 500Hz, nothing runs
	assert.NoError(t, f.advance(time.Millisecond))
	assert.Equal(t, uint64(0), f.emu.Cycles())
	assert.Equal(t, 2, f.input.polls)

	assert.NoError(t, f.advance(time.Millisecond))
	assert.Equal(t, uint64(1), f.emu.Cycles())

	assert.NoError(t, f.advance(3*time.Millisecond))
	assert.Equal(t, uint64(2), f.emu.Cycles())

	assert.NoError(t, f.advance(time.Millisecond))
	assert.Equal(t, uint64(3), f.emu.Cycles())
}

func TestStepCapsLag(t *testing.T) {
	f := newFixture(t, 1000, 0x12, 0x00)

	assert.NoError(t, f.advance(10*time.Second))
	assert.Equal(t, uint64(250), f.emu.Cycles())

	assert.NoError(t, f.advance(10*time.Millisecond))
	assert.Equal(t, uint64(260), f.emu.Cycles())
}

func TestTimersTickAtSixtyHertz(t *testing.T) {
	// ld V0, 100; ld DT, V0; jp 0x204
	f := newFixture(t, 1000, 0x60, 100, 0xF0, 0x15, 0x12, 0x04)

	f.run(t, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1000), f.emu.Cycles())
	assert.Equal(t, uint64(60), f.sched.Ticks())
	assert.Equal(t, uint8(40), f.emu.DelayTimer())
}

func TestTimerRateIndependentOfHostRate(t *testing.T) {
	for _, interval := range []time.Duration{time.Millisecond, 8 * time.Millisecond, 50 * time.Millisecond} {
		f := newFixture(t, 1000, 0x12, 0x00)
		f.run(t, 2*time.Second, interval)
		assert.Equal(t, uint64(2000), f.emu.Cycles())
		assert.Equal(t, uint64(120), f.sched.Ticks())
	}
}

func TestTimerRateExactForAnySpeed(t *testing.T) {
	for _, speed := range []int{30, 500, 700, 1000, 1337} {
		f := newFixture(t, speed, 0x12, 0x00)
		f.run(t, time.Minute, 100*time.Millisecond)
		assert.Equal(t, uint64(3600), f.sched.Ticks(), speed)
	}
}

func TestDisplayDrawnAtTicksOnlyWhenDirty(t *testing.T) {
	// cls; jp 0x200
	f := newFixture(t, 1000, 0x00, 0xE0, 0x12, 0x00)

	f.run(t, time.Second, 10*time.Millisecond)
	assert.Equal(t, 60, f.display.frames)
	assert.Equal(t, 0, f.display.last.Lit())

	// jp 0x200, never touches the display
	f = newFixture(t, 1000, 0x12, 0x00)
	f.run(t, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.display.frames)
}

func TestDisplayGetsSprite(t *testing.T) {
	// ld I, glyph 8 (0x28); drw V0, V0, 5; jp 0x204
	f := newFixture(t, 1000, 0xA0, 0x28, 0xD0, 0x05, 0x12, 0x04)

	f.run(t, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 1, f.display.frames)
	assert.True(t, f.display.last.At(0, 0))
	assert.False(t, f.emu.Dirty())
}

func TestDisplayError(t *testing.T) {
	f := newFixture(t, 1000, 0x00, 0xE0, 0x12, 0x00)
	f.display.err = errors.New("renderer gone")

	err := f.advance(20 * time.Millisecond)
	assert.Error(t, err)
	assert.True(t, f.sched.Done())
}

func TestSoundFollowsTimer(t *testing.T) {
	// ld V0, 10; ld ST, V0; jp 0x204
	f := newFixture(t, 1000, 0x60, 10, 0xF0, 0x18, 0x12, 0x04)

	assert.NoError(t, f.advance(20*time.Millisecond))
	assert.True(t, f.sound.active)

	f.run(t, 200*time.Millisecond, 10*time.Millisecond)
	assert.False(t, f.sound.active)
	assert.Equal(t, uint8(0), f.emu.SoundTimer())
	assert.Equal(t, 2, f.sound.changes)
}

func TestPauseAndSingleStep(t *testing.T) {
	f := newFixture(t, 500, 0x12, 0x00)

	f.input.pending.Pause = true
	assert.NoError(t, f.advance(100*time.Millisecond))
	assert.True(t, f.sched.Paused())
	assert.Equal(t, uint64(0), f.emu.Cycles())

	assert.NoError(t, f.advance(100*time.Millisecond))
	assert.Equal(t, uint64(0), f.emu.Cycles())

	f.input.pending.Step = true
	assert.NoError(t, f.advance(100*time.Millisecond))
	assert.Equal(t, uint64(1), f.emu.Cycles())

	// resuming does not catch up on the time spent paused
	f.input.pending.Pause = true
	assert.NoError(t, f.advance(10*time.Millisecond))
	assert.False(t, f.sched.Paused())
	assert.Equal(t, uint64(6), f.emu.Cycles())
}

func TestSingleStepPresentsFrame(t *testing.T) {
	// 00E0 sets the dirty flag, then spin
	f := newFixture(t, 500, 0x00, 0xE0, 0x12, 0x02)

	f.input.pending.Pause = true
	assert.NoError(t, f.advance(10*time.Millisecond))
	assert.Equal(t, 0, f.display.frames)

	f.input.pending.Step = true
	assert.NoError(t, f.advance(10*time.Millisecond))
	assert.Equal(t, uint64(1), f.emu.Cycles())
	assert.Equal(t, 1, f.display.frames)

	// nothing changed on the second step
	f.input.pending.Step = true
	assert.NoError(t, f.advance(10*time.Millisecond))
	assert.Equal(t, 1, f.display.frames)
}

func TestSingleStepIgnoredWhileRunning(t *testing.T) {
	f := newFixture(t, 500, 0x12, 0x00)

	f.input.pending.Step = true
	assert.NoError(t, f.advance(10*time.Millisecond))
	assert.Equal(t, uint64(5), f.emu.Cycles())
}

func TestQuit(t *testing.T) {
	f := newFixture(t, 500, 0x12, 0x00)

	f.input.pending.Quit = true
	err := f.advance(10 * time.Millisecond)
	assert.True(t, errors.Is(err, ErrQuit))
	assert.True(t, f.sched.Done())
	assert.True(t, f.emu.Halted())
	assert.Equal(t, uint64(0), f.emu.Cycles())

	assert.True(t, errors.Is(f.advance(10*time.Millisecond), ErrQuit))
}

func TestDecodeErrorHalts(t *testing.T) {
	// ld V0, 1; then an undefined word
	f := newFixture(t, 500, 0x60, 0x01, 0xFF, 0xFF)
	f.sound.active = true

	err := f.advance(10 * time.Millisecond)
	var decodeErr *cpu.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, uint16(0x202), decodeErr.PC)
	assert.Equal(t, uint64(2), f.emu.Cycles())
	assert.True(t, f.sched.Done())
	assert.False(t, f.sound.active)

	assert.Equal(t, err, f.advance(10*time.Millisecond))
	assert.Equal(t, uint64(2), f.emu.Cycles())
}

func TestWaitForKeyAcrossSteps(t *testing.T) {
	// ld V1, K; jp 0x202
	f := newFixture(t, 500, 0xF1, 0x0A, 0x12, 0x02)

	f.run(t, 50*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, uint16(0x200), f.emu.PC())

	f.input.keys[0xC] = true
	assert.NoError(t, f.advance(2*time.Millisecond))
	assert.Equal(t, uint16(0x202), f.emu.PC())
	assert.Equal(t, uint8(0xC), f.emu.V[1])
}

func TestRunStopsOnQuit(t *testing.T) {
	emu := cpu.New()
	_, _, err := emu.Load([]uint8{0x12, 0x00})
	assert.NoError(t, err)

	in := &quitAfter{n: 3}
	sched, err := New(newTestLogger(), emu, Config{Speed: 500, Input: in, Display: &fakeDisplay{}})
	assert.NoError(t, err)

	assert.NoError(t, sched.Run(context.Background(), time.Millisecond))
	assert.True(t, sched.Done())
}

func TestRunStopsOnCancel(t *testing.T) {
	emu := cpu.New()
	_, _, err := emu.Load([]uint8{0x12, 0x00})
	assert.NoError(t, err)

	sched, err := New(newTestLogger(), emu, Config{Speed: 500, Input: &fakeInput{}, Display: &fakeDisplay{}})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sched.Run(ctx, time.Millisecond)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, sched.Done())
}

type quitAfter struct {
	n int
}

func (q *quitAfter) Poll(time.Time) input.State {
	q.n--
	return input.State{Quit: q.n <= 0}
}
