// Package clock paces the interpreter against the wall clock.
//
// The host calls Step once per iteration of its own loop, at whatever rate it
// runs. Step turns the elapsed real time into a batch of instructions for the
// configured clock speed, and decrements the timers once per 1/60s of
// emulated time. The display is redrawn at those 60Hz boundaries only, and
// only when the framebuffer changed.
package clock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/input"
	"github.com/retroenv/retrogolib/log"
)

const (
	DefaultSpeed = 500

	TimerRate = 60

	// MaxLag caps how much real time a single Step catches up on, so a host
	// that stalled (window drag, debugger) does not cause a long burst.
	MaxLag = 250 * time.Millisecond

	// MaxSpeed is one instruction per nanosecond, the resolution of the
	// wall clock the scheduler is driven by.
	MaxSpeed = int(time.Second)
)

var ErrQuit = errors.New("quit requested")

// Input is polled once per Step, before any instruction runs.
type Input interface {
	Poll(now time.Time) input.State
}

// Display receives the framebuffer when it changed, at most once per tick.
type Display interface {
	Draw(frame cpu.Framebuffer) error
}

// Sound follows the sound timer.
type Sound interface {
	SetActive(on bool)
}

type Config struct {
	Speed   int // instructions per second
	Input   Input
	Display Display
	Sound   Sound // optional
}

type Scheduler struct {
	emu     *cpu.EMU
	logger  *log.Logger
	input   Input
	display Display
	sound   Sound

	speed int

	started bool
	last    time.Time
	acc     int // TimerRate per instruction, a tick every speed units

	paused bool
	step   bool
	done   bool
	err    error

	ticks uint64
}

func New(logger *log.Logger, emu *cpu.EMU, cfg Config) (*Scheduler, error) {
	if cfg.Speed <= 0 || cfg.Speed > MaxSpeed {
		return nil, fmt.Errorf("invalid clock speed %d", cfg.Speed)
	}
	if cfg.Input == nil || cfg.Display == nil {
		return nil, errors.New("scheduler needs an input and a display")
	}

	return &Scheduler{
		emu:     emu,
		logger:  logger,
		input:   cfg.Input,
		display: cfg.Display,
		sound:   cfg.Sound,
		speed:   cfg.Speed,
	}, nil
}

// Step runs one iteration of the outer loop at the given wall-clock time.
// Once the machine halted or quit was requested every call returns the
// reason: the executor's error or ErrQuit.
func (s *Scheduler) Step(now time.Time) error {
	if s.done {
		return s.err
	}

	state := s.input.Poll(now)
	if state.Quit {
		s.Quit()
		return s.err
	}
	if state.Pause {
		s.TogglePause()
	}
	if state.Step {
		s.SingleStep()
	}
	s.emu.SetKeys(state.Keys)

	if !s.started {
		s.started = true
		s.last = now
		return nil
	}

	if s.paused {
		s.last = now
		if !s.step {
			return nil
		}
		s.step = false
		if err := s.execute(1); err != nil {
			return err
		}
		// no tick boundary is reached while paused, show the step right away
		if err := s.present(); err != nil {
			return s.fail(err)
		}
		return nil
	}

	elapsed := now.Sub(s.last)
	if elapsed > MaxLag {
		elapsed = MaxLag
		s.last = now.Add(-MaxLag)
	}

	cycles := Cycles(elapsed, s.speed)
	if cycles == 0 {
		return nil
	}
	s.last = s.last.Add(Duration(cycles, s.speed))

	return s.execute(cycles)
}

func (s *Scheduler) execute(cycles int) error {
	for i := 0; i < cycles; i++ {
		if err := s.emu.EmulateCycle(); err != nil {
			return s.fail(err)
		}

		s.acc += TimerRate
		for s.acc >= s.speed {
			s.acc -= s.speed
			if err := s.tick(); err != nil {
				return s.fail(err)
			}
		}
	}
	return nil
}

// tick is one 60Hz boundary: timers, then the display if it changed.
func (s *Scheduler) tick() error {
	s.ticks++
	s.emu.TickTimers()

	if s.sound != nil {
		s.sound.SetActive(s.emu.SoundTimer() > 0)
	}

	return s.present()
}

// present hands the framebuffer to the display if it changed.
func (s *Scheduler) present() error {
	frame, ok := s.emu.Frame()
	if !ok {
		return nil
	}
	if err := s.display.Draw(frame); err != nil {
		return fmt.Errorf("drawing frame: %w", err)
	}
	return nil
}

func (s *Scheduler) fail(err error) error {
	s.logger.Error("Machine halted",
		log.Err(err),
		log.Hex("pc", s.emu.PC()),
		log.Hex("opcode", uint16(s.emu.Opcode())),
		log.String("instruction", cpu.Mnemonic(s.emu.Opcode())))
	s.stop(err)
	return err
}

func (s *Scheduler) stop(err error) {
	s.emu.Halt()
	s.done = true
	s.err = err
	if s.sound != nil {
		s.sound.SetActive(false)
	}
}

// Quit stops the loop; the current instruction has already completed.
func (s *Scheduler) Quit() {
	if s.done {
		return
	}
	s.logger.Info("Quit requested", log.Hex("pc", s.emu.PC()))
	s.stop(ErrQuit)
}

func (s *Scheduler) TogglePause() {
	s.paused = !s.paused
	s.logger.Info("Pause toggled", log.Bool("paused", s.paused))
	if s.sound != nil {
		s.sound.SetActive(!s.paused && s.emu.SoundTimer() > 0)
	}
}

// SingleStep runs exactly one instruction on the next Step while paused.
func (s *Scheduler) SingleStep() {
	if s.paused {
		s.logger.Debug("Stepping through", log.Hex("pc", s.emu.PC()))
		s.step = true
	}
}

func (s *Scheduler) Paused() bool { return s.paused }

// Done reports whether the loop is over, Err tells why.
func (s *Scheduler) Done() bool { return s.done }

// Err is nil while running, ErrQuit after a requested quit, otherwise the
// executor's error.
func (s *Scheduler) Err() error { return s.err }

// Ticks is the number of 60Hz timer ticks applied so far.
func (s *Scheduler) Ticks() uint64 { return s.ticks }

func (s *Scheduler) Machine() *cpu.EMU { return s.emu }

// Run drives Step from a ticker until the loop is over or ctx is cancelled.
// A requested quit ends Run without an error.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.Step(time.Now()); err != nil {
		return filterQuit(err)
	}
	for {
		select {
		case <-ctx.Done():
			s.Quit()
			return ctx.Err()
		case now := <-ticker.C:
			if err := s.Step(now); err != nil {
				return filterQuit(err)
			}
		}
	}
}

func filterQuit(err error) error {
	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}

// Cycles is how many instructions fit in elapsed at speed instructions per
// second, rounded down.
func Cycles(elapsed time.Duration, speed int) int {
	if elapsed <= 0 {
		return 0
	}
	return int(int64(elapsed) * int64(speed) / int64(time.Second))
}

// Duration is the real time that cycles instructions take at speed.
func Duration(cycles, speed int) time.Duration {
	return time.Duration(int64(cycles) * int64(time.Second) / int64(speed))
}
