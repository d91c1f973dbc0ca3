// Package audio plays the buzzer while the sound timer is running.
package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/retroenv/retrogolib/log"
)

const (
	SampleRate = beep.SampleRate(44100)
	ToneHz     = 440
	volume     = 0.2
)

// Beeper is a looping sound behind a pause switch. The speaker mixes on its
// own goroutine, so the switch is flipped under speaker.Lock.
type Beeper struct {
	logger *log.Logger
	ctrl   *beep.Ctrl
	closer func()
	active bool
}

// New starts the speaker with a square wave tone, or with the given mp3
// file looped when path is not empty.
func New(logger *log.Logger, path string) (*Beeper, error) {
	var tone beep.Streamer = newSquare(SampleRate, ToneHz, volume)
	closer := func() {}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening beep sample: %w", err)
		}
		streamer, format, err := mp3.Decode(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("decoding beep sample: %w", err)
		}
		tone = beep.Resample(4, format.SampleRate, SampleRate, beep.Loop(-1, streamer))
		closer = func() { _ = streamer.Close() }
		logger.Debug("Beep sample loaded", log.String("file", path))
	}

	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/30)); err != nil {
		closer()
		return nil, fmt.Errorf("initialising speaker: %w", err)
	}

	b := &Beeper{
		logger: logger,
		ctrl:   &beep.Ctrl{Streamer: tone, Paused: true},
		closer: closer,
	}
	speaker.Play(b.ctrl)
	return b, nil
}

// SetActive implements clock.Sound.
func (b *Beeper) SetActive(on bool) {
	if on == b.active {
		return
	}
	b.active = on

	speaker.Lock()
	b.ctrl.Paused = !on
	speaker.Unlock()
}

func (b *Beeper) Close() {
	b.SetActive(false)
	speaker.Clear()
	b.closer()
}

// square is an endless square wave.
type square struct {
	half   int // samples per half period
	pos    int
	volume float64
}

func newSquare(sr beep.SampleRate, hz int, volume float64) *square {
	half := int(sr) / hz / 2
	if half < 1 {
		half = 1
	}
	return &square{half: half, volume: volume}
}

func (s *square) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		v := s.volume
		if s.pos >= s.half {
			v = -v
		}
		samples[i][0], samples[i][1] = v, v
		s.pos = (s.pos + 1) % (2 * s.half)
	}
	return len(samples), true
}

func (s *square) Err() error { return nil }
