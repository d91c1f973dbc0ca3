package audio

import (
	"testing"

	"github.com/faiface/beep"
	"github.com/retroenv/retrogolib/assert"
)

func TestSquare(t *testing.T) {
	// 8 samples per period
	s := newSquare(beep.SampleRate(800), 100, 0.5)
	samples := make([][2]float64, 12)

	n, ok := s.Stream(samples)
	assert.Equal(t, 12, n)
	assert.True(t, ok)
	assert.NoError(t, s.Err())

	want := []float64{0.5, 0.5, 0.5, 0.5, -0.5, -0.5, -0.5, -0.5, 0.5, 0.5, 0.5, 0.5}
	for i, v := range want {
		assert.Equal(t, v, samples[i][0])
		assert.Equal(t, v, samples[i][1])
	}

	// the phase carries over between calls
	n, _ = s.Stream(samples[:1])
	assert.Equal(t, 1, n)
	assert.Equal(t, -0.5, samples[0][0])
}

func TestSquareMinimumPeriod(t *testing.T) {
	s := newSquare(beep.SampleRate(100), 1000, 1)
	assert.Equal(t, 1, s.half)
}

func TestSetActive(t *testing.T) {
	b := &Beeper{ctrl: &beep.Ctrl{Paused: true}}

	b.SetActive(true)
	assert.False(t, b.ctrl.Paused)

	b.SetActive(true)
	assert.False(t, b.ctrl.Paused)

	b.SetActive(false)
	assert.True(t, b.ctrl.Paused)
}
