package input

import "time"

// Keypad emulates held keys for hosts that only report key presses. Every
// press keeps the key down for the hold duration; repeated presses from the
// host's auto-repeat extend it.
type Keypad struct {
	hold  time.Duration
	until [16]time.Time
}

func NewKeypad(hold time.Duration) *Keypad {
	if hold <= 0 {
		hold = KeyRepeatDuration
	}
	return &Keypad{hold: hold}
}

func (k *Keypad) Press(key uint8, now time.Time) {
	k.until[key&0xF] = now.Add(k.hold)
}

func (k *Keypad) Release(key uint8) {
	k.until[key&0xF] = time.Time{}
}

// Snapshot returns which keys are held at now.
func (k *Keypad) Snapshot(now time.Time) [16]bool {
	var keys [16]bool
	for i, until := range k.until {
		keys[i] = now.Before(until)
	}
	return keys
}
