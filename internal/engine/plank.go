package engine

import "time"

// plankMachine tracks a sustained hold instead of repetition cycles. Time
// accrues while the body line stays within the deviation budget; when the
// deviation stays out of budget past the debounce window the machine
// enters BrokenForm and the timer pauses until form recovers. Frames with
// bad form never accrue, even before BrokenForm is confirmed.
type plankMachine struct {
	p Params

	phase      Phase
	breakDwell dwell
	lastNanos  int64 // last tracked frame with good form; 0 pauses accrual
	heldNanos  int64
}

func newPlankMachine(params Params) *plankMachine {
	return &plankMachine{p: params, phase: PhaseIdle}
}

// Phase returns the current phase.
func (m *plankMachine) Phase() Phase { return m.phase }

// Reset discards the hold timer and returns to Idle.
func (m *plankMachine) Reset() {
	m.phase = PhaseIdle
	m.breakDwell.clear()
	m.lastNanos = 0
	m.heldNanos = 0
}

// HoldSeconds returns the accumulated active hold time.
func (m *plankMachine) HoldSeconds() float64 {
	return time.Duration(m.heldNanos).Seconds()
}

// Observe consumes one snapshot. Plank never emits RepEvents; progress is
// the accrued hold duration.
func (m *plankMachine) Observe(s Snapshot) (*RepEvent, error) {
	if !s.Tracking {
		// Dropout: pause accrual and restart the break debounce, but keep
		// the phase. Skipped frames are never credited.
		m.lastNanos = 0
		m.breakDwell.clear()
		return nil, nil
	}
	dev, ok := s.Feature(FeatBodyLine)
	if !ok {
		m.lastNanos = 0
		m.breakDwell.clear()
		return nil, nil
	}

	good := dev <= m.p.PlankDeviationMax

	switch m.phase {
	case PhaseIdle:
		if good {
			m.phase = PhaseHolding
		}

	case PhaseHolding:
		if good {
			if m.lastNanos != 0 {
				m.heldNanos += s.UnixNanos - m.lastNanos
			}
		} else if m.breakDwell.hold(!good, s.UnixNanos, m.p.Debounce) {
			m.phase = PhaseBrokenForm
			m.breakDwell.clear()
		}

	case PhaseBrokenForm:
		if good {
			m.phase = PhaseHolding
		}
	}

	if good {
		m.lastNanos = s.UnixNanos
		m.breakDwell.clear()
	} else {
		// Bad-form frames never accrue, confirmed or not.
		m.lastNanos = 0
	}
	return nil, nil
}
