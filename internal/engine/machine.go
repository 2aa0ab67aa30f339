package engine

import "time"

// Phase is a named stage within an exercise's movement cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseDescending Phase = "descending"
	PhaseBottomHold Phase = "bottom_hold"
	PhaseAscending  Phase = "ascending"
	PhaseHolding    Phase = "holding"
	PhaseBrokenForm Phase = "broken_form"
)

// RepEvent carries the raw measurements of one validated repetition cycle.
// It is emitted exactly once per full descend-bottom-ascend cycle that
// reached the required extremum; the scorer turns it into a form score.
type RepEvent struct {
	Exercise   Exercise
	StartNanos int64
	EndNanos   int64

	// Bottom is the extremum of the primary feature over the cycle.
	Bottom float64

	// Timeline holds the primary-feature samples across the cycle.
	Timeline []float64

	// Asymmetry is the mean absolute left/right angle difference over the
	// cycle, unavailable when only one side was tracked.
	Asymmetry   float64
	AsymmetryOK bool

	// BalanceDrift is the peak lateral hip displacement over the cycle as
	// a fraction of leg length (lunge only).
	BalanceDrift   float64
	BalanceDriftOK bool
}

// Duration returns the cycle's elapsed time.
func (ev *RepEvent) Duration() time.Duration {
	return time.Duration(ev.EndNanos - ev.StartNanos)
}

// Machine is the shared contract of the per-exercise phase automatons.
// Observe must be called with snapshots in frame order; a snapshot with
// Tracking=false is a no-op frame (no transition, no rep).
type Machine interface {
	Observe(s Snapshot) (*RepEvent, error)
	Phase() Phase
	Reset()
}

// NewMachine builds the state machine for an exercise.
func NewMachine(ex Exercise, params Params) (Machine, error) {
	switch ex {
	case PushUp:
		return newCyclicMachine(ex, params, cyclicShape{
			primary:   FeatElbowAngle,
			sides:     [2]FeatureKey{FeatLeftElbowAngle, FeatRightElbowAngle},
			sidesUsed: true,
		}), nil
	case Squat:
		return newCyclicMachine(ex, params, cyclicShape{
			primary:   FeatKneeAngle,
			sides:     [2]FeatureKey{FeatLeftKneeAngle, FeatRightKneeAngle},
			sidesUsed: true,
		}), nil
	case Lunge:
		return newCyclicMachine(ex, params, cyclicShape{
			primary:   FeatFrontKneeAngle,
			gate:      FeatKneeSeparation,
			gateMin:   params.MinKneeSeparation,
			drift:     FeatHipCenterX,
			driftUsed: true,
			gateUsed:  true,
		}), nil
	case Plank:
		return newPlankMachine(params), nil
	}
	return nil, ErrInvalidExercise
}

// dwell confirms that a condition has held continuously for a minimum
// time. It is the debounce primitive shared by all machines: a threshold
// crossing shorter than the minimum dwell never triggers a transition.
type dwell struct {
	since int64 // unix nanos of the first frame the condition held; 0 when clear
}

// hold feeds one observation. It returns true once cond has held for at
// least min, measured on frame timestamps.
func (d *dwell) hold(cond bool, nanos int64, min time.Duration) bool {
	if !cond {
		d.since = 0
		return false
	}
	if d.since == 0 {
		d.since = nanos
		return min == 0
	}
	return nanos-d.since >= min.Nanoseconds()
}

// pending reports whether the condition is currently held but not yet
// confirmed, and since when.
func (d *dwell) pending() (int64, bool) {
	return d.since, d.since != 0
}

func (d *dwell) clear() {
	d.since = 0
}
