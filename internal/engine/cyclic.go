package engine

// cyclicShape describes how one cyclic exercise maps onto the shared
// automaton: which feature drives the phases, which optional side pair
// feeds the asymmetry measure, and any extra descend gate.
type cyclicShape struct {
	primary FeatureKey

	sides     [2]FeatureKey // left/right variant of the primary feature
	sidesUsed bool

	gate     FeatureKey // extra condition for entering a cycle
	gateMin  float64    // gate feature must be at least this
	gateUsed bool

	drift     FeatureKey // lateral reference tracked across the cycle
	driftUsed bool
}

// cyclicMachine is the shared automaton for push-up, squat and lunge:
// Idle -> Descending -> BottomHold -> Ascending -> rep -> Idle, driven by
// threshold crossings on the primary feature with hysteresis and a
// debounced descend entry.
//
// A rep is emitted exactly once per cycle. A cycle that stalls in
// Ascending and sinks back below the descend threshold resumes the same
// cycle; a cycle that never confirms the descend never counts.
type cyclicMachine struct {
	exercise Exercise
	p        Params
	shape    cyclicShape

	phase   Phase
	descend dwell

	// cycle accumulators, valid from the first pending descend frame
	cycleStart   int64
	bottom       float64
	timeline     []float64
	asymSum      float64
	asymN        int
	driftRef     float64
	driftRefSet  bool
	driftMax     float64
	accumulating bool
}

func newCyclicMachine(ex Exercise, params Params, shape cyclicShape) *cyclicMachine {
	return &cyclicMachine{exercise: ex, p: params, shape: shape, phase: PhaseIdle}
}

// Phase returns the current phase.
func (m *cyclicMachine) Phase() Phase { return m.phase }

// Reset returns the machine to Idle and discards any partial cycle.
func (m *cyclicMachine) Reset() {
	m.phase = PhaseIdle
	m.descend.clear()
	m.clearCycle()
}

func (m *cyclicMachine) clearCycle() {
	m.cycleStart = 0
	m.bottom = 0
	m.timeline = nil
	m.asymSum = 0
	m.asymN = 0
	m.driftRef = 0
	m.driftRefSet = false
	m.driftMax = 0
	m.accumulating = false
}

// Observe consumes one snapshot and returns a RepEvent when this frame
// completes a validated repetition.
func (m *cyclicMachine) Observe(s Snapshot) (*RepEvent, error) {
	if !s.Tracking {
		// No-op frame: a pending descend loses its debounce credit, but a
		// confirmed cycle survives a momentary dropout.
		m.descend.clear()
		return nil, nil
	}
	v, ok := s.Feature(m.shape.primary)
	if !ok {
		m.descend.clear()
		return nil, nil
	}

	descendCond := v < m.p.DescendAngle && m.gateOpen(s)
	exitAngle := m.p.DescendAngle + m.p.HysteresisMargin
	bottomAngle := m.p.DescendAngle - m.p.HysteresisMargin

	switch m.phase {
	case PhaseIdle:
		if descendCond && !m.accumulating {
			// Candidate cycle: start accumulating from the first crossing
			// so the true extremum is captured even while debouncing.
			m.accumulating = true
			m.cycleStart = s.UnixNanos
			m.bottom = v
			m.timeline = m.timeline[:0]
		}
		if !descendCond && m.accumulating {
			// Crossing too short to confirm: noise, discard.
			m.clearCycle()
		}
		if m.accumulating {
			m.track(v, s)
		}
		if m.descend.hold(descendCond, s.UnixNanos, m.p.Debounce) {
			m.phase = PhaseDescending
			m.descend.clear()
		}

	case PhaseDescending:
		m.track(v, s)
		switch {
		case v > exitAngle:
			m.phase = PhaseAscending
		case v <= bottomAngle:
			m.phase = PhaseBottomHold
		}

	case PhaseBottomHold:
		m.track(v, s)
		if v > exitAngle {
			m.phase = PhaseAscending
		}

	case PhaseAscending:
		m.track(v, s)
		switch {
		case v < m.p.DescendAngle:
			// Stalled and sank back: same cycle, never a second count.
			m.phase = PhaseDescending
		case v > m.p.LockoutAngle:
			ev := m.finish(s)
			m.phase = PhaseIdle
			return ev, nil
		}
	}
	return nil, nil
}

// gateOpen checks the extra descend condition, e.g. minimum knee
// separation for the lunge. A missing gate feature keeps the gate shut so
// an ambiguous stance is skipped rather than guessed at.
func (m *cyclicMachine) gateOpen(s Snapshot) bool {
	if !m.shape.gateUsed {
		return true
	}
	g, ok := s.Feature(m.shape.gate)
	return ok && g >= m.shape.gateMin
}

// track folds one in-cycle sample into the accumulators.
func (m *cyclicMachine) track(v float64, s Snapshot) {
	if v < m.bottom {
		m.bottom = v
	}
	m.timeline = append(m.timeline, v)

	if m.shape.sidesUsed {
		l, okL := s.Feature(m.shape.sides[0])
		r, okR := s.Feature(m.shape.sides[1])
		if okL && okR {
			d := l - r
			if d < 0 {
				d = -d
			}
			m.asymSum += d
			m.asymN++
		}
	}
	if m.shape.driftUsed {
		if x, ok := s.Feature(m.shape.drift); ok {
			if !m.driftRefSet {
				m.driftRef = x
				m.driftRefSet = true
			}
			d := x - m.driftRef
			if d < 0 {
				d = -d
			}
			if d > m.driftMax {
				m.driftMax = d
			}
		}
	}
}

// finish packages the completed cycle and clears the accumulators.
func (m *cyclicMachine) finish(s Snapshot) *RepEvent {
	ev := &RepEvent{
		Exercise:   m.exercise,
		StartNanos: m.cycleStart,
		EndNanos:   s.UnixNanos,
		Bottom:     m.bottom,
		Timeline:   append([]float64(nil), m.timeline...),
	}
	if m.asymN > 0 {
		ev.Asymmetry = m.asymSum / float64(m.asymN)
		ev.AsymmetryOK = true
	}
	if m.shape.driftUsed && m.driftRefSet {
		ev.BalanceDrift = m.driftMax
		ev.BalanceDriftOK = true
	}
	m.clearCycle()
	return ev
}
