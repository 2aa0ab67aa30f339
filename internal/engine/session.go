package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/repcoach/repcoach/internal/config"
	"github.com/repcoach/repcoach/internal/monitoring"
	"github.com/repcoach/repcoach/internal/pose"
	"github.com/repcoach/repcoach/internal/timeutil"
)

// metValues are the metabolic equivalents used for the calorie estimate,
// kcal = MET x bodyweight(kg) x hours. Starting points, not verified
// sports science.
var metValues = map[Exercise]float64{
	PushUp: 8.0,
	Squat:  5.5,
	Lunge:  4.0,
	Plank:  3.5,
}

// DefaultBodyWeightKg is used when the caller supplies no body weight.
const DefaultBodyWeightKg = 70.0

// RepRecord is one completed repetition, immutable once appended to the
// session history.
type RepRecord struct {
	ID         uuid.UUID `json:"rep_id"`
	Index      int       `json:"rep_index"`
	StartNanos int64     `json:"start_nanos"`
	EndNanos   int64     `json:"end_nanos"`
	Bottom     float64   `json:"bottom_angle"`
	Score      int       `json:"form_score"`
	Feedback   []string  `json:"feedback"`
}

// Summary is the aggregate view of a session, always recomputed from the
// rep history and elapsed time, never mutated in place.
type Summary struct {
	SessionID         uuid.UUID `json:"session_id"`
	Exercise          Exercise  `json:"exercise"`
	TotalReps         int       `json:"total_reps"`
	AverageFormScore  float64   `json:"average_form_score"`
	DurationSeconds   float64   `json:"duration_seconds"`
	ActiveHoldSeconds float64   `json:"active_hold_seconds,omitempty"`
	EstimatedCalories float64   `json:"estimated_calories"`
}

// FrameStatus is the live per-frame signal for the UI overlay.
type FrameStatus struct {
	Phase      Phase                  `json:"phase"`
	Tracking   bool                   `json:"tracking"`
	Confidence float64                `json:"confidence"`
	RepCount   int                    `json:"rep_count"`
	Rep        *RepRecord             `json:"rep,omitempty"`
	Hint       string                 `json:"hint,omitempty"`
	Features   map[FeatureKey]float64 `json:"features,omitempty"`
}

// Session owns all mutable state for one exercise detection run: the
// keypoint filter, the state machine and the rep history. All methods are
// synchronized; frames must be fed in arrival order and at most one
// ProcessFrame runs at a time.
type Session struct {
	mu sync.Mutex

	id       uuid.UUID
	exercise Exercise
	cfg      *config.TuningConfig
	params   Params
	clock    timeutil.Clock
	weightKg float64

	filter  *Filter
	machine Machine

	startedAt  time.Time
	finishedAt time.Time
	finished   bool
	holdAtStop float64

	repHistory []RepRecord

	// diagnostics
	malformedFrames int
}

// Option customises session construction.
type Option func(*Session)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(c timeutil.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithBodyWeight sets the body weight in kilograms used for the calorie
// estimate.
func WithBodyWeight(kg float64) Option {
	return func(s *Session) {
		if kg > 0 {
			s.weightKg = kg
		}
	}
}

// NewSession starts detection for one exercise. Returns
// ErrInvalidExercise for an unsupported type.
func NewSession(ex Exercise, cfg *config.TuningConfig, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	s := &Session{
		id:       uuid.New(),
		exercise: ex,
		cfg:      cfg,
		clock:    timeutil.RealClock{},
		weightKg: DefaultBodyWeightKg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.rebuild(ex); err != nil {
		return nil, err
	}
	s.startedAt = s.clock.Now()
	return s, nil
}

// rebuild swaps in a fresh filter and machine for ex. Nothing is mutated
// unless the exercise is valid.
func (s *Session) rebuild(ex Exercise) error {
	params := ParamsFor(ex, s.cfg)
	filter, err := NewFilter(ex, params)
	if err != nil {
		return err
	}
	machine, err := NewMachine(ex, params)
	if err != nil {
		return err
	}
	s.exercise = ex
	s.params = params
	s.filter = filter
	s.machine = machine
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Exercise returns the active exercise type.
func (s *Session) Exercise() Exercise {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exercise
}

// ProcessFrame consumes the next frame from the pose model and returns
// the live status. Malformed frames are discarded, counted and reported
// with pose.ErrMalformedFrame; no session state changes for them.
func (s *Session) ProcessFrame(frame pose.Frame) (FrameStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.filter.Update(frame)
	if err != nil {
		if errors.Is(err, pose.ErrMalformedFrame) {
			s.malformedFrames++
		}
		return FrameStatus{Phase: s.machine.Phase(), RepCount: len(s.repHistory)}, err
	}

	ev, err := s.machine.Observe(snap)
	if err != nil {
		return FrameStatus{Phase: s.machine.Phase(), RepCount: len(s.repHistory)}, err
	}

	status := FrameStatus{
		Phase:      s.machine.Phase(),
		Tracking:   snap.Tracking,
		Confidence: snap.Confidence,
		Features:   make(map[FeatureKey]float64, len(snap.Features)),
	}
	for key, sample := range snap.Features {
		if sample.OK {
			status.Features[key] = sample.Value
		}
	}
	if !snap.Tracking {
		status.Hint = "Reposition so your full body is visible"
	}

	if ev != nil {
		score, feedback := ScoreRep(ev, s.params)
		rec := RepRecord{
			ID:         uuid.New(),
			Index:      len(s.repHistory),
			StartNanos: ev.StartNanos,
			EndNanos:   ev.EndNanos,
			Bottom:     ev.Bottom,
			Score:      score,
			Feedback:   feedback,
		}
		s.repHistory = append(s.repHistory, rec)
		status.Rep = &rec
		monitoring.Logf("session %s: %s rep %d scored %d", s.id, s.exercise, rec.Index+1, score)
	}
	status.RepCount = len(s.repHistory)
	return status, nil
}

// Summary derives the aggregate view from the rep history and elapsed
// time. Calling it twice without new events yields identical results.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Session) summaryLocked() Summary {
	sum := Summary{
		SessionID: s.id,
		Exercise:  s.exercise,
		TotalReps: len(s.repHistory),
	}
	if len(s.repHistory) > 0 {
		scores := make([]float64, len(s.repHistory))
		for i, r := range s.repHistory {
			scores[i] = float64(r.Score)
		}
		sum.AverageFormScore = stat.Mean(scores, nil)
	}

	elapsed := s.clock.Since(s.startedAt)
	if s.finished {
		elapsed = s.finishedAt.Sub(s.startedAt)
	}
	sum.DurationSeconds = elapsed.Seconds()

	if s.finished {
		sum.ActiveHoldSeconds = s.holdAtStop
	} else if plank, ok := s.machine.(*plankMachine); ok {
		sum.ActiveHoldSeconds = plank.HoldSeconds()
	}

	met := metValues[s.exercise]
	sum.EstimatedCalories = met * s.weightKg * elapsed.Hours()
	return sum
}

// RepHistory returns a copy of the completed rep records.
func (s *Session) RepHistory() []RepRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RepRecord, len(s.repHistory))
	copy(out, s.repHistory)
	return out
}

// MalformedFrames returns the count of discarded malformed frames.
func (s *Session) MalformedFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.malformedFrames
}

// SwitchExercise atomically resets the session onto a new exercise type:
// fresh machine, fresh smoothing buffers, cleared history, new start
// time. Returns ErrInvalidExercise without mutating anything when the
// type is unsupported.
func (s *Session) SwitchExercise(ex Exercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := descriptors[ex]; !ok {
		return ErrInvalidExercise
	}
	if err := s.rebuild(ex); err != nil {
		return err
	}
	s.repHistory = nil
	s.malformedFrames = 0
	s.finished = false
	s.holdAtStop = 0
	s.startedAt = s.clock.Now()
	return nil
}

// Finish stops detection and returns the final summary. In-flight
// smoothing and phase state are discarded; the rep history is preserved.
// Further frames are still accepted but a finished session is normally
// handed to persistence and dropped.
func (s *Session) Finish() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		if plank, ok := s.machine.(*plankMachine); ok {
			s.holdAtStop = plank.HoldSeconds()
		}
		s.finishedAt = s.clock.Now()
		s.finished = true
		s.filter.Reset()
		s.machine.Reset()
	}
	return s.summaryLocked()
}
