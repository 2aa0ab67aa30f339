package engine

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/repcoach/repcoach/internal/pose"
)

// Filter gates keypoints by confidence and smooths the derived features
// with a moving average. One Filter serves one session; smoothing is
// applied to features after geometry computation, never to raw
// coordinates, so a dropped joint poisons only the features it feeds.
//
// The smoothed output lags raw input by up to the window length. That lag
// is the point: it suppresses jitter-induced false rep triggers.
type Filter struct {
	exercise Exercise
	desc     descriptor
	params   Params
	buffers  map[FeatureKey]*movingAverage
}

// NewFilter creates a filter for the given exercise.
func NewFilter(ex Exercise, params Params) (*Filter, error) {
	desc, ok := descriptors[ex]
	if !ok {
		return nil, ErrInvalidExercise
	}
	return &Filter{
		exercise: ex,
		desc:     desc,
		params:   params,
		buffers:  make(map[FeatureKey]*movingAverage, len(desc.features)),
	}, nil
}

// Update consumes one frame and produces a geometry snapshot. A frame that
// fails structural validation is rejected with pose.ErrMalformedFrame and
// leaves the smoothing buffers untouched. A frame with too few usable
// joints yields a snapshot with Tracking=false, also without touching the
// buffers, so a tracking dropout cannot smear garbage into the signal.
func (f *Filter) Update(frame pose.Frame) (Snapshot, error) {
	if err := frame.Validate(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		FrameIndex: frame.Index,
		UnixNanos:  frame.UnixNanos,
		Exercise:   f.exercise,
		Features:   make(map[FeatureKey]Sample, len(f.desc.features)),
	}

	gated := make(jointMap, len(frame.Keypoints))
	byID := make(map[pose.JointID]pose.Keypoint, len(frame.Keypoints))
	for _, kp := range frame.Keypoints {
		byID[kp.ID] = kp
		if kp.Confidence >= f.params.ConfidenceMin {
			gated[kp.ID] = kp
		}
	}

	conf := make([]float64, 0, len(f.desc.required))
	usable := 0
	for _, id := range f.desc.required {
		if kp, ok := byID[id]; ok {
			conf = append(conf, kp.Confidence)
		} else {
			conf = append(conf, 0)
		}
		if _, ok := gated[id]; ok {
			usable++
		}
	}
	snap.Confidence = stat.Mean(conf, nil)

	if float64(usable) < f.params.MinJointFraction*float64(len(f.desc.required)) {
		snap.Tracking = false
		return snap, nil
	}
	any := false
	for key, fn := range f.desc.features {
		raw, ok := fn(gated)
		if !ok {
			snap.Features[key] = Sample{}
			continue
		}
		buf := f.buffers[key]
		if buf == nil {
			buf = newMovingAverage(f.params.SmoothingWindow)
			f.buffers[key] = buf
		}
		snap.Features[key] = Sample{Value: buf.push(raw), OK: true}
		any = true
	}
	// Enough joints overall but nothing measurable for this exercise is
	// still a tracking failure (e.g. both elbows gated out of a push-up).
	snap.Tracking = any
	return snap, nil
}

// Reset discards all smoothing state. Called when a session stops or the
// exercise type changes so no partial state leaks into the next session.
func (f *Filter) Reset() {
	f.buffers = make(map[FeatureKey]*movingAverage, len(f.desc.features))
}

// movingAverage is a fixed-window mean over the most recent samples. The
// window fills gradually, so early output averages what has been seen.
type movingAverage struct {
	win []float64
	idx int
	n   int
}

func newMovingAverage(window int) *movingAverage {
	if window < 1 {
		window = 1
	}
	return &movingAverage{win: make([]float64, window)}
}

func (m *movingAverage) push(v float64) float64 {
	m.win[m.idx] = v
	m.idx = (m.idx + 1) % len(m.win)
	if m.n < len(m.win) {
		m.n++
	}
	return floats.Sum(m.win[:m.n]) / float64(m.n)
}
