package engine

// Sample is one derived feature value. OK is false when a contributing
// keypoint fell below the confidence threshold this frame, in which case
// Value is meaningless.
type Sample struct {
	Value float64
	OK    bool
}

// Snapshot is the geometry derived from one frame after confidence gating
// and smoothing. State machines consume snapshots, never raw frames.
type Snapshot struct {
	FrameIndex int64
	UnixNanos  int64
	Exercise   Exercise

	// Features holds the smoothed per-feature samples for the active
	// exercise.
	Features map[FeatureKey]Sample

	// Tracking is false when fewer than the minimum fraction of the
	// exercise's required joints were usable. Machines treat such a
	// snapshot as a no-op frame.
	Tracking bool

	// Confidence is the mean model confidence over the required joints,
	// for the live UI overlay.
	Confidence float64
}

// Feature returns the named smoothed feature value, with ok=false when it
// was unavailable this frame.
func (s Snapshot) Feature(k FeatureKey) (float64, bool) {
	sample, present := s.Features[k]
	if !present || !sample.OK {
		return 0, false
	}
	return sample.Value, true
}
