package pose

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedFrame is returned when a frame is missing the expected
// structure. Malformed frames are discarded by the engine, never fatal.
var ErrMalformedFrame = errors.New("malformed frame")

// Keypoint is a single tracked joint position with a detection confidence,
// as produced by the external pose model. Immutable once created.
type Keypoint struct {
	ID         JointID `json:"joint_id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Frame is the set of keypoints detected in one video frame. Frames are
// transient: the engine consumes a frame, derives a geometry snapshot from
// it and discards it.
type Frame struct {
	Index     int64      `json:"frame_index"`
	UnixNanos int64      `json:"unix_nanos"`
	Keypoints []Keypoint `json:"keypoints"`
}

// Validate checks the structural integrity of a frame. It wraps
// ErrMalformedFrame so callers can classify with errors.Is.
func (f Frame) Validate() error {
	if len(f.Keypoints) == 0 {
		return fmt.Errorf("%w: no keypoints", ErrMalformedFrame)
	}
	for _, kp := range f.Keypoints {
		if !kp.ID.Valid() {
			return fmt.Errorf("%w: joint id %d out of range", ErrMalformedFrame, int(kp.ID))
		}
		if kp.Confidence < 0 || kp.Confidence > 1 || math.IsNaN(kp.Confidence) {
			return fmt.Errorf("%w: joint %s confidence %f outside [0,1]", ErrMalformedFrame, kp.ID, kp.Confidence)
		}
		if math.IsNaN(kp.X) || math.IsNaN(kp.Y) || math.IsInf(kp.X, 0) || math.IsInf(kp.Y, 0) {
			return fmt.Errorf("%w: joint %s has non-finite coordinates", ErrMalformedFrame, kp.ID)
		}
	}
	return nil
}

// Point returns the keypoint position as a geometry point.
func (kp Keypoint) Point() Point {
	return Point{X: kp.X, Y: kp.Y}
}
