// Package testutil provides shared helpers for building synthetic
// keypoint frames in tests.
package testutil

import (
	"math"

	"github.com/repcoach/repcoach/internal/pose"
)

// FPS is the synthetic capture rate used by frame builders.
const FPS = 30

// FrameAt builds a frame with the given index, timestamped at index/FPS
// seconds, holding the provided keypoints.
func FrameAt(index int64, kps []pose.Keypoint) pose.Frame {
	return pose.Frame{
		Index:     index,
		UnixNanos: index * int64(1e9) / FPS,
		Keypoints: kps,
	}
}

// UpperBody returns push-up keypoints posed so both elbow angles equal
// angleDeg, with the given confidence on every joint.
func UpperBody(angleDeg, confidence float64) []pose.Keypoint {
	left := armAt(angleDeg, confidence, 0, pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist)
	right := armAt(angleDeg, confidence, 200, pose.RightShoulder, pose.RightElbow, pose.RightWrist)
	return append(left, right...)
}

// WithConfidence returns a copy of kps with the confidence of the listed
// joints replaced.
func WithConfidence(kps []pose.Keypoint, conf float64, joints ...pose.JointID) []pose.Keypoint {
	out := make([]pose.Keypoint, len(kps))
	copy(out, kps)
	for i := range out {
		for _, j := range joints {
			if out[i].ID == j {
				out[i].Confidence = conf
			}
		}
	}
	return out
}

// armAt lays one arm out as a wedge at the elbow: the shoulder sits
// straight above, the wrist is the shoulder ray rotated angleDeg around
// the elbow, so the elbow angle is exactly angleDeg.
func armAt(angleDeg, confidence, offsetX float64, shoulderID, elbowID, wristID pose.JointID) []pose.Keypoint {
	elbow := pose.Point{X: offsetX + 50, Y: 100}
	shoulder := pose.Point{X: offsetX + 50, Y: 40}
	wrist := rotateAround(elbow, shoulder, angleDeg)
	return []pose.Keypoint{
		{ID: shoulderID, X: shoulder.X, Y: shoulder.Y, Confidence: confidence},
		{ID: elbowID, X: elbow.X, Y: elbow.Y, Confidence: confidence},
		{ID: wristID, X: wrist.X, Y: wrist.Y, Confidence: confidence},
	}
}

// rotateAround rotates p around center by deg degrees.
func rotateAround(center, p pose.Point, deg float64) pose.Point {
	rad := deg * math.Pi / 180
	dx := p.X - center.X
	dy := p.Y - center.Y
	return pose.Point{
		X: center.X + dx*math.Cos(rad) - dy*math.Sin(rad),
		Y: center.Y + dx*math.Sin(rad) + dy*math.Cos(rad),
	}
}
