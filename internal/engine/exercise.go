// Package engine implements the real-time exercise recognition pipeline:
// keypoint filtering, per-exercise phase state machines, rep counting,
// form scoring and session aggregation.
package engine

import (
	"fmt"
	"strings"

	"github.com/repcoach/repcoach/internal/pose"
)

// Exercise identifies one supported exercise type.
type Exercise string

const (
	PushUp Exercise = "push-up"
	Squat  Exercise = "squat"
	Lunge  Exercise = "lunge"
	Plank  Exercise = "plank"
)

// ParseExercise normalises a user-supplied exercise name. Returns
// ErrInvalidExercise for anything not in the supported set.
func ParseExercise(name string) (Exercise, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	switch key {
	case "pushup", "pushups":
		return PushUp, nil
	case "squat", "squats":
		return Squat, nil
	case "lunge", "lunges":
		return Lunge, nil
	case "plank", "planks":
		return Plank, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidExercise, name)
}

// Exercises returns the supported exercise types.
func Exercises() []Exercise {
	return []Exercise{PushUp, Squat, Lunge, Plank}
}

// FeatureKey names one derived scalar feature of a geometry snapshot.
type FeatureKey string

const (
	FeatElbowAngle      FeatureKey = "elbow_angle"
	FeatLeftElbowAngle  FeatureKey = "left_elbow_angle"
	FeatRightElbowAngle FeatureKey = "right_elbow_angle"
	FeatKneeAngle       FeatureKey = "knee_angle"
	FeatLeftKneeAngle   FeatureKey = "left_knee_angle"
	FeatRightKneeAngle  FeatureKey = "right_knee_angle"
	FeatHipKneeSpan     FeatureKey = "hip_knee_span"
	FeatFrontKneeAngle  FeatureKey = "front_knee_angle"
	FeatKneeSeparation  FeatureKey = "knee_separation"
	FeatHipCenterX      FeatureKey = "hip_center_x"
	FeatBodyLine        FeatureKey = "body_line_deviation"
)

// jointMap holds the confidence-gated keypoints of one frame.
type jointMap map[pose.JointID]pose.Keypoint

func (m jointMap) point(id pose.JointID) (pose.Point, bool) {
	kp, ok := m[id]
	if !ok {
		return pose.Point{}, false
	}
	return kp.Point(), true
}

// featureFn derives one scalar feature from gated keypoints. The boolean
// is false when a contributing keypoint is unavailable; unavailability
// propagates rather than being computed from unreliable data.
type featureFn func(m jointMap) (float64, bool)

// descriptor binds an exercise to the joints it needs tracked and the
// features derived for it each frame.
type descriptor struct {
	required []pose.JointID
	features map[FeatureKey]featureFn
}

var descriptors = map[Exercise]descriptor{
	PushUp: {
		required: []pose.JointID{
			pose.LeftShoulder, pose.RightShoulder,
			pose.LeftElbow, pose.RightElbow,
			pose.LeftWrist, pose.RightWrist,
		},
		features: map[FeatureKey]featureFn{
			FeatElbowAngle: func(m jointMap) (float64, bool) {
				return pairedAngle(m,
					[3]pose.JointID{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
					[3]pose.JointID{pose.RightShoulder, pose.RightElbow, pose.RightWrist})
			},
			FeatLeftElbowAngle: func(m jointMap) (float64, bool) {
				return jointAngle(m, pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist)
			},
			FeatRightElbowAngle: func(m jointMap) (float64, bool) {
				return jointAngle(m, pose.RightShoulder, pose.RightElbow, pose.RightWrist)
			},
		},
	},
	Squat: {
		required: []pose.JointID{
			pose.LeftHip, pose.RightHip,
			pose.LeftKnee, pose.RightKnee,
			pose.LeftAnkle, pose.RightAnkle,
		},
		features: map[FeatureKey]featureFn{
			FeatKneeAngle: func(m jointMap) (float64, bool) {
				return pairedAngle(m,
					[3]pose.JointID{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
					[3]pose.JointID{pose.RightHip, pose.RightKnee, pose.RightAnkle})
			},
			FeatLeftKneeAngle: func(m jointMap) (float64, bool) {
				return jointAngle(m, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
			},
			FeatRightKneeAngle: func(m jointMap) (float64, bool) {
				return jointAngle(m, pose.RightHip, pose.RightKnee, pose.RightAnkle)
			},
			FeatHipKneeSpan: hipKneeSpan,
		},
	},
	Lunge: {
		required: []pose.JointID{
			pose.LeftHip, pose.RightHip,
			pose.LeftKnee, pose.RightKnee,
			pose.LeftAnkle, pose.RightAnkle,
		},
		features: map[FeatureKey]featureFn{
			FeatFrontKneeAngle: frontKneeAngle,
			FeatKneeSeparation: kneeSeparation,
			FeatHipCenterX:     hipCenterX,
		},
	},
	Plank: {
		required: []pose.JointID{
			pose.LeftShoulder, pose.RightShoulder,
			pose.LeftHip, pose.RightHip,
			pose.LeftAnkle, pose.RightAnkle,
		},
		features: map[FeatureKey]featureFn{
			FeatBodyLine: bodyLineDeviation,
		},
	},
}

func jointAngle(m jointMap, a, b, c pose.JointID) (float64, bool) {
	pa, okA := m.point(a)
	pb, okB := m.point(b)
	pc, okC := m.point(c)
	if !okA || !okB || !okC {
		return 0, false
	}
	return pose.Angle(pa, pb, pc)
}

// pairedAngle averages the left and right side angles. One available side
// is enough; the average of both is preferred when the pose allows it.
func pairedAngle(m jointMap, left, right [3]pose.JointID) (float64, bool) {
	var sum float64
	var n int
	if v, ok := jointAngle(m, left[0], left[1], left[2]); ok {
		sum += v
		n++
	}
	if v, ok := jointAngle(m, right[0], right[1], right[2]); ok {
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// legLength is the scale normaliser for lower-body distance features:
// the mean hip-to-ankle distance over available sides.
func legLength(m jointMap) (float64, bool) {
	var sum float64
	var n int
	for _, side := range [][2]pose.JointID{
		{pose.LeftHip, pose.LeftAnkle},
		{pose.RightHip, pose.RightAnkle},
	} {
		hip, okH := m.point(side[0])
		ankle, okA := m.point(side[1])
		if okH && okA {
			sum += pose.Distance(hip, ankle)
			n++
		}
	}
	if n == 0 || sum == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// hipKneeSpan is the mean vertical hip-to-knee distance as a fraction of
// leg length, a depth proxy for the squat.
func hipKneeSpan(m jointMap) (float64, bool) {
	leg, ok := legLength(m)
	if !ok {
		return 0, false
	}
	var sum float64
	var n int
	for _, side := range [][2]pose.JointID{
		{pose.LeftHip, pose.LeftKnee},
		{pose.RightHip, pose.RightKnee},
	} {
		hip, okH := m.point(side[0])
		knee, okK := m.point(side[1])
		if okH && okK {
			d := hip.Y - knee.Y
			if d < 0 {
				d = -d
			}
			sum += d
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n) / leg, true
}

// frontKneeAngle is the more bent of the two knee angles; in a lunge the
// front leg carries the depth.
func frontKneeAngle(m jointMap) (float64, bool) {
	l, okL := jointAngle(m, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
	r, okR := jointAngle(m, pose.RightHip, pose.RightKnee, pose.RightAnkle)
	switch {
	case okL && okR:
		if r < l {
			return r, true
		}
		return l, true
	case okL:
		return l, true
	case okR:
		return r, true
	}
	return 0, false
}

// kneeSeparation is the horizontal knee distance as a fraction of leg
// length. It gates lunge rep detection against squat-like stances.
func kneeSeparation(m jointMap) (float64, bool) {
	leg, ok := legLength(m)
	if !ok {
		return 0, false
	}
	lk, okL := m.point(pose.LeftKnee)
	rk, okR := m.point(pose.RightKnee)
	if !okL || !okR {
		return 0, false
	}
	sep := lk.X - rk.X
	if sep < 0 {
		sep = -sep
	}
	return sep / leg, true
}

// hipCenterX is the hip midpoint X as a fraction of leg length. The lunge
// machine differences it against the cycle start to measure lateral sway.
func hipCenterX(m jointMap) (float64, bool) {
	leg, ok := legLength(m)
	if !ok {
		return 0, false
	}
	lh, okL := m.point(pose.LeftHip)
	rh, okR := m.point(pose.RightHip)
	if !okL || !okR {
		return 0, false
	}
	return (lh.X + rh.X) / 2 / leg, true
}

// bodyLineDeviation is the RMS deviation of shoulder-hip-(knee)-ankle from
// the shoulder-ankle chord, divided by chord length. Both sides are
// averaged when available; one complete side is enough.
func bodyLineDeviation(m jointMap) (float64, bool) {
	var sum float64
	var n int
	for _, side := range [][4]pose.JointID{
		{pose.LeftShoulder, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
		{pose.RightShoulder, pose.RightHip, pose.RightKnee, pose.RightAnkle},
	} {
		shoulder, okS := m.point(side[0])
		hip, okH := m.point(side[1])
		ankle, okA := m.point(side[3])
		if !okS || !okH || !okA {
			continue
		}
		pts := []pose.Point{shoulder, hip}
		if knee, okK := m.point(side[2]); okK {
			pts = append(pts, knee)
		}
		pts = append(pts, ankle)
		dev, ok := pose.AlignmentDeviation(pts)
		if !ok {
			continue
		}
		chord := pose.Distance(shoulder, ankle)
		if chord == 0 {
			continue
		}
		sum += dev / chord
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
