// Package pose defines the keypoint data model produced by an external
// pose-estimation model, plus the 2-D geometry primitives derived from it.
package pose

import "fmt"

// JointID identifies one tracked body joint. The enumeration follows the
// PoseNet 17-keypoint layout, in model output order.
type JointID int

const (
	Nose JointID = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	// NumJoints is the number of joints in the enumeration.
	NumJoints
)

var jointNames = [NumJoints]string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}

// Valid reports whether j is within the joint enumeration.
func (j JointID) Valid() bool {
	return j >= 0 && j < NumJoints
}

// String returns the canonical snake_case joint name.
func (j JointID) String() string {
	if !j.Valid() {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// ParseJoint maps a canonical joint name back to its JointID.
func ParseJoint(name string) (JointID, error) {
	for i, n := range jointNames {
		if n == name {
			return JointID(i), nil
		}
	}
	return -1, fmt.Errorf("unknown joint name %q", name)
}
