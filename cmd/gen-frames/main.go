// Command gen-frames generates synthetic keypoint recordings in the
// JSONL format accepted by the -replay flag, for testing the engine
// without a camera or pose model.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"math/rand"
	"os"

	"github.com/repcoach/repcoach/internal/engine"
	"github.com/repcoach/repcoach/internal/pose"
)

var (
	output   = flag.String("o", "frames.jsonl", "output path")
	exercise = flag.String("exercise", "push-up", "exercise to synthesise")
	reps     = flag.Int("reps", 5, "number of movement cycles (hold seconds for plank)")
	fps      = flag.Int("fps", 30, "frame rate of the synthetic recording")
	period   = flag.Float64("period", 2.5, "seconds per movement cycle")
	noise    = flag.Float64("noise", 0.5, "keypoint jitter in pixels")
	seed     = flag.Int64("seed", 1, "jitter random seed")
)

func main() {
	flag.Parse()

	ex, err := engine.ParseExercise(*exercise)
	if err != nil {
		log.Fatalf("gen-frames: %v", err)
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("gen-frames: %v", err)
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(*seed))
	enc := json.NewEncoder(f)

	total := int(float64(*reps) * *period * float64(*fps))
	if ex == engine.Plank {
		total = *reps * *fps
	}
	for i := 0; i < total; i++ {
		t := float64(i) / float64(*fps)
		frame := pose.Frame{
			Index:     int64(i),
			UnixNanos: int64(i) * int64(1e9) / int64(*fps),
			Keypoints: jitter(keypointsAt(ex, t, *period), rng, *noise),
		}
		if err := enc.Encode(frame); err != nil {
			log.Fatalf("gen-frames: %v", err)
		}
	}
	log.Printf("wrote %d frames (%s, %d cycles) to %s", total, ex, *reps, *output)
}

// keypointsAt poses the skeleton for one synthetic frame. Cyclic
// exercises swing their primary joint angle on a cosine between lockout
// and a deep bottom; the plank holds a straight body line.
func keypointsAt(ex engine.Exercise, t, period float64) []pose.Keypoint {
	phase := math.Cos(2 * math.Pi * t / period)
	switch ex {
	case engine.PushUp:
		// Elbow angle swings 172..68 degrees.
		return arms(120 + 52*phase)
	case engine.Squat:
		// Both knees bend together, 170..70 degrees.
		return legs(120+50*phase, 120+50*phase, 40)
	case engine.Lunge:
		// Front knee carries the depth in a split stance; the back leg
		// stays close to straight.
		return legs(124+46*phase, 160+8*phase, 120)
	case engine.Plank:
		return plankLine()
	}
	return nil
}

// arms renders both arms with the given elbow angle: shoulder above the
// elbow, wrist on the shoulder ray rotated by the angle.
func arms(elbowDeg float64) []pose.Keypoint {
	var kps []pose.Keypoint
	for side, ids := range map[float64][3]pose.JointID{
		0:   {pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
		200: {pose.RightShoulder, pose.RightElbow, pose.RightWrist},
	} {
		elbow := pose.Point{X: side + 50, Y: 100}
		shoulder := pose.Point{X: side + 50, Y: 40}
		wrist := rotate(elbow, shoulder, elbowDeg)
		kps = append(kps,
			kp(ids[0], shoulder), kp(ids[1], elbow), kp(ids[2], wrist))
	}
	return kps
}

// legs renders both legs with independent knee angles, knees a given
// horizontal distance apart. Leg segments are 60px, so kneeGap 40 is a
// shoulder-width stance and 120 a clear lunge split.
func legs(leftKneeDeg, rightKneeDeg, kneeGap float64) []pose.Keypoint {
	left := leg(leftKneeDeg, 100, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
	right := leg(rightKneeDeg, 100+kneeGap, pose.RightHip, pose.RightKnee, pose.RightAnkle)
	return append(left, right...)
}

func leg(kneeDeg, kneeX float64, hipID, kneeID, ankleID pose.JointID) []pose.Keypoint {
	knee := pose.Point{X: kneeX, Y: 200}
	ankle := pose.Point{X: kneeX, Y: 260}
	hip := rotate(knee, ankle, kneeDeg)
	return []pose.Keypoint{kp(hipID, hip), kp(kneeID, knee), kp(ankleID, ankle)}
}

// plankLine lays shoulder, hip, knee and ankle on a straight diagonal.
func plankLine() []pose.Keypoint {
	var kps []pose.Keypoint
	for off, ids := range map[float64][4]pose.JointID{
		0: {pose.LeftShoulder, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
		4: {pose.RightShoulder, pose.RightHip, pose.RightKnee, pose.RightAnkle},
	} {
		kps = append(kps,
			kp(ids[0], pose.Point{X: 20, Y: 100 + off}),
			kp(ids[1], pose.Point{X: 100, Y: 140 + off}),
			kp(ids[2], pose.Point{X: 150, Y: 165 + off}),
			kp(ids[3], pose.Point{X: 200, Y: 190 + off}),
		)
	}
	return kps
}

func kp(id pose.JointID, p pose.Point) pose.Keypoint {
	return pose.Keypoint{ID: id, X: p.X, Y: p.Y, Confidence: 0.92}
}

// rotate turns p around center by deg degrees.
func rotate(center, p pose.Point, deg float64) pose.Point {
	rad := deg * math.Pi / 180
	dx := p.X - center.X
	dy := p.Y - center.Y
	return pose.Point{
		X: center.X + dx*math.Cos(rad) - dy*math.Sin(rad),
		Y: center.Y + dx*math.Sin(rad) + dy*math.Cos(rad),
	}
}

func jitter(kps []pose.Keypoint, rng *rand.Rand, amount float64) []pose.Keypoint {
	if amount <= 0 {
		return kps
	}
	for i := range kps {
		kps[i].X += rng.NormFloat64() * amount
		kps[i].Y += rng.NormFloat64() * amount
	}
	return kps
}
