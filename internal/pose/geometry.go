package pose

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Point is a 2-D position in the pose model's image coordinate space.
type Point struct {
	X float64
	Y float64
}

// Angle computes the angle at vertex b formed by the rays b->a and b->c,
// via the dot-product/arccosine relation. The result is in degrees in
// [0, 180]. The second return is false when either ray has zero length,
// in which case the angle is undefined.
func Angle(a, b, c Point) (float64, bool) {
	bax := a.X - b.X
	bay := a.Y - b.Y
	bcx := c.X - b.X
	bcy := c.Y - b.Y

	na := math.Hypot(bax, bay)
	nc := math.Hypot(bcx, bcy)
	if na == 0 || nc == 0 {
		return 0, false
	}

	cos := (bax*bcx + bay*bcy) / (na * nc)
	// Clamp against floating point drift before acos.
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// AlignmentDeviation returns the root-mean-square perpendicular deviation
// of pts from the chord through the first and last point. It is the
// body-line straightness measure used for plank scoring. The second return
// is false when fewer than three points are given or the chord is
// degenerate.
func AlignmentDeviation(pts []Point) (float64, bool) {
	if len(pts) < 3 {
		return 0, false
	}
	first := pts[0]
	last := pts[len(pts)-1]
	dx := last.X - first.X
	dy := last.Y - first.Y
	chord := math.Hypot(dx, dy)
	if chord == 0 {
		return 0, false
	}

	sq := make([]float64, 0, len(pts)-2)
	for _, p := range pts[1 : len(pts)-1] {
		// Perpendicular distance from p to the chord.
		d := math.Abs(dy*p.X-dx*p.Y+last.X*first.Y-last.Y*first.X) / chord
		sq = append(sq, d*d)
	}
	return math.Sqrt(stat.Mean(sq, nil)), true
}
