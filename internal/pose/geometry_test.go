package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAngle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Point
		want    float64
		ok      bool
	}{
		{
			name: "right angle",
			a:    Point{X: 0, Y: 1}, b: Point{X: 0, Y: 0}, c: Point{X: 1, Y: 0},
			want: 90, ok: true,
		},
		{
			name: "straight line",
			a:    Point{X: -1, Y: 0}, b: Point{X: 0, Y: 0}, c: Point{X: 1, Y: 0},
			want: 180, ok: true,
		},
		{
			name: "folded back",
			a:    Point{X: 1, Y: 0}, b: Point{X: 0, Y: 0}, c: Point{X: 1, Y: 0},
			want: 0, ok: true,
		},
		{
			name: "forty five",
			a:    Point{X: 1, Y: 1}, b: Point{X: 0, Y: 0}, c: Point{X: 1, Y: 0},
			want: 45, ok: true,
		},
		{
			name: "vertex coincides with endpoint",
			a:    Point{X: 0, Y: 0}, b: Point{X: 0, Y: 0}, c: Point{X: 1, Y: 0},
			ok: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Angle(tt.a, tt.b, tt.c)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestAngleScaleInvariant(t *testing.T) {
	// The same pose at ten times the pixel scale must give the same angle.
	small, ok := Angle(Point{X: 3, Y: 7}, Point{X: 1, Y: 2}, Point{X: 8, Y: 1})
	require.True(t, ok)
	big, ok := Angle(Point{X: 30, Y: 70}, Point{X: 10, Y: 20}, Point{X: 80, Y: 10})
	require.True(t, ok)
	assert.InDelta(t, small, big, 1e-9)
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5, Distance(Point{X: 0, Y: 0}, Point{X: 3, Y: 4}), 1e-12)
	assert.Zero(t, Distance(Point{X: 2, Y: 2}, Point{X: 2, Y: 2}))
}

func TestAlignmentDeviation(t *testing.T) {
	t.Run("collinear points have zero deviation", func(t *testing.T) {
		dev, ok := AlignmentDeviation([]Point{{0, 0}, {5, 5}, {10, 10}})
		require.True(t, ok)
		assert.InDelta(t, 0, dev, 1e-9)
	})

	t.Run("single sagging midpoint", func(t *testing.T) {
		dev, ok := AlignmentDeviation([]Point{{0, 0}, {5, 2}, {10, 0}})
		require.True(t, ok)
		assert.InDelta(t, 2, dev, 1e-9)
	})

	t.Run("rms over interior points", func(t *testing.T) {
		dev, ok := AlignmentDeviation([]Point{{0, 0}, {3, 1}, {6, 2}, {9, 0}})
		require.True(t, ok)
		assert.InDelta(t, math.Sqrt((1+4)/2.0), dev, 1e-9)
	})

	t.Run("too few points", func(t *testing.T) {
		_, ok := AlignmentDeviation([]Point{{0, 0}, {1, 1}})
		assert.False(t, ok)
	})

	t.Run("degenerate chord", func(t *testing.T) {
		_, ok := AlignmentDeviation([]Point{{0, 0}, {1, 1}, {0, 0}})
		assert.False(t, ok)
	})
}
