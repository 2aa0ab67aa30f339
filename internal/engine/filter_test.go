package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repcoach/repcoach/internal/pose"
	"github.com/repcoach/repcoach/internal/testutil"
)

func filterParams(window int) Params {
	return Params{
		ConfidenceMin:    0.5,
		SmoothingWindow:  window,
		MinJointFraction: 0.6,
	}
}

func TestFilterComputesFeatures(t *testing.T) {
	f, err := NewFilter(PushUp, filterParams(1))
	require.NoError(t, err)

	snap, err := f.Update(testutil.FrameAt(0, testutil.UpperBody(160, 0.95)))
	require.NoError(t, err)

	assert.True(t, snap.Tracking)
	assert.InDelta(t, 0.95, snap.Confidence, 1e-9)

	v, ok := snap.Feature(FeatElbowAngle)
	require.True(t, ok)
	assert.InDelta(t, 160, v, 1e-6)

	l, ok := snap.Feature(FeatLeftElbowAngle)
	require.True(t, ok)
	r, ok2 := snap.Feature(FeatRightElbowAngle)
	require.True(t, ok2)
	assert.InDelta(t, l, r, 1e-6)
}

func TestFilterRejectsUnknownExercise(t *testing.T) {
	_, err := NewFilter(Exercise("yoga"), filterParams(1))
	assert.True(t, errors.Is(err, ErrInvalidExercise))
}

func TestFilterInsufficientJoints(t *testing.T) {
	f, err := NewFilter(PushUp, filterParams(1))
	require.NoError(t, err)

	// A whole arm below the confidence threshold leaves 3 of 6 required
	// joints usable, under the 0.6 fraction.
	kps := testutil.WithConfidence(testutil.UpperBody(120, 0.95), 0.2,
		pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist)
	snap, err := f.Update(testutil.FrameAt(0, kps))
	require.NoError(t, err)

	assert.False(t, snap.Tracking)
	assert.Empty(t, snap.Features)
}

func TestFilterNoMeasurableFeature(t *testing.T) {
	f, err := NewFilter(PushUp, filterParams(1))
	require.NoError(t, err)

	// Both elbows gated out: enough joints overall, but no elbow angle can
	// be derived, which is still a tracking failure for a push-up.
	kps := testutil.WithConfidence(testutil.UpperBody(120, 0.95), 0.2,
		pose.LeftElbow, pose.RightElbow)
	snap, err := f.Update(testutil.FrameAt(0, kps))
	require.NoError(t, err)

	assert.False(t, snap.Tracking)
	_, ok := snap.Feature(FeatElbowAngle)
	assert.False(t, ok)
}

func TestFilterSmoothsFeatures(t *testing.T) {
	f, err := NewFilter(PushUp, filterParams(3))
	require.NoError(t, err)

	angles := []float64{100, 130, 160}
	want := []float64{100, 115, 130}
	for i, a := range angles {
		snap, err := f.Update(testutil.FrameAt(int64(i), testutil.UpperBody(a, 0.95)))
		require.NoError(t, err)
		v, ok := snap.Feature(FeatElbowAngle)
		require.True(t, ok)
		assert.InDelta(t, want[i], v, 1e-6, "frame %d", i)
	}
}

func TestFilterMalformedFrameLeavesBuffersUntouched(t *testing.T) {
	f, err := NewFilter(PushUp, filterParams(3))
	require.NoError(t, err)

	_, err = f.Update(testutil.FrameAt(0, testutil.UpperBody(100, 0.95)))
	require.NoError(t, err)

	_, err = f.Update(pose.Frame{Index: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pose.ErrMalformedFrame))

	snap, err := f.Update(testutil.FrameAt(2, testutil.UpperBody(130, 0.95)))
	require.NoError(t, err)
	v, ok := snap.Feature(FeatElbowAngle)
	require.True(t, ok)
	assert.InDelta(t, 115, v, 1e-6)
}

func TestFilterReset(t *testing.T) {
	f, err := NewFilter(PushUp, filterParams(5))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := f.Update(testutil.FrameAt(int64(i), testutil.UpperBody(80, 0.95)))
		require.NoError(t, err)
	}
	f.Reset()

	snap, err := f.Update(testutil.FrameAt(10, testutil.UpperBody(170, 0.95)))
	require.NoError(t, err)
	v, ok := snap.Feature(FeatElbowAngle)
	require.True(t, ok)
	assert.InDelta(t, 170, v, 1e-6)
}
