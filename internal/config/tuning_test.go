package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }
func str(v string) *string   { return &v }

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	assert.Equal(t, 0.5, cfg.GetConfidenceMin())
	assert.Equal(t, 5, cfg.GetSmoothingWindow())
	assert.Equal(t, 0.6, cfg.GetMinJointFraction())
	assert.Equal(t, 60*time.Millisecond, cfg.GetDebounceWindow())
	assert.Equal(t, 10.0, cfg.GetHysteresisMargin())

	assert.Equal(t, 90.0, cfg.GetPushupDescendAngle())
	assert.Equal(t, 160.0, cfg.GetPushupLockoutAngle())
	assert.Equal(t, 110.0, cfg.GetSquatDescendAngle())
	assert.Equal(t, 100.0, cfg.GetLungeDescendAngle())
	assert.Equal(t, 0.6, cfg.GetLungeMinKneeSeparation())
	assert.Equal(t, 0.08, cfg.GetPlankDeviationMax())
	assert.Equal(t, 20.0, cfg.GetAsymmetryMax())
	assert.Equal(t, 0.5, cfg.GetTempoMinSeconds())
	assert.Equal(t, 8.0, cfg.GetTempoMaxSeconds())
}

func TestLoadTuningConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"confidence_min": 0.7,
		"pushup_descend_angle": 95,
		"debounce_window": "100ms"
	}`), 0o644))

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.GetConfidenceMin())
	assert.Equal(t, 95.0, cfg.GetPushupDescendAngle())
	assert.Equal(t, 100*time.Millisecond, cfg.GetDebounceWindow())
	// Everything else keeps its default.
	assert.Equal(t, 5, cfg.GetSmoothingWindow())
	assert.Equal(t, 160.0, cfg.GetPushupLockoutAngle())
}

func TestLoadTuningConfigErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(dir, "tuning.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
		_, err := LoadTuningConfig(path)
		assert.ErrorContains(t, err, ".json")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTuningConfig(filepath.Join(dir, "absent.json"))
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
		_, err := LoadTuningConfig(path)
		assert.ErrorContains(t, err, "parse")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"confidence_min": 1.5}`), 0o644))
		_, err := LoadTuningConfig(path)
		assert.ErrorContains(t, err, "confidence_min")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TuningConfig
		wantErr string
	}{
		{"empty is valid", TuningConfig{}, ""},
		{"confidence out of range", TuningConfig{ConfidenceMin: f64(-0.1)}, "confidence_min"},
		{"joint fraction out of range", TuningConfig{MinJointFraction: f64(2)}, "min_joint_fraction"},
		{"smoothing window too small", TuningConfig{SmoothingWindow: i(0)}, "smoothing_window"},
		{"bad debounce duration", TuningConfig{DebounceWindow: str("fast")}, "debounce_window"},
		{"angle out of range", TuningConfig{SquatDescendAngle: f64(200)}, "squat"},
		{
			"lockout below descend",
			TuningConfig{PushupDescendAngle: f64(120), PushupLockoutAngle: f64(100)},
			"lockout angle must exceed descend angle",
		},
		{"negative plank deviation", TuningConfig{PlankDeviationMax: f64(-1)}, "plank_deviation_max"},
		{
			"tempo band inverted",
			TuningConfig{TempoMinSeconds: f64(4), TempoMaxSeconds: f64(2)},
			"tempo_max_seconds",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfigFileMatchesBuiltins(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	// The shipped defaults file must agree with the accessor defaults so
	// running with or without -tuning behaves identically.
	empty := EmptyTuningConfig()
	assert.Equal(t, empty.GetConfidenceMin(), cfg.GetConfidenceMin())
	assert.Equal(t, empty.GetSmoothingWindow(), cfg.GetSmoothingWindow())
	assert.Equal(t, empty.GetDebounceWindow(), cfg.GetDebounceWindow())
	assert.Equal(t, empty.GetPushupDescendAngle(), cfg.GetPushupDescendAngle())
	assert.Equal(t, empty.GetSquatLockoutAngle(), cfg.GetSquatLockoutAngle())
	assert.Equal(t, empty.GetLungeBalanceDriftMax(), cfg.GetLungeBalanceDriftMax())
	assert.Equal(t, empty.GetPlankDeviationMax(), cfg.GetPlankDeviationMax())
	assert.Equal(t, empty.GetTempoMaxSeconds(), cfg.GetTempoMaxSeconds())
}
