package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds the tunable parameters of the recognition engine.
// All fields are pointers so a partial JSON file only overrides what it
// names; the Get* accessors supply defaults for everything else. The same
// schema is accepted by the /api/params endpoint for runtime updates.
type TuningConfig struct {
	// Keypoint filter params
	ConfidenceMin    *float64 `json:"confidence_min,omitempty"`
	SmoothingWindow  *int     `json:"smoothing_window,omitempty"`
	MinJointFraction *float64 `json:"min_joint_fraction,omitempty"`

	// Shared state machine params
	DebounceWindow   *string  `json:"debounce_window,omitempty"` // duration string like "60ms"
	HysteresisMargin *float64 `json:"hysteresis_margin,omitempty"`

	// Push-up params (elbow angle, degrees)
	PushupDescendAngle    *float64 `json:"pushup_descend_angle,omitempty"`
	PushupLockoutAngle    *float64 `json:"pushup_lockout_angle,omitempty"`
	PushupIdealBottomLow  *float64 `json:"pushup_ideal_bottom_low,omitempty"`
	PushupIdealBottomHigh *float64 `json:"pushup_ideal_bottom_high,omitempty"`

	// Squat params (knee angle, degrees)
	SquatDescendAngle    *float64 `json:"squat_descend_angle,omitempty"`
	SquatLockoutAngle    *float64 `json:"squat_lockout_angle,omitempty"`
	SquatIdealBottomLow  *float64 `json:"squat_ideal_bottom_low,omitempty"`
	SquatIdealBottomHigh *float64 `json:"squat_ideal_bottom_high,omitempty"`

	// Lunge params (front knee angle in degrees; separation and drift are
	// ratios of trunk length, so they are invariant to camera scale)
	LungeDescendAngle      *float64 `json:"lunge_descend_angle,omitempty"`
	LungeLockoutAngle      *float64 `json:"lunge_lockout_angle,omitempty"`
	LungeIdealBottomLow    *float64 `json:"lunge_ideal_bottom_low,omitempty"`
	LungeIdealBottomHigh   *float64 `json:"lunge_ideal_bottom_high,omitempty"`
	LungeMinKneeSeparation *float64 `json:"lunge_min_knee_separation,omitempty"`
	LungeBalanceDriftMax   *float64 `json:"lunge_balance_drift_max,omitempty"`

	// Plank params (deviation is RMS body-line deviation divided by the
	// shoulder-to-ankle chord length)
	PlankDeviationMax *float64 `json:"plank_deviation_max,omitempty"`

	// Form scorer params
	AsymmetryMax    *float64 `json:"asymmetry_max,omitempty"` // degrees between sides
	TempoMinSeconds *float64 `json:"tempo_min_seconds,omitempty"`
	TempoMaxSeconds *float64 `json:"tempo_max_seconds,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Every Get* accessor then answers with its built-in default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the current directory. Panics
// if the file cannot be found, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *TuningConfig) Validate() error {
	if c.ConfidenceMin != nil {
		if *c.ConfidenceMin < 0 || *c.ConfidenceMin > 1 {
			return fmt.Errorf("confidence_min must be between 0 and 1, got %f", *c.ConfidenceMin)
		}
	}
	if c.MinJointFraction != nil {
		if *c.MinJointFraction < 0 || *c.MinJointFraction > 1 {
			return fmt.Errorf("min_joint_fraction must be between 0 and 1, got %f", *c.MinJointFraction)
		}
	}
	if c.SmoothingWindow != nil && *c.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing_window must be >= 1, got %d", *c.SmoothingWindow)
	}
	if c.DebounceWindow != nil && *c.DebounceWindow != "" {
		if _, err := time.ParseDuration(*c.DebounceWindow); err != nil {
			return fmt.Errorf("invalid debounce_window '%s': %w", *c.DebounceWindow, err)
		}
	}
	for name, pair := range map[string][2]*float64{
		"pushup": {c.PushupDescendAngle, c.PushupLockoutAngle},
		"squat":  {c.SquatDescendAngle, c.SquatLockoutAngle},
		"lunge":  {c.LungeDescendAngle, c.LungeLockoutAngle},
	} {
		for _, v := range pair {
			if v != nil && (*v <= 0 || *v >= 180) {
				return fmt.Errorf("%s angle thresholds must be inside (0, 180), got %f", name, *v)
			}
		}
		if pair[0] != nil && pair[1] != nil && *pair[1] <= *pair[0] {
			return fmt.Errorf("%s lockout angle must exceed descend angle", name)
		}
	}
	if c.PlankDeviationMax != nil && *c.PlankDeviationMax <= 0 {
		return fmt.Errorf("plank_deviation_max must be positive, got %f", *c.PlankDeviationMax)
	}
	if c.TempoMinSeconds != nil && c.TempoMaxSeconds != nil && *c.TempoMaxSeconds <= *c.TempoMinSeconds {
		return fmt.Errorf("tempo_max_seconds must exceed tempo_min_seconds")
	}
	return nil
}

// GetConfidenceMin returns the confidence_min value or the default.
func (c *TuningConfig) GetConfidenceMin() float64 {
	if c.ConfidenceMin == nil {
		return 0.5
	}
	return *c.ConfidenceMin
}

// GetSmoothingWindow returns the smoothing_window value or the default.
func (c *TuningConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return 5
	}
	return *c.SmoothingWindow
}

// GetMinJointFraction returns the min_joint_fraction value or the default.
func (c *TuningConfig) GetMinJointFraction() float64 {
	if c.MinJointFraction == nil {
		return 0.6
	}
	return *c.MinJointFraction
}

// GetDebounceWindow parses and returns the DebounceWindow as a duration.
// The default of 60ms is two frames at 30 FPS.
func (c *TuningConfig) GetDebounceWindow() time.Duration {
	if c.DebounceWindow == nil || *c.DebounceWindow == "" {
		return 60 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.DebounceWindow)
	if err != nil {
		return 60 * time.Millisecond
	}
	return d
}

// GetHysteresisMargin returns the hysteresis_margin value or the default.
func (c *TuningConfig) GetHysteresisMargin() float64 {
	if c.HysteresisMargin == nil {
		return 10.0
	}
	return *c.HysteresisMargin
}

// GetPushupDescendAngle returns the pushup_descend_angle value or the default.
func (c *TuningConfig) GetPushupDescendAngle() float64 {
	if c.PushupDescendAngle == nil {
		return 90.0
	}
	return *c.PushupDescendAngle
}

// GetPushupLockoutAngle returns the pushup_lockout_angle value or the default.
func (c *TuningConfig) GetPushupLockoutAngle() float64 {
	if c.PushupLockoutAngle == nil {
		return 160.0
	}
	return *c.PushupLockoutAngle
}

// GetPushupIdealBottomLow returns the pushup_ideal_bottom_low value or the default.
func (c *TuningConfig) GetPushupIdealBottomLow() float64 {
	if c.PushupIdealBottomLow == nil {
		return 70.0
	}
	return *c.PushupIdealBottomLow
}

// GetPushupIdealBottomHigh returns the pushup_ideal_bottom_high value or the default.
func (c *TuningConfig) GetPushupIdealBottomHigh() float64 {
	if c.PushupIdealBottomHigh == nil {
		return 90.0
	}
	return *c.PushupIdealBottomHigh
}

// GetSquatDescendAngle returns the squat_descend_angle value or the default.
func (c *TuningConfig) GetSquatDescendAngle() float64 {
	if c.SquatDescendAngle == nil {
		return 110.0
	}
	return *c.SquatDescendAngle
}

// GetSquatLockoutAngle returns the squat_lockout_angle value or the default.
func (c *TuningConfig) GetSquatLockoutAngle() float64 {
	if c.SquatLockoutAngle == nil {
		return 160.0
	}
	return *c.SquatLockoutAngle
}

// GetSquatIdealBottomLow returns the squat_ideal_bottom_low value or the default.
func (c *TuningConfig) GetSquatIdealBottomLow() float64 {
	if c.SquatIdealBottomLow == nil {
		return 70.0
	}
	return *c.SquatIdealBottomLow
}

// GetSquatIdealBottomHigh returns the squat_ideal_bottom_high value or the default.
func (c *TuningConfig) GetSquatIdealBottomHigh() float64 {
	if c.SquatIdealBottomHigh == nil {
		return 100.0
	}
	return *c.SquatIdealBottomHigh
}

// GetLungeDescendAngle returns the lunge_descend_angle value or the default.
func (c *TuningConfig) GetLungeDescendAngle() float64 {
	if c.LungeDescendAngle == nil {
		return 100.0
	}
	return *c.LungeDescendAngle
}

// GetLungeLockoutAngle returns the lunge_lockout_angle value or the default.
func (c *TuningConfig) GetLungeLockoutAngle() float64 {
	if c.LungeLockoutAngle == nil {
		return 150.0
	}
	return *c.LungeLockoutAngle
}

// GetLungeIdealBottomLow returns the lunge_ideal_bottom_low value or the default.
func (c *TuningConfig) GetLungeIdealBottomLow() float64 {
	if c.LungeIdealBottomLow == nil {
		return 80.0
	}
	return *c.LungeIdealBottomLow
}

// GetLungeIdealBottomHigh returns the lunge_ideal_bottom_high value or the default.
func (c *TuningConfig) GetLungeIdealBottomHigh() float64 {
	if c.LungeIdealBottomHigh == nil {
		return 100.0
	}
	return *c.LungeIdealBottomHigh
}

// GetLungeMinKneeSeparation returns the lunge_min_knee_separation value or the default.
func (c *TuningConfig) GetLungeMinKneeSeparation() float64 {
	if c.LungeMinKneeSeparation == nil {
		return 0.6
	}
	return *c.LungeMinKneeSeparation
}

// GetLungeBalanceDriftMax returns the lunge_balance_drift_max value or the default.
func (c *TuningConfig) GetLungeBalanceDriftMax() float64 {
	if c.LungeBalanceDriftMax == nil {
		return 0.5
	}
	return *c.LungeBalanceDriftMax
}

// GetPlankDeviationMax returns the plank_deviation_max value or the default.
func (c *TuningConfig) GetPlankDeviationMax() float64 {
	if c.PlankDeviationMax == nil {
		return 0.08
	}
	return *c.PlankDeviationMax
}

// GetAsymmetryMax returns the asymmetry_max value or the default.
func (c *TuningConfig) GetAsymmetryMax() float64 {
	if c.AsymmetryMax == nil {
		return 20.0
	}
	return *c.AsymmetryMax
}

// GetTempoMinSeconds returns the tempo_min_seconds value or the default.
func (c *TuningConfig) GetTempoMinSeconds() float64 {
	if c.TempoMinSeconds == nil {
		return 0.5
	}
	return *c.TempoMinSeconds
}

// GetTempoMaxSeconds returns the tempo_max_seconds value or the default.
func (c *TuningConfig) GetTempoMaxSeconds() float64 {
	if c.TempoMaxSeconds == nil {
		return 8.0
	}
	return *c.TempoMaxSeconds
}
