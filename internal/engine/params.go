package engine

import (
	"time"

	"github.com/repcoach/repcoach/internal/config"
)

// Params are the resolved tuning values driving one session. They are
// derived from a TuningConfig once at session start so the hot path never
// touches pointer fields.
type Params struct {
	// Filter
	ConfidenceMin    float64
	SmoothingWindow  int
	MinJointFraction float64

	// State machine
	Debounce         time.Duration
	HysteresisMargin float64
	DescendAngle     float64 // enter the descending phase below this
	LockoutAngle     float64 // rep completes above this

	// Lunge extras
	MinKneeSeparation float64
	BalanceDriftMax   float64

	// Plank
	PlankDeviationMax float64

	// Scorer
	IdealBottomLow  float64
	IdealBottomHigh float64
	AsymmetryMax    float64
	TempoMin        float64
	TempoMax        float64
}

// ParamsFor resolves the tuning values for one exercise. A nil cfg yields
// the built-in defaults.
func ParamsFor(ex Exercise, cfg *config.TuningConfig) Params {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	p := Params{
		ConfidenceMin:     cfg.GetConfidenceMin(),
		SmoothingWindow:   cfg.GetSmoothingWindow(),
		MinJointFraction:  cfg.GetMinJointFraction(),
		Debounce:          cfg.GetDebounceWindow(),
		HysteresisMargin:  cfg.GetHysteresisMargin(),
		MinKneeSeparation: cfg.GetLungeMinKneeSeparation(),
		BalanceDriftMax:   cfg.GetLungeBalanceDriftMax(),
		PlankDeviationMax: cfg.GetPlankDeviationMax(),
		AsymmetryMax:      cfg.GetAsymmetryMax(),
		TempoMin:          cfg.GetTempoMinSeconds(),
		TempoMax:          cfg.GetTempoMaxSeconds(),
	}
	switch ex {
	case PushUp:
		p.DescendAngle = cfg.GetPushupDescendAngle()
		p.LockoutAngle = cfg.GetPushupLockoutAngle()
		p.IdealBottomLow = cfg.GetPushupIdealBottomLow()
		p.IdealBottomHigh = cfg.GetPushupIdealBottomHigh()
	case Squat:
		p.DescendAngle = cfg.GetSquatDescendAngle()
		p.LockoutAngle = cfg.GetSquatLockoutAngle()
		p.IdealBottomLow = cfg.GetSquatIdealBottomLow()
		p.IdealBottomHigh = cfg.GetSquatIdealBottomHigh()
	case Lunge:
		p.DescendAngle = cfg.GetLungeDescendAngle()
		p.LockoutAngle = cfg.GetLungeLockoutAngle()
		p.IdealBottomLow = cfg.GetLungeIdealBottomLow()
		p.IdealBottomHigh = cfg.GetLungeIdealBottomHigh()
	}
	return p
}
