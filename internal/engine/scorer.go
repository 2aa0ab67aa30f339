package engine

import "math"

// Sub-score weights. Unavailable sub-scores are excluded and the rest
// renormalised, so an unmeasurable aspect never drags the score down.
const (
	weightDepth     = 0.5
	weightAlignment = 0.25
	weightTempo     = 0.25
)

// ScoreRep maps a completed repetition onto a 0-100 form score plus
// qualitative feedback. It always returns a score; with nothing
// measurable beyond the extremum the depth sub-score stands alone.
func ScoreRep(ev *RepEvent, p Params) (int, []string) {
	var feedback []string
	type sub struct {
		score  float64
		weight float64
	}
	subs := make([]sub, 0, 3)

	// Depth: linear penalty outside the ideal extremum range, capped.
	depth, fb := depthScore(ev.Bottom, p)
	subs = append(subs, sub{depth, weightDepth})
	if fb != "" {
		feedback = append(feedback, fb)
	}

	// Alignment: left/right symmetry, or lateral balance for the lunge.
	if align, fb, ok := alignmentScore(ev, p); ok {
		subs = append(subs, sub{align, weightAlignment})
		if fb != "" {
			feedback = append(feedback, fb)
		}
	}

	// Tempo: rep duration outside the plausible band is penalised.
	if dur := ev.Duration().Seconds(); dur > 0 {
		tempo, fb := tempoScore(dur, p)
		subs = append(subs, sub{tempo, weightTempo})
		if fb != "" {
			feedback = append(feedback, fb)
		}
	}

	var weighted, totalWeight float64
	for _, s := range subs {
		weighted += s.score * s.weight
		totalWeight += s.weight
	}
	score := int(math.Round(weighted / totalWeight))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if len(feedback) == 0 {
		feedback = append(feedback, "Good rep, keep it up")
	}
	return score, feedback
}

func depthScore(bottom float64, p Params) (float64, string) {
	const penaltyPerDegree = 2.5
	switch {
	case bottom < p.IdealBottomLow:
		over := p.IdealBottomLow - bottom
		return clampScore(100 - over*penaltyPerDegree), "Slightly too deep, ease up at the bottom"
	case bottom > p.IdealBottomHigh:
		short := bottom - p.IdealBottomHigh
		return clampScore(100 - short*penaltyPerDegree), "Go deeper next rep"
	default:
		return 100, ""
	}
}

func alignmentScore(ev *RepEvent, p Params) (float64, string, bool) {
	switch {
	case ev.AsymmetryOK:
		if ev.Asymmetry <= p.AsymmetryMax {
			return 100, "", true
		}
		over := ev.Asymmetry - p.AsymmetryMax
		return clampScore(100 - over*4), "Keep both sides moving together", true
	case ev.BalanceDriftOK:
		// Drift is a ratio of leg length, so penalise on a ratio scale.
		limit := maxf(p.BalanceDriftMax, 1e-9)
		if ev.BalanceDrift <= limit {
			return 100, "", true
		}
		over := (ev.BalanceDrift - limit) / limit
		return clampScore(100 - over*100), "Keep your hips steady", true
	}
	return 0, "", false
}

func tempoScore(durSeconds float64, p Params) (float64, string) {
	switch {
	case durSeconds < p.TempoMin:
		frac := durSeconds / p.TempoMin
		return clampScore(frac * 100), "Too fast, control the movement"
	case durSeconds > p.TempoMax:
		frac := p.TempoMax / durSeconds
		return clampScore(frac * 100), "Too slow, keep the movement continuous"
	default:
		return 100, ""
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
