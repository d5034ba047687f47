package workflow

import "math"

const (
	MinScore = 0.0
	MaxScore = 10.0
)

// ClampScore bounds s to [MinScore, MaxScore]. NaN counts as zero.
func ClampScore(s float64) float64 {
	switch {
	case math.IsNaN(s), s < MinScore:
		return MinScore
	case s > MaxScore:
		return MaxScore
	default:
		return s
	}
}

// Round2 rounds to two decimals, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TotalScore is Σ clamp(score)·weight/100 over all stages, rounded once to two
// decimals. Stages are visited in progression order so the float sum does not
// depend on map iteration.
func TotalScore(stages StageMap) float64 {
	var sum float64
	for _, info := range registry {
		sd, ok := stages[info.Type]
		if !ok || sd == nil {
			continue
		}
		sum += ClampScore(sd.Score) * sd.Weight
	}
	return Round2(sum / 100)
}

// WeightSum totals the configured stage weights.
func WeightSum(stages StageMap) float64 {
	var sum float64
	for _, sd := range stages {
		if sd != nil {
			sum += sd.Weight
		}
	}
	return sum
}

// WeightsValid reports whether the weights add up to 100.
func WeightsValid(stages StageMap) bool {
	return math.Abs(WeightSum(stages)-100) < 1e-9
}
