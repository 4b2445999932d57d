package aiqueue

import (
	"github.com/medibrief/api/internal/analytics"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/structuredinput"
)

const riskZThreshold = 2.0

// BuildRiskFlags derives the deterministic AI risk flags from the
// structured input's four vital trends and recent symptoms (§4.8 step 2).
// Each trend flag is true iff the latest reading's z-score against the
// prior baseline meets the threshold; weight uses the absolute value since
// rapid loss is as concerning as rapid gain.
func BuildRiskFlags(input *structuredinput.Input) models.RiskFlags {
	var flags models.RiskFlags

	if z, ok := analytics.LatestZScore(input.BPTrend); ok && z >= riskZThreshold {
		flags.HighBloodPressureTrend = true
	}
	if z, ok := analytics.LatestZScore(input.GlucoseTrend); ok && z >= riskZThreshold {
		flags.RisingGlucoseTrend = true
	}
	if z, ok := analytics.LatestZScore(input.HeartRateTrend); ok && z >= riskZThreshold {
		flags.TachycardiaTrend = true
	}
	if z, ok := analytics.LatestZScore(input.WeightTrend); ok && absf(z) >= riskZThreshold {
		flags.RapidWeightChange = true
	}

	for _, s := range input.RecentSymptoms {
		if analytics.IsConcerningSymptom(s) {
			flags.ConcerningSymptoms = true
			break
		}
	}

	return flags
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
