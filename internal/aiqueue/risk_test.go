package aiqueue

import (
	"testing"

	"github.com/medibrief/api/internal/structuredinput"
	"github.com/stretchr/testify/assert"
)

func TestBuildRiskFlags_FlagsOutlierAgainstBaseline(t *testing.T) {
	// Most-recent-first, matching structuredinput.Builder's trend ordering:
	// the anomaly is the newest reading, at index 0.
	input := &structuredinput.Input{
		BPTrend:        []float64{165, 122, 121, 120},
		RecentSymptoms: []string{"reports dizziness today"},
	}
	flags := BuildRiskFlags(input)
	assert.True(t, flags.HighBloodPressureTrend)
	assert.True(t, flags.ConcerningSymptoms)
	assert.False(t, flags.RisingGlucoseTrend)
}

func TestBuildRiskFlags_WeightUsesAbsoluteZ(t *testing.T) {
	input := &structuredinput.Input{
		WeightTrend: []float64{120, 181, 179, 180},
	}
	flags := BuildRiskFlags(input)
	assert.True(t, flags.RapidWeightChange)
}

func TestBuildRiskFlags_ShortSeriesNeverFlags(t *testing.T) {
	input := &structuredinput.Input{BPTrend: []float64{165, 120}}
	flags := BuildRiskFlags(input)
	assert.False(t, flags.HighBloodPressureTrend)
}
