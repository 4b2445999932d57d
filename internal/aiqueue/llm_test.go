package aiqueue

import (
	"testing"

	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/structuredinput"
	"github.com/stretchr/testify/assert"
)

func TestRenderFallback_ContainsAllSections(t *testing.T) {
	input := &structuredinput.Input{
		Age:            42,
		BPTrend:        []float64{120, 122, 165},
		RecentSymptoms: []string{"chest pain"},
	}
	flags := models.RiskFlags{HighBloodPressureTrend: true}

	out := RenderFallback(input, flags)

	for _, section := range []string{
		"Clinical Overview:", "Vital Sign Trends:", "Laboratory Findings:",
		"Symptom Analysis:", "Risk Assessment:", "Recommended Monitoring:", "Disclaimer:",
	} {
		assert.Contains(t, out, section)
	}
	assert.Contains(t, out, Disclaimer)
	assert.Contains(t, out, "chest pain")
}

func TestRenderFallback_NoDataPlaceholders(t *testing.T) {
	out := RenderFallback(&structuredinput.Input{}, models.RiskFlags{})
	assert.Contains(t, out, "no data")
	assert.Contains(t, out, "No recent lab results on file.")
	assert.Contains(t, out, "No recent symptoms reported.")
}
