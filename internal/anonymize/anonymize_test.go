package anonymize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgeBand(t *testing.T) {
	assert.Equal(t, "unknown", AgeBand(-1))
	assert.Equal(t, "0-4", AgeBand(0))
	assert.Equal(t, "40-44", AgeBand(42))
	assert.Equal(t, "40-44", AgeBand(40))
	assert.Equal(t, "45-49", AgeBand(45))
}

func TestSessionID_IsUnique(t *testing.T) {
	a := SessionID()
	b := SessionID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestNormalizeSymptom_RedactsName(t *testing.T) {
	out := NormalizeSymptom("Patient Jane Smith reports chest pain")
	assert.NotContains(t, out, "jane")
	assert.NotContains(t, out, "smith")
	assert.Contains(t, out, "[redacted]")
	assert.Contains(t, out, "chest pain")
}

func TestNormalizeSymptom_RedactsPhoneAndEmail(t *testing.T) {
	out := NormalizeSymptom("Call 555-123-4567 or email jane@example.com about dizziness")
	assert.Contains(t, out, "[phone]")
	assert.Contains(t, out, "[email]")
	assert.NotContains(t, out, "jane@example.com")
}

func TestNormalizeSymptom_StripsSalutationAndCollapsesWhitespace(t *testing.T) {
	out := NormalizeSymptom("Dr:   reports   fatigue")
	assert.Equal(t, "reports fatigue", out)
}

func TestNormalizeSymptoms(t *testing.T) {
	out := NormalizeSymptoms([]string{"Mr. Jones has syncope", "routine follow-up"})
	assert.Len(t, out, 2)
	assert.Contains(t, out[1], "follow-up")
}
