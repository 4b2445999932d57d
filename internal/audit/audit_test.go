package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrub_RedactsIdentifiersEmailsAndPhones(t *testing.T) {
	in := "updated patient 9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d, contact jane@example.com or 555-123-4567"
	out := Scrub(in)
	assert.NotContains(t, out, "9b1deb4d")
	assert.NotContains(t, out, "jane@example.com")
	assert.NotContains(t, out, "555-123-4567")
	assert.Contains(t, out, "[REDACTED]")
}

func TestScrub_PlainTextUnaffected(t *testing.T) {
	in := "archived patient record"
	assert.Equal(t, in, Scrub(in))
}
