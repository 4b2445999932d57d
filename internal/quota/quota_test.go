package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonthlyLimit_SubstringMatch(t *testing.T) {
	l := Limits{Free: 50, Pro: 500, Enterprise: 5000}
	assert.Equal(t, 5000, l.MonthlyLimit("enterprise-annual"))
	assert.Equal(t, 500, l.MonthlyLimit("pro-monthly"))
	assert.Equal(t, 50, l.MonthlyLimit("free"))
	assert.Equal(t, 50, l.MonthlyLimit("unknown-plan"))
}

func TestMonthlyLimit_CaseInsensitive(t *testing.T) {
	l := Limits{Free: 50, Pro: 500, Enterprise: 5000}
	assert.Equal(t, 5000, l.MonthlyLimit("Enterprise"))
}
