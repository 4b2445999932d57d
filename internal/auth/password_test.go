package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple")
	require.NoError(t, err)

	assert.True(t, ComparePassword(hash, "correct-horse-battery-staple"))
	assert.False(t, ComparePassword(hash, "wrong-password"))
}

func TestHashPassword_ProducesDistinctSaltsPerCall(t *testing.T) {
	a, err := HashPassword("same-input")
	require.NoError(t, err)
	b, err := HashPassword("same-input")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, ComparePassword(a, "same-input"))
	assert.True(t, ComparePassword(b, "same-input"))
}
