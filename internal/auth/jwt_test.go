package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibrief/api/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndParseToken_RoundTrip(t *testing.T) {
	subjectID := uuid.New()
	clinicID := uuid.New()

	signed, err := GenerateToken(subjectID, clinicID, models.RoleDoctor, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(signed, testSecret)
	require.NoError(t, err)
	assert.Equal(t, subjectID, claims.SubjectID)
	assert.Equal(t, clinicID, claims.ClinicID)
	assert.Equal(t, models.RoleDoctor, claims.Role)
}

func TestParseToken_RejectsExpiredToken(t *testing.T) {
	signed, err := GenerateToken(uuid.New(), uuid.New(), models.RoleAdmin, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(signed, testSecret)
	assert.Error(t, err)
}

func TestParseToken_RejectsWrongSecret(t *testing.T) {
	signed, err := GenerateToken(uuid.New(), uuid.New(), models.RoleAdmin, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(signed, "different-secret-that-is-long-enough")
	assert.Error(t, err)
}

func TestParseToken_RejectsNonHMACAlgorithm(t *testing.T) {
	claims := Claims{
		SubjectID: uuid.New(),
		ClinicID:  uuid.New(),
		Role:      models.RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(signed, testSecret)
	assert.Error(t, err)
}
