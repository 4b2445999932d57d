package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/medibrief/api/internal/models"
)

// Claims is the payload inside every bearer token. It carries the three
// fields §4.1 requires: {id, clinicId, role}. Patients and staff share this
// shape — the Role field tells handlers which principal they're dealing
// with.
type Claims struct {
	SubjectID uuid.UUID   `json:"sub_id"`
	ClinicID  uuid.UUID   `json:"clinic_id"`
	Role      models.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for a staff or patient principal.
//
// HS256 is used throughout, same as the teacher: one shared secret, no
// key-pair management, fine for a single-service backend that both issues
// and verifies its own tokens.
func GenerateToken(subjectID, clinicID uuid.UUID, role models.Role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		SubjectID: subjectID,
		ClinicID:  clinicID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "medibrief",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token string and extracts its claims. It rejects
// any signing method other than HMAC, which prevents the classic JWT
// algorithm-confusion attack (a token signed with "none" or RSA, presented
// to a verifier that only expects HMAC).
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
