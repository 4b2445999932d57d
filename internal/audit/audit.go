// Package audit implements the append-only audit trail's PHI-scrubbing
// stage. Every write path in the API composes Write with its repository
// transaction so no unscrubbed action text ever reaches storage.
package audit

import (
	"context"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
)

var (
	uuidPattern  = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	emailPattern = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	phonePattern = regexp.MustCompile(`(\+?\d[\d\-\s().]{6,}\d)`)
)

// Scrub removes 128-bit identifiers, email addresses, and phone numbers
// from free text, replacing each match with [REDACTED]. Applied to every
// AuditLog.Action before it is ever persisted.
func Scrub(text string) string {
	out := uuidPattern.ReplaceAllString(text, "[REDACTED]")
	out = emailPattern.ReplaceAllString(out, "[REDACTED]")
	out = phonePattern.ReplaceAllString(out, "[REDACTED]")
	return out
}

// Write scrubs action and persists the audit record inside the caller's
// already tenant-bound transaction. entityID is an opaque reference and is
// never scrubbed — it identifies a row, it is not free text.
func Write(ctx context.Context, tx pgx.Tx, repo repository.AuditRepository, userID uuid.UUID, action, entityType string, entityID uuid.UUID) error {
	a := &models.AuditLog{
		UserID:     userID,
		Action:     Scrub(action),
		EntityType: entityType,
		EntityID:   entityID,
	}
	return repo.Create(ctx, tx, a)
}
