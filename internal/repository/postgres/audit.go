package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/models"
)

type AuditStore struct{}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Create appends an immutable audit record. Callers must have already
// scrubbed `a.Action` (internal/audit handles that) — this store never
// mutates it, it only persists.
func (s *AuditStore) Create(ctx context.Context, tx pgx.Tx, a *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, timestamp)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, now())`

	_, err := tx.Exec(ctx, query, a.UserID, a.Action, a.EntityType, a.EntityID)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// List is ADMIN-only (enforced at the handler layer) and is explicitly
// scoped to clinicID via the join through users.clinic_id — the row-level
// policy bound by WithTenantTx backs this up, but the application-level
// filter here does not depend on it (§4.3, §9).
func (s *AuditStore) List(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, page, limit int, action, entityType string, userID *uuid.UUID) ([]models.AuditLog, error) {
	query := `
		SELECT al.id, al.user_id, al.action, al.entity_type, al.entity_id, al.timestamp
		FROM audit_logs al
		JOIN users u ON u.id = al.user_id
		WHERE u.clinic_id = $6
			AND ($3 = '' OR al.action = $3)
			AND ($4 = '' OR al.entity_type = $4)
			AND ($5::uuid IS NULL OR al.user_id = $5)
		ORDER BY al.timestamp DESC
		LIMIT $1 OFFSET $2`

	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}

	rows, err := tx.Query(ctx, query, limit, offset, action, entityType, userID, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	out := make([]models.AuditLog, 0)
	for rows.Next() {
		var a models.AuditLog
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.EntityType, &a.EntityID, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return out, nil
}
