package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/models"
)

type UserStore struct{}

func NewUserStore() *UserStore {
	return &UserStore{}
}

// Create inserts a new staff user row. Exactly one ADMIN is expected to be
// created per clinic, atomically with the clinic itself (§4.1) — the
// caller wraps both inserts in the same transaction.
func (s *UserStore) Create(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, name, email, passwordHash string, role models.Role) (*models.User, error) {
	query := `
		INSERT INTO users (id, clinic_id, name, email, password_hash, role, is_archived, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, false, now())
		RETURNING id, clinic_id, name, email, password_hash, role, is_archived, created_at`

	var u models.User
	err := tx.QueryRow(ctx, query, clinicID, name, email, passwordHash, role).Scan(
		&u.ID, &u.ClinicID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsArchived, &u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) GetByID(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, clinic_id, name, email, password_hash, role, is_archived, created_at
		FROM users
		WHERE id = $1 AND clinic_id = $2 AND is_archived = false`

	var u models.User
	err := tx.QueryRow(ctx, query, id, clinicID).Scan(
		&u.ID, &u.ClinicID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsArchived, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetByEmail looks up a staff user by email, globally (login needs to find
// the user before it knows which clinic they belong to).
func (s *UserStore) GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*models.User, error) {
	query := `
		SELECT id, clinic_id, name, email, password_hash, role, is_archived, created_at
		FROM users
		WHERE email = $1 AND is_archived = false`

	var u models.User
	err := tx.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.ClinicID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsArchived, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}
