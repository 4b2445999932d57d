package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
)

type PatientStore struct{}

func NewPatientStore() *PatientStore {
	return &PatientStore{}
}

const patientColumns = `id, clinic_id, first_name, last_name, date_of_birth, gender, phone, email,
	password_hash, invite_token, invite_expires_at, is_archived, created_at`

func scanPatient(row pgx.Row) (*models.Patient, error) {
	var p models.Patient
	err := row.Scan(
		&p.ID, &p.ClinicID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Email,
		&p.PasswordHash, &p.InviteToken, &p.InviteExpiresAt, &p.IsArchived, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *PatientStore) Create(ctx context.Context, tx pgx.Tx, p *models.Patient) (*models.Patient, error) {
	query := `
		INSERT INTO patients (id, clinic_id, first_name, last_name, date_of_birth, gender, phone, email,
			password_hash, invite_token, invite_expires_at, is_archived, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, NULL, NULL, NULL, false, now())
		RETURNING ` + patientColumns

	out, err := scanPatient(tx.QueryRow(ctx, query, p.ClinicID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.Phone, p.Email))
	if err != nil {
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	return out, nil
}

func (s *PatientStore) Update(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, p *models.Patient) (*models.Patient, error) {
	query := `
		UPDATE patients
		SET first_name = $3, last_name = $4, date_of_birth = $5, gender = $6, phone = $7, email = $8
		WHERE id = $1 AND clinic_id = $2 AND is_archived = false
		RETURNING ` + patientColumns

	out, err := scanPatient(tx.QueryRow(ctx, query, p.ID, clinicID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.Phone, p.Email))
	if err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return out, nil
}

func (s *PatientStore) GetByID(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 AND clinic_id = $2 AND is_archived = false`
	out, err := scanPatient(tx.QueryRow(ctx, query, id, clinicID))
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return out, nil
}

func (s *PatientStore) GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE email = $1 AND is_archived = false`
	out, err := scanPatient(tx.QueryRow(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("get patient by email: %w", err)
	}
	return out, nil
}

func (s *PatientStore) GetByInviteToken(ctx context.Context, tx pgx.Tx, token string) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE invite_token = $1 AND is_archived = false`
	out, err := scanPatient(tx.QueryRow(ctx, query, token))
	if err != nil {
		return nil, fmt.Errorf("get patient by invite token: %w", err)
	}
	return out, nil
}

// List implements the cursor pagination of §4.4: ordered createdAt desc, id
// tiebreak, nextCursor = last.id iff more rows exist.
func (s *PatientStore) List(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, cursor *uuid.UUID, limit int) (repository.Page[models.Patient], error) {
	var rows pgx.Rows
	var err error

	if cursor != nil {
		query := `
			SELECT ` + patientColumns + `
			FROM patients
			WHERE clinic_id = $1 AND is_archived = false
				AND (created_at, id) < (SELECT created_at, id FROM patients WHERE id = $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3`
		rows, err = tx.Query(ctx, query, clinicID, *cursor, limit+1)
	} else {
		query := `
			SELECT ` + patientColumns + `
			FROM patients
			WHERE clinic_id = $1 AND is_archived = false
			ORDER BY created_at DESC, id DESC
			LIMIT $2`
		rows, err = tx.Query(ctx, query, clinicID, limit+1)
	}
	if err != nil {
		return repository.Page[models.Patient]{}, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	patients := make([]models.Patient, 0, limit)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return repository.Page[models.Patient]{}, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return repository.Page[models.Patient]{}, fmt.Errorf("iterate patients: %w", err)
	}

	var next *uuid.UUID
	if len(patients) > limit {
		next = &patients[limit-1].ID
		patients = patients[:limit]
	}
	return repository.Page[models.Patient]{Data: patients, NextCursor: next}, nil
}

func (s *PatientStore) Archive(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `UPDATE patients SET is_archived = true WHERE id = $1 AND clinic_id = $2 AND is_archived = false`, id, clinicID)
	if err != nil {
		return fmt.Errorf("archive patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PatientStore) SetInvite(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID, token string, expiresAt time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE patients SET invite_token = $3, invite_expires_at = $4 WHERE id = $1 AND clinic_id = $2`,
		id, clinicID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("set invite: %w", err)
	}
	return nil
}

func (s *PatientStore) SetupCredentials(ctx context.Context, tx pgx.Tx, id uuid.UUID, email, passwordHash string) (*models.Patient, error) {
	query := `
		UPDATE patients
		SET email = $2, password_hash = $3, invite_token = NULL, invite_expires_at = NULL
		WHERE id = $1
		RETURNING ` + patientColumns
	out, err := scanPatient(tx.QueryRow(ctx, query, id, email, passwordHash))
	if err != nil {
		return nil, fmt.Errorf("setup patient credentials: %w", err)
	}
	return out, nil
}

func (s *PatientStore) SetPassword(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID, passwordHash string) error {
	_, err := tx.Exec(ctx,
		`UPDATE patients SET password_hash = $3 WHERE id = $1 AND clinic_id = $2`,
		id, clinicID, passwordHash)
	if err != nil {
		return fmt.Errorf("set patient password: %w", err)
	}
	return nil
}

func (s *PatientStore) SetPhone(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID, phone string) error {
	_, err := tx.Exec(ctx,
		`UPDATE patients SET phone = $3 WHERE id = $1 AND clinic_id = $2`,
		id, clinicID, phone)
	if err != nil {
		return fmt.Errorf("set patient phone: %w", err)
	}
	return nil
}
