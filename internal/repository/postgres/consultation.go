package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
)

type ConsultationStore struct{}

func NewConsultationStore() *ConsultationStore {
	return &ConsultationStore{}
}

const consultationSelect = `
	SELECT c.id, c.patient_id, c.doctor_id, c.date, c.symptoms, c.notes, c.deleted_at,
		u.id, u.name, u.email, u.role
	FROM consultations c
	JOIN users u ON u.id = c.doctor_id
`

func scanConsultation(row pgx.Row) (*models.Consultation, error) {
	var c models.Consultation
	var doc models.DoctorProjection
	err := row.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.Date, &c.Symptoms, &c.Notes, &c.DeletedAt,
		&doc.ID, &doc.Name, &doc.Email, &doc.Role)
	if err != nil {
		return nil, err
	}
	c.Doctor = &doc
	return &c, nil
}

// Create only inserts when patientID resolves to a non-archived patient in
// clinicID (§4.4); otherwise the INSERT affects zero rows and Scan reports
// pgx.ErrNoRows.
func (s *ConsultationStore) Create(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, c *models.Consultation) (*models.Consultation, error) {
	insert := `
		INSERT INTO consultations (id, patient_id, doctor_id, date, symptoms, notes, deleted_at)
		SELECT gen_random_uuid(), $1, $2, $3, $4, $5, NULL
		WHERE EXISTS (SELECT 1 FROM patients p WHERE p.id = $1 AND p.clinic_id = $6 AND p.is_archived = false)
		RETURNING id`

	var id uuid.UUID
	if err := tx.QueryRow(ctx, insert, c.PatientID, c.DoctorID, c.Date, c.Symptoms, c.Notes, clinicID).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert consultation: %w", err)
	}

	out, err := scanConsultation(tx.QueryRow(ctx, consultationSelect+" WHERE c.id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("reload consultation: %w", err)
	}
	return out, nil
}

func (s *ConsultationStore) ListByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, cursor *uuid.UUID, limit int) (repository.Page[models.Consultation], error) {
	var rows pgx.Rows
	var err error

	if cursor != nil {
		query := consultationSelect + `
			WHERE c.patient_id = $1 AND c.deleted_at IS NULL
				AND (c.date, c.id) < (SELECT date, id FROM consultations WHERE id = $2)
				AND EXISTS (SELECT 1 FROM patients p WHERE p.id = c.patient_id AND p.clinic_id = $4)
			ORDER BY c.date DESC, c.id DESC
			LIMIT $3`
		rows, err = tx.Query(ctx, query, patientID, *cursor, limit+1, clinicID)
	} else {
		query := consultationSelect + `
			WHERE c.patient_id = $1 AND c.deleted_at IS NULL
				AND EXISTS (SELECT 1 FROM patients p WHERE p.id = c.patient_id AND p.clinic_id = $3)
			ORDER BY c.date DESC, c.id DESC
			LIMIT $2`
		rows, err = tx.Query(ctx, query, patientID, limit+1, clinicID)
	}
	if err != nil {
		return repository.Page[models.Consultation]{}, fmt.Errorf("list consultations: %w", err)
	}
	defer rows.Close()

	out := make([]models.Consultation, 0, limit)
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return repository.Page[models.Consultation]{}, fmt.Errorf("scan consultation: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return repository.Page[models.Consultation]{}, fmt.Errorf("iterate consultations: %w", err)
	}

	var next *uuid.UUID
	if len(out) > limit {
		next = &out[limit-1].ID
		out = out[:limit]
	}
	return repository.Page[models.Consultation]{Data: out, NextCursor: next}, nil
}

// ListRecentByPatient is the unpaginated form used by the structured-input
// builder (§4.7), capped to the most recent `limit` consultations.
func (s *ConsultationStore) ListRecentByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, limit int) ([]models.Consultation, error) {
	query := consultationSelect + `
		WHERE c.patient_id = $1 AND c.deleted_at IS NULL
			AND EXISTS (SELECT 1 FROM patients p WHERE p.id = c.patient_id AND p.clinic_id = $3)
		ORDER BY c.date DESC, c.id DESC
		LIMIT $2`

	rows, err := tx.Query(ctx, query, patientID, limit, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list recent consultations: %w", err)
	}
	defer rows.Close()

	out := make([]models.Consultation, 0, limit)
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consultations: %w", err)
	}
	return out, nil
}
