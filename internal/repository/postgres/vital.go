package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/models"
)

type VitalStore struct{}

func NewVitalStore() *VitalStore {
	return &VitalStore{}
}

// Create only inserts when patientID resolves to a non-archived patient in
// clinicID — a caller can never write a vital onto another clinic's patient
// by guessing an id (§4.4). No matching patient means zero rows back, which
// Scan reports as pgx.ErrNoRows.
func (s *VitalStore) Create(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, v *models.VitalRecord) (*models.VitalRecord, error) {
	query := `
		INSERT INTO vital_records (id, patient_id, type, value, numeric_value, unit, recorded_at, deleted_at)
		SELECT gen_random_uuid(), $1, $2, $3, $4, $5, $6, NULL
		WHERE EXISTS (SELECT 1 FROM patients p WHERE p.id = $1 AND p.clinic_id = $7 AND p.is_archived = false)
		RETURNING id, patient_id, type, value, numeric_value, unit, recorded_at, deleted_at`

	var out models.VitalRecord
	err := tx.QueryRow(ctx, query, v.PatientID, v.Type, v.Value, v.NumericValue, v.Unit, v.RecordedAt, clinicID).Scan(
		&out.ID, &out.PatientID, &out.Type, &out.Value, &out.NumericValue, &out.Unit, &out.RecordedAt, &out.DeletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert vital: %w", err)
	}
	return &out, nil
}

func (s *VitalStore) ListByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, limit int) ([]models.VitalRecord, error) {
	query := `
		SELECT id, patient_id, type, value, numeric_value, unit, recorded_at, deleted_at
		FROM vital_records
		WHERE patient_id = $1 AND deleted_at IS NULL
			AND EXISTS (SELECT 1 FROM patients p WHERE p.id = vital_records.patient_id AND p.clinic_id = $3)
		ORDER BY recorded_at DESC
		LIMIT $2`

	rows, err := tx.Query(ctx, query, patientID, limit, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list vitals: %w", err)
	}
	defer rows.Close()

	out := make([]models.VitalRecord, 0)
	for rows.Next() {
		var v models.VitalRecord
		if err := rows.Scan(&v.ID, &v.PatientID, &v.Type, &v.Value, &v.NumericValue, &v.Unit, &v.RecordedAt, &v.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan vital: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vitals: %w", err)
	}
	return out, nil
}
