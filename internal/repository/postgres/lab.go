package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/models"
)

type LabStore struct{}

func NewLabStore() *LabStore {
	return &LabStore{}
}

// Create only inserts when patientID resolves to a non-archived patient in
// clinicID (§4.4); otherwise zero rows come back and Scan reports
// pgx.ErrNoRows.
func (s *LabStore) Create(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, l *models.LabResult) (*models.LabResult, error) {
	query := `
		INSERT INTO lab_results (id, patient_id, test_name, value, numeric_value, unit, reference_range, recorded_at, deleted_at)
		SELECT gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, NULL
		WHERE EXISTS (SELECT 1 FROM patients p WHERE p.id = $1 AND p.clinic_id = $8 AND p.is_archived = false)
		RETURNING id, patient_id, test_name, value, numeric_value, unit, reference_range, recorded_at, deleted_at`

	var out models.LabResult
	err := tx.QueryRow(ctx, query, l.PatientID, l.TestName, l.Value, l.NumericValue, l.Unit, l.ReferenceRange, l.RecordedAt, clinicID).Scan(
		&out.ID, &out.PatientID, &out.TestName, &out.Value, &out.NumericValue, &out.Unit, &out.ReferenceRange, &out.RecordedAt, &out.DeletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert lab result: %w", err)
	}
	return &out, nil
}

func (s *LabStore) ListByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, limit int) ([]models.LabResult, error) {
	query := `
		SELECT id, patient_id, test_name, value, numeric_value, unit, reference_range, recorded_at, deleted_at
		FROM lab_results
		WHERE patient_id = $1 AND deleted_at IS NULL
			AND EXISTS (SELECT 1 FROM patients p WHERE p.id = lab_results.patient_id AND p.clinic_id = $3)
		ORDER BY recorded_at DESC
		LIMIT $2`

	rows, err := tx.Query(ctx, query, patientID, limit, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list lab results: %w", err)
	}
	defer rows.Close()

	out := make([]models.LabResult, 0)
	for rows.Next() {
		var l models.LabResult
		if err := rows.Scan(&l.ID, &l.PatientID, &l.TestName, &l.Value, &l.NumericValue, &l.Unit, &l.ReferenceRange, &l.RecordedAt, &l.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan lab result: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lab results: %w", err)
	}
	return out, nil
}
