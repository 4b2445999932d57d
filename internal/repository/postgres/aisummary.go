package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/models"
)

type AISummaryStore struct{}

func NewAISummaryStore() *AISummaryStore {
	return &AISummaryStore{}
}

func scanAISummary(row pgx.Row) (*models.AISummary, error) {
	var s models.AISummary
	var flags []byte
	err := row.Scan(&s.ID, &s.PatientID, &s.SummaryText, &flags, &s.CreatedAt, &s.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(flags, &s.RiskFlags); err != nil {
		return nil, fmt.Errorf("unmarshal risk flags: %w", err)
	}
	return &s, nil
}

func (s *AISummaryStore) Create(ctx context.Context, tx pgx.Tx, summary *models.AISummary) (*models.AISummary, error) {
	flags, err := json.Marshal(summary.RiskFlags)
	if err != nil {
		return nil, fmt.Errorf("marshal risk flags: %w", err)
	}

	query := `
		INSERT INTO ai_summaries (id, patient_id, summary_text, risk_flags, created_at, deleted_at)
		VALUES (gen_random_uuid(), $1, $2, $3, now(), NULL)
		RETURNING id, patient_id, summary_text, risk_flags, created_at, deleted_at`

	out, err := scanAISummary(tx.QueryRow(ctx, query, summary.PatientID, summary.SummaryText, flags))
	if err != nil {
		return nil, fmt.Errorf("insert ai summary: %w", err)
	}
	return out, nil
}

// GetByID is clinic-scoped via a join to patients — a staff member cannot
// read another clinic's AI-generated narrative by guessing a summaryId
// (§4.4, §9).
func (s *AISummaryStore) GetByID(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID) (*models.AISummary, error) {
	query := `
		SELECT a.id, a.patient_id, a.summary_text, a.risk_flags, a.created_at, a.deleted_at
		FROM ai_summaries a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.id = $1 AND a.deleted_at IS NULL AND p.clinic_id = $2`

	out, err := scanAISummary(tx.QueryRow(ctx, query, id, clinicID))
	if err != nil {
		return nil, fmt.Errorf("get ai summary: %w", err)
	}
	return out, nil
}

func (s *AISummaryStore) ListByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID) ([]models.AISummary, error) {
	query := `
		SELECT id, patient_id, summary_text, risk_flags, created_at, deleted_at
		FROM ai_summaries
		WHERE patient_id = $1 AND deleted_at IS NULL
			AND EXISTS (SELECT 1 FROM patients p WHERE p.id = ai_summaries.patient_id AND p.clinic_id = $2)
		ORDER BY created_at DESC`

	rows, err := tx.Query(ctx, query, patientID, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list ai summaries: %w", err)
	}
	defer rows.Close()

	out := make([]models.AISummary, 0)
	for rows.Next() {
		s, err := scanAISummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ai summary: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ai summaries: %w", err)
	}
	return out, nil
}

// ListLatestPerPatient backs the clinic-risk analytics roll-up (§6): one
// row per patient, their most recent summary only.
func (s *AISummaryStore) ListLatestPerPatient(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID) ([]models.AISummary, error) {
	query := `
		SELECT DISTINCT ON (a.patient_id) a.id, a.patient_id, a.summary_text, a.risk_flags, a.created_at, a.deleted_at
		FROM ai_summaries a
		JOIN patients p ON p.id = a.patient_id
		WHERE p.clinic_id = $1 AND a.deleted_at IS NULL AND p.is_archived = false
		ORDER BY a.patient_id, a.created_at DESC`

	rows, err := tx.Query(ctx, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list latest ai summaries: %w", err)
	}
	defer rows.Close()

	out := make([]models.AISummary, 0)
	for rows.Next() {
		s, err := scanAISummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ai summary: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ai summaries: %w", err)
	}
	return out, nil
}
