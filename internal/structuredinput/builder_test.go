package structuredinput

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
)

type fakeVitalRepo struct {
	records []models.VitalRecord
}

func (f *fakeVitalRepo) Create(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, v *models.VitalRecord) (*models.VitalRecord, error) {
	return v, nil
}

func (f *fakeVitalRepo) ListByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, limit int) ([]models.VitalRecord, error) {
	return f.records, nil
}

type fakeLabRepo struct {
	records []models.LabResult
}

func (f *fakeLabRepo) Create(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, l *models.LabResult) (*models.LabResult, error) {
	return l, nil
}

func (f *fakeLabRepo) ListByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, limit int) ([]models.LabResult, error) {
	return f.records, nil
}

type fakeConsultationRepo struct {
	recent []models.Consultation
}

func (f *fakeConsultationRepo) Create(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, c *models.Consultation) (*models.Consultation, error) {
	return c, nil
}

func (f *fakeConsultationRepo) ListByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, cursor *uuid.UUID, limit int) (repository.Page[models.Consultation], error) {
	return repository.Page[models.Consultation]{}, nil
}

func (f *fakeConsultationRepo) ListRecentByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, limit int) ([]models.Consultation, error) {
	return f.recent, nil
}

func numeric(v float64) *float64 { return &v }

func TestBuilder_Build_NoCache_ComputesFromRepositories(t *testing.T) {
	vitals := &fakeVitalRepo{records: []models.VitalRecord{
		{Type: models.VitalBP, NumericValue: numeric(120)},
		{Type: models.VitalBP, NumericValue: numeric(130)},
		{Type: models.VitalGlucose, NumericValue: numeric(95)},
	}}
	labs := &fakeLabRepo{records: []models.LabResult{
		{TestName: "A1C", Value: "6.1", NumericValue: numeric(6.1)},
	}}
	consultations := &fakeConsultationRepo{recent: []models.Consultation{
		{Symptoms: "mild headache"},
	}}

	builder := NewBuilder(vitals, labs, consultations, nil)
	patient := &models.Patient{ID: uuid.New(), DateOfBirth: time.Now().AddDate(-40, 0, 0)}

	input, err := builder.Build(context.Background(), nil, patient)
	require.NoError(t, err)

	assert.Equal(t, 40, input.Age)
	assert.Equal(t, []float64{120, 130}, input.BPTrend)
	assert.Equal(t, []float64{95}, input.GlucoseTrend)
	assert.Equal(t, []string{"mild headache"}, input.RecentSymptoms)
	require.Len(t, input.RecentLabValues, 1)
	assert.Equal(t, "A1C", input.RecentLabValues[0].TestName)
}

func TestBuilder_Build_SkipsNonFiniteVitalValues(t *testing.T) {
	vitals := &fakeVitalRepo{records: []models.VitalRecord{
		{Type: models.VitalWeight, NumericValue: nil},
		{Type: models.VitalWeight, NumericValue: numeric(180)},
	}}
	builder := NewBuilder(vitals, &fakeLabRepo{}, &fakeConsultationRepo{}, nil)
	patient := &models.Patient{ID: uuid.New(), DateOfBirth: time.Now().AddDate(-30, 0, 0)}

	input, err := builder.Build(context.Background(), nil, patient)
	require.NoError(t, err)
	assert.Equal(t, []float64{180}, input.WeightTrend)
}

func TestBuilder_Invalidate_NoCacheIsNoop(t *testing.T) {
	builder := NewBuilder(&fakeVitalRepo{}, &fakeLabRepo{}, &fakeConsultationRepo{}, nil)
	builder.Invalidate(context.Background(), uuid.New())
}
