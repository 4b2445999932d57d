// Package structuredinput builds and caches the compact, numerically
// oriented patient projection (C7) that feeds the analytics engine, the
// anonymizer, and the AI pipeline.
package structuredinput

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/cache"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
)

const (
	vitalFetchLimit        = 20
	labFetchLimit          = 20
	consultationFetchLimit = 10

	maxRecentSymptoms  = 5
	maxRecentLabValues = 8
	maxTrendPoints      = 10

	// DefaultTTL is the cache lifetime for a structured-input entry.
	DefaultTTL = 5 * time.Minute
)

// LabValue is the compact {testName, value, numeric, unit} projection embedded
// in the structured input's recentLabValues.
type LabValue struct {
	TestName string   `json:"testName"`
	Value    string    `json:"value"`
	Numeric  *float64 `json:"numeric,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
}

// Input is the structured clinical projection §4.7 specifies.
type Input struct {
	Age              int        `json:"age"`
	BPTrend          []float64  `json:"bpTrend"`
	GlucoseTrend     []float64  `json:"glucoseTrend"`
	HeartRateTrend   []float64  `json:"heartRateTrend"`
	WeightTrend      []float64  `json:"weightTrend"`
	RecentSymptoms   []string   `json:"recentSymptoms"`
	RecentLabValues  []LabValue `json:"recentLabValues"`
}

// Key returns the cache key for a patient's structured input.
func Key(patientID uuid.UUID) string {
	return fmt.Sprintf("ai:structured-input:%s", patientID)
}

// Builder assembles Input from the clinical repositories and caches it.
type Builder struct {
	vitals        repository.VitalRepository
	labs          repository.LabRepository
	consultations repository.ConsultationRepository
	cache         *cache.Cache
	ttl           time.Duration
}

func NewBuilder(vitals repository.VitalRepository, labs repository.LabRepository, consultations repository.ConsultationRepository, c *cache.Cache) *Builder {
	return &Builder{vitals: vitals, labs: labs, consultations: consultations, cache: c, ttl: DefaultTTL}
}

// Build returns the structured input for a patient, preferring a cached
// copy. Cache read/write failures are non-fatal: the builder always falls
// back to recomputation from the repositories.
func (b *Builder) Build(ctx context.Context, tx pgx.Tx, patient *models.Patient) (*Input, error) {
	key := Key(patient.ID)

	if b.cache != nil {
		if raw, ok := b.cache.Get(ctx, key); ok {
			var cached Input
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	input, err := b.compute(ctx, tx, patient)
	if err != nil {
		return nil, err
	}

	if b.cache != nil {
		if raw, err := json.Marshal(input); err == nil {
			b.cache.Set(ctx, key, string(raw), b.ttl)
		}
	}

	return input, nil
}

// Invalidate evicts the cached structured input for a patient. Called on
// any mutation to the patient, its vitals, labs, or consultations (§4.7).
func (b *Builder) Invalidate(ctx context.Context, patientID uuid.UUID) {
	if b.cache == nil {
		return
	}
	b.cache.Del(ctx, Key(patientID))
}

func (b *Builder) compute(ctx context.Context, tx pgx.Tx, patient *models.Patient) (*Input, error) {
	vitals, err := b.vitals.ListByPatient(ctx, tx, patient.ClinicID, patient.ID, vitalFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("list vitals: %w", err)
	}
	labs, err := b.labs.ListByPatient(ctx, tx, patient.ClinicID, patient.ID, labFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("list labs: %w", err)
	}
	consultations, err := b.consultations.ListRecentByPatient(ctx, tx, patient.ClinicID, patient.ID, consultationFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}

	input := &Input{
		Age:            ageOf(patient.DateOfBirth),
		BPTrend:        trendFor(vitals, models.VitalBP),
		GlucoseTrend:   trendFor(vitals, models.VitalGlucose),
		HeartRateTrend: trendFor(vitals, models.VitalHeartRate),
		WeightTrend:    trendFor(vitals, models.VitalWeight),
	}

	for _, c := range consultations {
		if len(input.RecentSymptoms) >= maxRecentSymptoms {
			break
		}
		if c.Symptoms != "" {
			input.RecentSymptoms = append(input.RecentSymptoms, c.Symptoms)
		}
	}

	for _, l := range labs {
		if len(input.RecentLabValues) >= maxRecentLabValues {
			break
		}
		input.RecentLabValues = append(input.RecentLabValues, LabValue{
			TestName: l.TestName,
			Value:    l.Value,
			Numeric:  l.NumericValue,
			Unit:     l.Unit,
		})
	}

	return input, nil
}

// trendFor extracts the numeric series for one vital type, most-recent
// first, capped at maxTrendPoints. ListByPatient already returns vitals in
// recordedAt-descending order, so no re-sort is needed here.
func trendFor(vitals []models.VitalRecord, t models.VitalType) []float64 {
	out := make([]float64, 0, maxTrendPoints)
	for _, v := range vitals {
		if v.Type != t {
			continue
		}
		if v.NumericValue == nil || math.IsNaN(*v.NumericValue) || math.IsInf(*v.NumericValue, 0) {
			continue
		}
		out = append(out, *v.NumericValue)
		if len(out) >= maxTrendPoints {
			break
		}
	}
	return out
}

func ageOf(dob time.Time) int {
	now := time.Now().UTC()
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
