package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/models"
)

// Why context.Context as the first parameter on every method?
//
//   - It's idiomatic Go for anything that does I/O (DB, Redis, HTTP).
//   - It carries deadlines: if the HTTP request is cancelled (client
//     disconnected), the DB query gets cancelled too. No wasted work.
//   - Rule of thumb in Go: if a function touches the network, it takes ctx.
//
// Why does every method also take a pgx.Tx?
//
//   - Every tenant-scoped query must run inside the transaction that
//     db.WithTenantTx bound the clinic id to (§4.2). Passing the pool
//     directly would bypass the row-level security session variable —
//     the repository never trusts the caller, it runs inside the bound tx.

// Page is the cursor-pagination envelope §4.4 specifies: {data, nextCursor}.
type Page[T any] struct {
	Data       []T        `json:"data"`
	NextCursor *uuid.UUID `json:"nextCursor"`
}

type ClinicRepository interface {
	Create(ctx context.Context, tx pgx.Tx, name, email, plan string) (*models.Clinic, error)
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Clinic, error)
	GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*models.Clinic, error)
	// IncrementAICallCount bumps the monotonic counter, resetting it (and
	// billingPeriodStart) first if `now` falls in a new UTC month (§4.8).
	IncrementAICallCount(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) (*models.Clinic, error)
}

type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, name, email, passwordHash string, role models.Role) (*models.User, error)
	GetByID(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*models.User, error)
}

type PatientRepository interface {
	Create(ctx context.Context, tx pgx.Tx, p *models.Patient) (*models.Patient, error)
	Update(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, p *models.Patient) (*models.Patient, error)
	GetByID(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID) (*models.Patient, error)
	GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*models.Patient, error)
	GetByInviteToken(ctx context.Context, tx pgx.Tx, token string) (*models.Patient, error)
	List(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, cursor *uuid.UUID, limit int) (Page[models.Patient], error)
	Archive(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID) error
	SetInvite(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID, token string, expiresAt time.Time) error
	SetupCredentials(ctx context.Context, tx pgx.Tx, id uuid.UUID, email, passwordHash string) (*models.Patient, error)
	SetPassword(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID, passwordHash string) error
	SetPhone(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID, phone string) error
}

// VitalRepository, LabRepository, and ConsultationRepository all take
// clinicID on every method, even though vital_records/lab_results/
// consultations carry no clinic_id column of their own — each query joins
// back through patients so a caller can never write or read another
// clinic's rows by guessing a patientID (§4.4, §9).
type VitalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, v *models.VitalRecord) (*models.VitalRecord, error)
	ListByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, limit int) ([]models.VitalRecord, error)
}

type LabRepository interface {
	Create(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, l *models.LabResult) (*models.LabResult, error)
	ListByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, limit int) ([]models.LabResult, error)
}

type ConsultationRepository interface {
	Create(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, c *models.Consultation) (*models.Consultation, error)
	ListByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, cursor *uuid.UUID, limit int) (Page[models.Consultation], error)
	ListRecentByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID, limit int) ([]models.Consultation, error)
}

type AISummaryRepository interface {
	Create(ctx context.Context, tx pgx.Tx, s *models.AISummary) (*models.AISummary, error)
	GetByID(ctx context.Context, tx pgx.Tx, clinicID, id uuid.UUID) (*models.AISummary, error)
	ListByPatient(ctx context.Context, tx pgx.Tx, clinicID, patientID uuid.UUID) ([]models.AISummary, error)
	ListLatestPerPatient(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID) ([]models.AISummary, error)
}

type AuditRepository interface {
	Create(ctx context.Context, tx pgx.Tx, a *models.AuditLog) error
	List(ctx context.Context, tx pgx.Tx, clinicID uuid.UUID, page, limit int, action, entityType string, userID *uuid.UUID) ([]models.AuditLog, error)
}
