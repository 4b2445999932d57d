package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the tagged enum of principal kinds a bearer token can carry.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

// Clinic is the top-level isolation boundary. Every other domain entity
// belongs to exactly one clinic, directly or reachably through Patient.
type Clinic struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	SubscriptionPlan   string    `json:"subscription_plan"`
	AICallCount        int       `json:"ai_call_count"`
	BillingPeriodStart time.Time `json:"billing_period_start"`
	CreatedAt          time.Time `json:"created_at"`
}

// User is a staff principal: ADMIN or DOCTOR.
//
// Why ClinicID here?
//   - Every query is scoped: "give me users WHERE clinic_id = X".
//   - This is the application-level half of the tenant isolation described
//     in §4.2; the database-level half is the row-level policy bound to
//     the session variable the RLS binder sets.
type User struct {
	ID           uuid.UUID `json:"id"`
	ClinicID     uuid.UUID `json:"clinic_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsArchived   bool      `json:"is_archived"`
	CreatedAt    time.Time `json:"created_at"`
}

// Patient is a data subject. When PasswordHash is set, they are also an
// authentication principal with role PATIENT.
type Patient struct {
	ID              uuid.UUID  `json:"id"`
	ClinicID        uuid.UUID  `json:"clinic_id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	DateOfBirth     time.Time  `json:"date_of_birth"`
	Gender          string     `json:"gender"`
	Phone           *string    `json:"phone,omitempty"`
	Email           *string    `json:"email,omitempty"`
	PasswordHash    *string    `json:"-"`
	InviteToken     *string    `json:"-"`
	InviteExpiresAt *time.Time `json:"invite_expires_at,omitempty"`
	IsArchived      bool       `json:"is_archived"`
	CreatedAt       time.Time  `json:"created_at"`
}

// VitalType enumerates the vital-sign series the analytics engine tracks.
type VitalType string

const (
	VitalBP        VitalType = "BP"
	VitalGlucose   VitalType = "GLUCOSE"
	VitalHeartRate VitalType = "HEART_RATE"
	VitalWeight    VitalType = "WEIGHT"
)

// VitalRecord is a single vital-sign reading, soft-deletable.
type VitalRecord struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	Type         VitalType  `json:"type"`
	Value        string     `json:"value"`
	NumericValue *float64   `json:"numeric_value,omitempty"`
	Unit         *string    `json:"unit,omitempty"`
	RecordedAt   time.Time  `json:"recorded_at"`
	DeletedAt    *time.Time `json:"-"`
}

// LabResult is a single lab test reading, soft-deletable.
type LabResult struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	TestName       string     `json:"test_name"`
	Value          string     `json:"value"`
	NumericValue   *float64   `json:"numeric_value,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
	ReferenceRange *string    `json:"reference_range,omitempty"`
	RecordedAt     time.Time  `json:"recorded_at"`
	DeletedAt      *time.Time `json:"-"`
}

// Consultation is a doctor/patient visit record, soft-deletable.
type Consultation struct {
	ID        uuid.UUID  `json:"id"`
	PatientID uuid.UUID  `json:"patient_id"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	Date      time.Time  `json:"date"`
	Symptoms  string     `json:"symptoms"`
	Notes     string     `json:"notes"`
	DeletedAt *time.Time `json:"-"`

	// Doctor is a joined projection populated by read paths only.
	Doctor *DoctorProjection `json:"doctor,omitempty"`
}

// DoctorProjection is the {id, name, email, role} shape joined onto
// consultation reads.
type DoctorProjection struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

// RiskFlags are the deterministic booleans derived from z-scores on the
// four tracked vital trends, plus a symptom-regex flag.
type RiskFlags struct {
	HighBloodPressureTrend bool `json:"high_blood_pressure_trend"`
	RisingGlucoseTrend     bool `json:"rising_glucose_trend"`
	TachycardiaTrend       bool `json:"tachycardia_trend"`
	RapidWeightChange      bool `json:"rapid_weight_change"`
	ConcerningSymptoms     bool `json:"concerning_symptoms"`
}

// ActiveCount returns how many of the four AI risk flags are set, used by
// the composite risk score's ai_risk_flags contributor.
func (f RiskFlags) ActiveCount() int {
	n := 0
	if f.HighBloodPressureTrend {
		n++
	}
	if f.RisingGlucoseTrend {
		n++
	}
	if f.TachycardiaTrend {
		n++
	}
	if f.RapidWeightChange {
		n++
	}
	return n
}

// AISummary is a persisted, AI-assisted clinical summary.
type AISummary struct {
	ID          uuid.UUID  `json:"id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	SummaryText string     `json:"summary_text"`
	RiskFlags   RiskFlags  `json:"risk_flags"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"-"`
}

// AuditLog is an immutable, append-only record of a write action.
type AuditLog struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	Timestamp  time.Time `json:"timestamp"`
}
