// Package aiqueue implements the durable AI-summary job queue (C8): a
// Redis-backed list queue, a worker pool, an LLM caller with a
// deterministic fallback renderer, and the synchronous RAG-chat variant.
package aiqueue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// State is the tagged enum a job moves through.
type State string

const (
	StateQueued    State = "queued"
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateDelayed   State = "delayed"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateTimeout   State = "timeout"
)

// IsTerminal reports whether a state ends the job's lifecycle — no further
// events will ever be published for it.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateTimeout:
		return true
	default:
		return false
	}
}

// Job is one unit of AI-summary-generation work.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	ClinicID     uuid.UUID  `json:"clinicId"`
	PatientID    uuid.UUID  `json:"patientId"`
	UserID       uuid.UUID  `json:"userId"`
	State        State      `json:"state"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"maxAttempts"`
	SummaryID    *uuid.UUID `json:"summaryId,omitempty"`
	FailedReason string     `json:"failedReason,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NewJob constructs a fresh job in state queued with the default retry
// budget of two attempts (§4.8).
func NewJob(clinicID, patientID, userID uuid.UUID) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		ClinicID:    clinicID,
		PatientID:   patientID,
		UserID:      userID,
		State:       StateQueued,
		MaxAttempts: 2,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) marshal() ([]byte, error) {
	return json.Marshal(j)
}

func unmarshalJob(raw []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// Event is the payload published on a job's event-bus channel (C9).
type Event struct {
	State        State      `json:"state"`
	SummaryID    *uuid.UUID `json:"summaryId"`
	FailedReason *string    `json:"failedReason"`
}
