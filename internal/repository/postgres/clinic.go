package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/models"
)

type ClinicStore struct{}

func NewClinicStore() *ClinicStore {
	return &ClinicStore{}
}

func (s *ClinicStore) Create(ctx context.Context, tx pgx.Tx, name, email, plan string) (*models.Clinic, error) {
	query := `
		INSERT INTO clinics (id, name, email, subscription_plan, ai_call_count, billing_period_start, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, 0, date_trunc('month', now()), now())
		RETURNING id, name, email, subscription_plan, ai_call_count, billing_period_start, created_at`

	var c models.Clinic
	err := tx.QueryRow(ctx, query, name, email, plan).Scan(
		&c.ID, &c.Name, &c.Email, &c.SubscriptionPlan, &c.AICallCount, &c.BillingPeriodStart, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert clinic: %w", err)
	}
	return &c, nil
}

func (s *ClinicStore) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Clinic, error) {
	query := `
		SELECT id, name, email, subscription_plan, ai_call_count, billing_period_start, created_at
		FROM clinics WHERE id = $1`

	var c models.Clinic
	err := tx.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Email, &c.SubscriptionPlan, &c.AICallCount, &c.BillingPeriodStart, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get clinic: %w", err)
	}
	return &c, nil
}

func (s *ClinicStore) GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*models.Clinic, error) {
	query := `
		SELECT id, name, email, subscription_plan, ai_call_count, billing_period_start, created_at
		FROM clinics WHERE email = $1`

	var c models.Clinic
	err := tx.QueryRow(ctx, query, email).Scan(
		&c.ID, &c.Name, &c.Email, &c.SubscriptionPlan, &c.AICallCount, &c.BillingPeriodStart, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get clinic by email: %w", err)
	}
	return &c, nil
}

// IncrementAICallCount implements the quota-rollover rule in §4.8: if `now`
// is in a different UTC month than billing_period_start, the counter and
// anchor reset to {0, now} before the increment lands.
func (s *ClinicStore) IncrementAICallCount(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) (*models.Clinic, error) {
	query := `
		UPDATE clinics
		SET
			ai_call_count = CASE
				WHEN date_trunc('month', billing_period_start AT TIME ZONE 'UTC') <> date_trunc('month', $2::timestamptz AT TIME ZONE 'UTC')
					THEN 1
				ELSE ai_call_count + 1
			END,
			billing_period_start = CASE
				WHEN date_trunc('month', billing_period_start AT TIME ZONE 'UTC') <> date_trunc('month', $2::timestamptz AT TIME ZONE 'UTC')
					THEN $2
				ELSE billing_period_start
			END
		WHERE id = $1
		RETURNING id, name, email, subscription_plan, ai_call_count, billing_period_start, created_at`

	var c models.Clinic
	err := tx.QueryRow(ctx, query, id, now.UTC()).Scan(
		&c.ID, &c.Name, &c.Email, &c.SubscriptionPlan, &c.AICallCount, &c.BillingPeriodStart, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("increment ai call count: %w", err)
	}
	return &c, nil
}
