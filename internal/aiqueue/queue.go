package aiqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey            = "ai-summary-generation"
	jobKeyPrefix        = "ai:job:"
	completedLogKey     = "ai:jobs:completed"
	failedLogKey        = "ai:jobs:failed"
	clinicJobsKeyPrefix = "ai:jobs:clinic:"
	completedRetained   = 500
	failedRetained      = 1000
	clinicJobsRetained  = 100
	jobTTL              = 24 * time.Hour
)

// Queue is the durable, Redis-list-backed "ai-summary-generation" queue.
// Enqueue pushes a job id; workers BLPOP it off and load the job body from
// its own key, so the list itself never grows unbounded with payloads.
type Queue struct {
	client *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func jobKey(id uuid.UUID) string {
	return jobKeyPrefix + id.String()
}

func clinicJobsKey(clinicID uuid.UUID) string {
	return clinicJobsKeyPrefix + clinicID.String()
}

// Enqueue persists the job body, pushes its id onto the queue list, and
// records it in its clinic's recent-jobs index for the admin roll-up.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	raw, err := job.marshal()
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.Set(ctx, jobKey(job.ID), raw, jobTTL).Err(); err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	if err := q.client.RPush(ctx, queueKey, job.ID.String()).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, clinicJobsKey(job.ClinicID), job.ID.String())
	pipe.LTrim(ctx, clinicJobsKey(job.ClinicID), 0, clinicJobsRetained-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index job for clinic: %w", err)
	}
	return nil
}

// ListRecentByClinic returns the most recently enqueued jobs for a clinic,
// newest first, up to limit. Jobs whose body has expired past jobTTL are
// skipped rather than surfaced as errors.
func (q *Queue) ListRecentByClinic(ctx context.Context, clinicID uuid.UUID, limit int) ([]*Job, error) {
	ids, err := q.client.LRange(ctx, clinicJobsKey(clinicID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list clinic jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		job, err := q.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if job == nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Dequeue blocks until a job id is available or timeout elapses, then loads
// and returns the full job. A nil, nil return means the wait timed out with
// nothing queued.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP result shape: %v", result)
	}

	id, err := uuid.Parse(result[1])
	if err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	return q.Load(ctx, id)
}

// Load reads a job's current body by id.
func (q *Queue) Load(ctx context.Context, id uuid.UUID) (*Job, error) {
	raw, err := q.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	return unmarshalJob(raw)
}

// Save overwrites a job's stored body, refreshing its TTL.
func (q *Queue) Save(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	raw, err := job.marshal()
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return q.client.Set(ctx, jobKey(job.ID), raw, jobTTL).Err()
}

// Retire records a job's terminal id in the completed/failed retention log
// and trims it to the last ~500/1000 entries respectively (§4.8).
func (q *Queue) Retire(ctx context.Context, job *Job) {
	logKey := completedLogKey
	retain := completedRetained
	if job.State == StateFailed || job.State == StateTimeout {
		logKey = failedLogKey
		retain = failedRetained
	}
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, logKey, job.ID.String())
	pipe.LTrim(ctx, logKey, 0, int64(retain-1))
	_, _ = pipe.Exec(ctx)
}
