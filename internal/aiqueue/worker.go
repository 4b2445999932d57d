package aiqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/audit"
	"github.com/medibrief/api/internal/db"
	"github.com/medibrief/api/internal/eventbus"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
	"github.com/medibrief/api/internal/structuredinput"
)

// DefaultConcurrency is the worker-pool size absent configuration (§4.8).
const DefaultConcurrency = 2

const dequeueTimeout = 5 * time.Second

// Pool runs a fixed number of worker goroutines draining Queue and
// processing jobs against the clinical data store and LLM caller.
type Pool struct {
	queue    *Queue
	bus      *eventbus.Bus
	db       *db.DB
	patients repository.PatientRepository
	summaries repository.AISummaryRepository
	audits   repository.AuditRepository
	builder  *structuredinput.Builder
	caller   Caller
	logger   *zap.Logger

	concurrency int
}

func NewPool(
	queue *Queue,
	bus *eventbus.Bus,
	database *db.DB,
	patients repository.PatientRepository,
	summaries repository.AISummaryRepository,
	audits repository.AuditRepository,
	builder *structuredinput.Builder,
	caller Caller,
	logger *zap.Logger,
	concurrency int,
) *Pool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pool{
		queue: queue, bus: bus, db: database,
		patients: patients, summaries: summaries, audits: audits,
		builder: builder, caller: caller, logger: logger,
		concurrency: concurrency,
	}
}

// Run blocks, fanning out concurrency worker loops, until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return
			}
			p.logger.Warn("dequeue failed", zap.Int("worker", workerID), zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}

		p.process(ctx, job)
	}
}

func (p *Pool) process(ctx context.Context, job *Job) {
	job.State = StateActive
	job.Attempts++
	_ = p.queue.Save(ctx, job)

	summaryID, failErr := p.generate(ctx, job)
	if failErr == nil {
		job.State = StateCompleted
		job.SummaryID = summaryID
		_ = p.queue.Save(ctx, job)
		p.queue.Retire(ctx, job)
		if err := p.bus.Publish(ctx, job.ID, Event{State: StateCompleted, SummaryID: summaryID}); err != nil {
			p.logger.Warn("publish job event", zap.String("job", job.ID.String()), zap.Error(err))
		}
		return
	}

	if job.Attempts < job.MaxAttempts {
		job.State = StateQueued
		_ = p.queue.Save(ctx, job)
		_ = p.queue.Enqueue(ctx, job)
		return
	}

	reason := failErr.Error()
	job.State = StateFailed
	job.FailedReason = reason
	_ = p.queue.Save(ctx, job)
	p.queue.Retire(ctx, job)
	if err := p.bus.Publish(ctx, job.ID, Event{State: StateFailed, FailedReason: &reason}); err != nil {
		p.logger.Warn("publish job event", zap.String("job", job.ID.String()), zap.Error(err))
	}
}

func (p *Pool) generate(ctx context.Context, job *Job) (*uuid.UUID, error) {
	var summaryID *uuid.UUID

	err := p.db.WithTenantTx(ctx, job.ClinicID, func(tx pgx.Tx) error {
		patient, err := p.patients.GetByID(ctx, tx, job.ClinicID, job.PatientID)
		if err != nil {
			return fmt.Errorf("load patient: %w", err)
		}
		if patient == nil {
			return fmt.Errorf("patient not found or archived")
		}

		input, err := p.builder.Build(ctx, tx, patient)
		if err != nil {
			return fmt.Errorf("build structured input: %w", err)
		}

		flags := BuildRiskFlags(input)

		summaryText, err := p.render(ctx, input, flags)
		if err != nil {
			return fmt.Errorf("render summary: %w", err)
		}

		summary, err := p.summaries.Create(ctx, tx, &models.AISummary{
			PatientID:   job.PatientID,
			SummaryText: summaryText,
			RiskFlags:   flags,
		})
		if err != nil {
			return fmt.Errorf("persist summary: %w", err)
		}

		if err := audit.Write(ctx, tx, p.audits, job.UserID, "AI_SUMMARY_GENERATE", "ai_summary", summary.ID); err != nil {
			return fmt.Errorf("write audit log: %w", err)
		}

		summaryID = &summary.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaryID, nil
}

func (p *Pool) render(ctx context.Context, input *structuredinput.Input, flags models.RiskFlags) (string, error) {
	if p.caller == nil {
		return RenderFallback(input, flags), nil
	}

	text, err := p.caller.Complete(ctx, summarySystemPrompt, chatUserPrompt(input, flags))
	if err != nil {
		p.logger.Warn("llm call failed, using fallback renderer", zap.Error(err))
		return RenderFallback(input, flags), nil
	}
	return text, nil
}
