package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/kurochkinivan/table_import/internal/parser"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkerCount bounds how many jobs execute simultaneously.
const DefaultWorkerCount = 3

const dequeueBackoff = time.Second

// Pool dequeues tasks and runs each through the full ingestion pipeline,
// with at most workerCount jobs executing at once. A job is owned by exactly
// one worker from dequeue to its final persisted state.
type Pool struct {
	log      *slog.Logger
	queue    *Queue
	registry *parser.Registry
	jobs     JobRepository
	schemas  SchemaRepository
	pipeline *Pipeline
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewPool(
	log *slog.Logger,
	queue *Queue,
	registry *parser.Registry,
	jobs JobRepository,
	schemas SchemaRepository,
	pipeline *Pipeline,
	workerCount int64,
) *Pool {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}

	return &Pool{
		log:      log,
		queue:    queue,
		registry: registry,
		jobs:     jobs,
		schemas:  schemas,
		pipeline: pipeline,
		sem:      semaphore.NewWeighted(workerCount),
		now:      time.Now,
	}
}

// Run executes the pool loop until ctx is cancelled, then waits for every
// in-flight job before returning. Jobs interrupted mid-flight keep whatever
// state their last transition recorded.
func (p *Pool) Run(ctx context.Context) error {
	for {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			break
		}

		task, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.sem.Release(1)

			if ctx.Err() != nil {
				break
			}

			p.log.ErrorContext(ctx, "failed to dequeue task", slog.String("err", err.Error()))

			select {
			case <-time.After(dequeueBackoff):
			case <-ctx.Done():
			}
			continue
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer p.sem.Release(1)

			p.executeJob(ctx, task)
		}()
	}

	p.wg.Wait()

	return ctx.Err()
}

func (p *Pool) executeJob(ctx context.Context, task *domain.QueuedTask) {
	log := p.log.With(
		slog.String("job_id", task.JobID),
		slog.String("filename", task.FileName),
	)

	job, err := p.jobs.JobByID(ctx, task.JobID)
	if err != nil {
		log.ErrorContext(ctx, "failed to load job", slog.String("err", err.Error()))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.failJob(ctx, log, job, nil, fmt.Errorf("job panicked: %v", r))
		}
	}()

	prs, err := p.registry.Resolve(task.FileName)
	if err != nil {
		p.failJob(ctx, log, job, nil, err)
		return
	}

	src := bytes.NewReader(task.Payload)
	opts := task.Options.Normalized()

	detection, err := prs.DetectSchema(ctx, src, opts)
	if err != nil {
		p.failJob(ctx, log, job, nil, fmt.Errorf("failed to detect schema: %w", err))
		return
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		p.failJob(ctx, log, job, nil, fmt.Errorf("failed to rewind source: %w", err))
		return
	}

	schema := &domain.Schema{
		ID:       uuid.NewString(),
		JobID:    task.JobID,
		FileName: task.FileName,
		Columns:  detection.Columns,
	}
	if err := p.schemas.SaveSchema(ctx, schema); err != nil {
		p.failJob(ctx, log, job, nil, fmt.Errorf("failed to save schema: %w", err))
		return
	}

	job.TotalRecords = detection.EstimatedRows
	if err := job.Start(p.now()); err != nil {
		log.ErrorContext(ctx, "failed to start job", slog.String("err", err.Error()))
		return
	}
	if err := p.jobs.UpdateJob(ctx, job); err != nil {
		p.failJob(ctx, log, job, nil, fmt.Errorf("failed to persist job start: %w", err))
		return
	}

	log.InfoContext(ctx, "job started",
		slog.Int("columns", len(detection.Columns)),
		slog.Int64("estimated_rows", detection.EstimatedRows),
	)

	opts.Columns = detection.Columns
	counters := &Counters{}

	err = p.pipeline.Run(ctx, job, prs.ParseStream(ctx, src, opts), opts.BatchSize, counters)

	if ctx.Err() != nil {
		// Shutdown mid-job: no terminal state is synthesized, the job stays
		// Processing and is visible as stale to the next run.
		log.InfoContext(ctx, "job interrupted by shutdown")
		return
	}

	if err != nil {
		p.failJob(ctx, log, job, counters, err)
		return
	}

	p.applyCounters(job, counters)
	if err := job.Complete(p.now()); err != nil {
		log.ErrorContext(ctx, "failed to complete job", slog.String("err", err.Error()))
		return
	}

	if err := p.jobs.UpdateJob(ctx, job); err != nil {
		log.ErrorContext(ctx, "failed to persist terminal job", slog.String("err", err.Error()))
		return
	}

	log.InfoContext(ctx, "job finished",
		slog.String("status", string(job.Status)),
		slog.Int64("total", job.TotalRecords),
		slog.Int64("processed", job.ProcessedRecords),
		slog.Int64("failed", job.FailedRecords),
	)
}

func (p *Pool) failJob(
	ctx context.Context,
	log *slog.Logger,
	job *domain.Job,
	counters *Counters,
	cause error,
) {
	log.ErrorContext(ctx, "job failed", slog.String("err", cause.Error()))

	if counters != nil {
		p.applyCounters(job, counters)
	}

	if err := job.Fail(p.now(), cause.Error()); err != nil {
		log.ErrorContext(ctx, "failed to mark job failed", slog.String("err", err.Error()))
		return
	}

	if err := p.jobs.UpdateJob(context.WithoutCancel(ctx), job); err != nil {
		log.ErrorContext(ctx, "failed to persist failed job", slog.String("err", err.Error()))
	}
}

func (p *Pool) applyCounters(job *domain.Job, counters *Counters) {
	job.TotalRecords = counters.Total()
	job.ProcessedRecords = counters.Processed()
	job.FailedRecords = counters.Failed()
}
