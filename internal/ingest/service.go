package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/kurochkinivan/table_import/internal/parser"
)

const defaultPollInterval = 100 * time.Millisecond

// SearchLimit caps substring search results.
const SearchLimit = 100

// Preview bundles the parsed sample returned without creating a job.
type Preview struct {
	Columns       []domain.Column            `json:"columns"`
	Rows          []map[string]domain.Scalar `json:"rows"`
	EstimatedRows int64                      `json:"estimated_rows"`
}

// Service is the submission and read surface over the engine: it validates
// files, creates Pending jobs, enqueues tasks, and projects job state for
// pollers.
type Service struct {
	log          *slog.Logger
	queue        *Queue
	registry     *parser.Registry
	detector     *parser.Detector
	jobs         JobRepository
	schemas      SchemaRepository
	records      RecordRepository
	pollInterval time.Duration
	now          func() time.Time
}

func NewService(
	log *slog.Logger,
	queue *Queue,
	registry *parser.Registry,
	jobs JobRepository,
	schemas SchemaRepository,
	records RecordRepository,
) *Service {
	return &Service{
		log:          log,
		queue:        queue,
		registry:     registry,
		detector:     parser.NewDetector(registry),
		jobs:         jobs,
		schemas:      schemas,
		records:      records,
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
}

// Submit validates the file, creates a Pending job and enqueues the task.
// Enqueueing blocks while the queue is full. No job is created for an empty
// file or an unsupported extension.
func (s *Service) Submit(
	ctx context.Context,
	fileName string,
	fileSize int64,
	payload []byte,
	opts domain.ParserOptions,
) (*domain.Job, error) {
	if fileSize <= 0 || len(payload) == 0 {
		return nil, domain.ErrEmptyInput
	}

	if _, err := s.registry.Resolve(fileName); err != nil {
		return nil, err
	}

	job := domain.NewJob(uuid.NewString(), fileName, fileSize, s.now())

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	task := &domain.QueuedTask{
		JobID:    job.ID,
		FileName: fileName,
		Payload:  payload,
		Options:  opts.Normalized(),
	}

	if err := s.queue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.log.InfoContext(ctx, "job submitted",
		slog.String("job_id", job.ID),
		slog.String("filename", fileName),
		slog.Int64("size", fileSize),
		slog.Int("pending", s.queue.Pending()),
	)

	return job, nil
}

// SubmitAndWait submits like Submit and then blocks until the job reaches a
// terminal state, returning the final job record.
func (s *Service) SubmitAndWait(
	ctx context.Context,
	fileName string,
	fileSize int64,
	payload []byte,
	opts domain.ParserOptions,
) (*domain.Job, error) {
	job, err := s.Submit(ctx, fileName, fileSize, payload, opts)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			current, err := s.jobs.JobByID(ctx, job.ID)
			if err != nil {
				return nil, err
			}

			if current.Status.IsTerminal() {
				return current, nil
			}

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// PreviewFile parses the first opts.PreviewRows rows and detects columns
// without creating a job.
func (s *Service) PreviewFile(
	ctx context.Context,
	fileName string,
	payload []byte,
	opts domain.ParserOptions,
) (*Preview, error) {
	if len(payload) == 0 {
		return nil, domain.ErrEmptyInput
	}

	prs, err := s.registry.Resolve(fileName)
	if err != nil {
		return nil, err
	}

	opts = opts.Normalized()
	src := bytes.NewReader(payload)

	detection, err := s.detector.Detect(ctx, fileName, src, opts)
	if err != nil {
		return nil, err
	}

	rows, err := prs.Preview(ctx, src, opts, opts.PreviewRows)
	if err != nil {
		return nil, fmt.Errorf("failed to preview rows: %w", err)
	}

	return &Preview{
		Columns:       detection.Columns,
		Rows:          rows,
		EstimatedRows: detection.EstimatedRows,
	}, nil
}

func (s *Service) Job(ctx context.Context, id string) (*domain.Job, error) {
	return s.jobs.JobByID(ctx, id)
}

func (s *Service) Jobs(ctx context.Context, limit, offset uint64) ([]*domain.Job, int, error) {
	return s.jobs.Jobs(ctx, limit, offset)
}

// Progress projects the job's current counters for pollers. Reads are
// allowed concurrent with the owning worker's writes.
func (s *Service) Progress(ctx context.Context, id string) (domain.Progress, error) {
	job, err := s.jobs.JobByID(ctx, id)
	if err != nil {
		return domain.Progress{}, err
	}

	return domain.NewProgress(job), nil
}

func (s *Service) Schema(ctx context.Context, jobID string) (*domain.Schema, error) {
	if _, err := s.jobs.JobByID(ctx, jobID); err != nil {
		return nil, err
	}

	return s.schemas.SchemaByJob(ctx, jobID)
}

// Records lists a job's records by row number, or searches them when term is
// set. Search matches case-insensitively over serialized values and is
// capped at SearchLimit rows.
func (s *Service) Records(
	ctx context.Context,
	jobID, term string,
	limit, offset uint64,
) ([]*domain.Record, int64, error) {
	if _, err := s.jobs.JobByID(ctx, jobID); err != nil {
		return nil, 0, err
	}

	if term != "" {
		records, err := s.records.Search(ctx, jobID, term, SearchLimit)
		if err != nil {
			return nil, 0, err
		}

		return records, int64(len(records)), nil
	}

	return s.records.RecordsByJob(ctx, jobID, limit, offset)
}

// DeleteJob removes a job together with its records and schema. A job that
// is still processing is owned by a worker and cannot be deleted.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	job, err := s.jobs.JobByID(ctx, id)
	if err != nil {
		return err
	}

	if job.Status == domain.StatusProcessing {
		return domain.ErrJobProcessing
	}

	return s.jobs.DeleteJob(ctx, id)
}

// Formats enumerates the supported file extensions.
func (s *Service) Formats() []string {
	return s.registry.Extensions()
}

// PendingTasks exposes the queue depth.
func (s *Service) PendingTasks() int {
	return s.queue.Pending()
}
