package surreal

import (
	"context"
	"fmt"
	"time"

	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type jobDoc struct {
	ID               surrealmodels.RecordID `json:"id"`
	FileName         string                 `json:"file_name"`
	FileType         string                 `json:"file_type"`
	FileSize         int64                  `json:"file_size"`
	TotalRecords     int64                  `json:"total_records"`
	ProcessedRecords int64                  `json:"processed_records"`
	FailedRecords    int64                  `json:"failed_records"`
	Status           string                 `json:"status"`
	ErrorMessage     string                 `json:"error_message"`
	CreatedAt        time.Time              `json:"created_at"`
	StartedAt        *time.Time             `json:"started_at,omitempty"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
}

func (d *jobDoc) toDomain() *domain.Job {
	return &domain.Job{
		ID:               recordKey(d.ID),
		FileName:         d.FileName,
		FileType:         d.FileType,
		FileSize:         d.FileSize,
		TotalRecords:     d.TotalRecords,
		ProcessedRecords: d.ProcessedRecords,
		FailedRecords:    d.FailedRecords,
		Status:           domain.Status(d.Status),
		ErrorMessage:     d.ErrorMessage,
		CreatedAt:        d.CreatedAt,
		StartedAt:        d.StartedAt,
		CompletedAt:      d.CompletedAt,
	}
}

func recordKey(id surrealmodels.RecordID) string {
	if s, ok := id.ID.(string); ok {
		return s
	}

	return fmt.Sprint(id.ID)
}

type countRow struct {
	Count int64 `json:"count"`
}

type JobsRepository struct {
	client *Client
}

func NewJobsRepository(client *Client) *JobsRepository {
	return &JobsRepository{client: client}
}

func (r *JobsRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	_, err := surrealdb.Query[any](ctx, r.client.db, `
		CREATE type::record("job", $id) CONTENT {
			file_name: $file_name,
			file_type: $file_type,
			file_size: $file_size,
			total_records: $total_records,
			processed_records: $processed_records,
			failed_records: $failed_records,
			status: $status,
			error_message: $error_message,
			created_at: $created_at
		}
	`, map[string]any{
		"id":                job.ID,
		"file_name":         job.FileName,
		"file_type":         job.FileType,
		"file_size":         job.FileSize,
		"total_records":     job.TotalRecords,
		"processed_records": job.ProcessedRecords,
		"failed_records":    job.FailedRecords,
		"status":            string(job.Status),
		"error_message":     job.ErrorMessage,
		"created_at":        job.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (r *JobsRepository) JobByID(ctx context.Context, id string) (*domain.Job, error) {
	results, err := surrealdb.Query[[]jobDoc](ctx, r.client.db, `
		SELECT * FROM type::record("job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	docs := first(results)
	if len(docs) == 0 {
		return nil, domain.ErrJobNotFound
	}

	return docs[0].toDomain(), nil
}

func (r *JobsRepository) Jobs(ctx context.Context, limit, offset uint64) ([]*domain.Job, int, error) {
	counts, err := surrealdb.Query[[]countRow](ctx, r.client.db, `
		SELECT count() FROM job GROUP ALL
	`, nil)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to count jobs: %w", err)
	}

	var total int64
	if rows := first(counts); len(rows) > 0 {
		total = rows[0].Count
	}

	results, err := surrealdb.Query[[]jobDoc](ctx, r.client.db, `
		SELECT * FROM job ORDER BY created_at DESC LIMIT $limit START $offset
	`, map[string]any{"limit": limit, "offset": offset})
	if err != nil {
		return nil, -1, fmt.Errorf("failed to list jobs: %w", err)
	}

	docs := first(results)
	jobs := make([]*domain.Job, 0, len(docs))
	for i := range docs {
		jobs = append(jobs, docs[i].toDomain())
	}

	return jobs, int(total), nil
}

func (r *JobsRepository) UpdateJob(ctx context.Context, job *domain.Job) error {
	_, err := surrealdb.Query[any](ctx, r.client.db, `
		UPDATE type::record("job", $id) SET
			total_records = $total_records,
			processed_records = $processed_records,
			failed_records = $failed_records,
			status = $status,
			error_message = $error_message,
			started_at = $started_at,
			completed_at = $completed_at
	`, map[string]any{
		"id":                job.ID,
		"total_records":     job.TotalRecords,
		"processed_records": job.ProcessedRecords,
		"failed_records":    job.FailedRecords,
		"status":            string(job.Status),
		"error_message":     job.ErrorMessage,
		"started_at":        job.StartedAt,
		"completed_at":      job.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	return nil
}

func (r *JobsRepository) UpdateJobProgress(ctx context.Context, id string, processed, failed int64) error {
	_, err := surrealdb.Query[any](ctx, r.client.db, `
		UPDATE type::record("job", $id) SET
			processed_records = $processed,
			failed_records = $failed
	`, map[string]any{"id": id, "processed": processed, "failed": failed})
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	return nil
}

// DeleteJob removes the job and everything keyed by it. The store has no
// cascading foreign keys, so records and schema are deleted explicitly.
func (r *JobsRepository) DeleteJob(ctx context.Context, id string) error {
	if _, err := r.JobByID(ctx, id); err != nil {
		return err
	}

	_, err := surrealdb.Query[any](ctx, r.client.db, `
		DELETE record WHERE job_id = $id;
		DELETE schema WHERE job_id = $id;
		DELETE type::record("job", $id);
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return nil
}
