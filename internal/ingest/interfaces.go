package ingest

import (
	"context"

	"github.com/kurochkinivan/table_import/internal/domain"
)

// JobRepository persists job metadata and state. DeleteJob cascades to the
// job's records and schema.
type JobRepository interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	JobByID(ctx context.Context, id string) (*domain.Job, error)
	Jobs(ctx context.Context, limit, offset uint64) ([]*domain.Job, int, error)
	UpdateJob(ctx context.Context, job *domain.Job) error
	UpdateJobProgress(ctx context.Context, id string, processed, failed int64) error
	DeleteJob(ctx context.Context, id string) error
}

// SchemaRepository stores the single detected schema of a job.
type SchemaRepository interface {
	SaveSchema(ctx context.Context, schema *domain.Schema) error
	SchemaByJob(ctx context.Context, jobID string) (*domain.Schema, error)
}

// RecordRepository is the append-only record store. BulkInsert must use the
// backing store's native batch path.
type RecordRepository interface {
	BulkInsert(ctx context.Context, records []*domain.Record) error
	RecordsByJob(ctx context.Context, jobID string, limit, offset uint64) ([]*domain.Record, int64, error)
	CountByJob(ctx context.Context, jobID string) (int64, error)
	DeleteByJob(ctx context.Context, jobID string) error
	Search(ctx context.Context, jobID, term string, limit uint64) ([]*domain.Record, error)
}

// Transactor scopes a function to one storage transaction where the backing
// store supports it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
