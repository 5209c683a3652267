package postgresql

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kurochkinivan/table_import/internal/domain"
)

const TableJobs = "jobs"

var jobColumns = []string{
	"id",
	"file_name",
	"file_type",
	"file_size",
	"total_records",
	"processed_records",
	"failed_records",
	"status",
	"error_message",
	"created_at",
	"started_at",
	"completed_at",
}

type JobsRepository struct {
	pool *pgxpool.Pool
	qb   sq.StatementBuilderType
}

func NewJobsRepository(pool *pgxpool.Pool) *JobsRepository {
	return &JobsRepository{
		pool: pool,
		qb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *JobsRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Insert(TableJobs).
		Columns(jobColumns...).
		Values(
			job.ID,
			job.FileName,
			job.FileType,
			job.FileSize,
			job.TotalRecords,
			job.ProcessedRecords,
			job.FailedRecords,
			job.Status,
			job.ErrorMessage,
			job.CreatedAt,
			job.StartedAt,
			job.CompletedAt,
		).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return executeQueryError(err)
	}

	return nil
}

func (r *JobsRepository) JobByID(ctx context.Context, id string) (*domain.Job, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select(jobColumns...).
		From(TableJobs).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}

	job, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByNameLax[domain.Job])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, collectRowsError(err)
	}

	return job, nil
}

func (r *JobsRepository) Jobs(ctx context.Context, limit, offset uint64) ([]*domain.Job, int, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("COUNT(*)").
		From(TableJobs).
		ToSql()
	if err != nil {
		return nil, -1, createQueryError(err)
	}

	var total int
	if err := db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, -1, scanRowError(err)
	}

	sql, args, err = r.qb.
		Select(jobColumns...).
		From(TableJobs).
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, -1, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, -1, executeQueryError(err)
	}

	jobs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[domain.Job])
	if err != nil {
		return nil, -1, collectRowsError(err)
	}

	return jobs, total, nil
}

func (r *JobsRepository) UpdateJob(ctx context.Context, job *domain.Job) error {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Update(TableJobs).
		Set("total_records", job.TotalRecords).
		Set("processed_records", job.ProcessedRecords).
		Set("failed_records", job.FailedRecords).
		Set("status", job.Status).
		Set("error_message", job.ErrorMessage).
		Set("started_at", job.StartedAt).
		Set("completed_at", job.CompletedAt).
		Where(sq.Eq{"id": job.ID}).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return executeQueryError(err)
	}

	return nil
}

func (r *JobsRepository) UpdateJobProgress(ctx context.Context, id string, processed, failed int64) error {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Update(TableJobs).
		Set("processed_records", processed).
		Set("failed_records", failed).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return executeQueryError(err)
	}

	return nil
}

// DeleteJob removes the job row; records and schema go with it through the
// ON DELETE CASCADE foreign keys.
func (r *JobsRepository) DeleteJob(ctx context.Context, id string) error {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Delete(TableJobs).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return executeQueryError(err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}

	return nil
}
