package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kurochkinivan/table_import/internal/domain"
)

const TableRecords = "records"

type RecordsRepository struct {
	pool *pgxpool.Pool
	qb   sq.StatementBuilderType
}

func NewRecordsRepository(pool *pgxpool.Pool) *RecordsRepository {
	return &RecordsRepository{
		pool: pool,
		qb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// BulkInsert appends a batch over the COPY protocol, the store's native bulk
// path. Insertion order follows the slice, so row_number read-back order is
// stable.
func (r *RecordsRepository) BulkInsert(ctx context.Context, records []*domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	db := extractDB(ctx, r.pool)

	copied, err := db.CopyFrom(ctx, pgx.Identifier{TableRecords}, []string{
		"job_id",
		"row_number",
		"data",
	}, pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		data, err := json.Marshal(records[i].Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record data: %w", err)
		}

		return []any{
			records[i].JobID,
			records[i].RowNumber,
			data,
		}, nil
	}))
	if err != nil {
		return fmt.Errorf("failed to bulk insert records: %w", err)
	}

	if copied != int64(len(records)) {
		return fmt.Errorf("failed to bulk insert records: copied %d rows, expected %d", copied, len(records))
	}

	return nil
}

func (r *RecordsRepository) RecordsByJob(
	ctx context.Context,
	jobID string,
	limit, offset uint64,
) ([]*domain.Record, int64, error) {
	db := extractDB(ctx, r.pool)

	total, err := r.CountByJob(ctx, jobID)
	if err != nil {
		return nil, -1, err
	}

	sql, args, err := r.qb.
		Select("job_id", "row_number", "data").
		From(TableRecords).
		Where(sq.Eq{"job_id": jobID}).
		OrderBy("row_number ASC").
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

	records, err := collectRecords(rows)
	if err != nil {
		return nil, -1, err
	}

	return records, total, nil
}

func (r *RecordsRepository) CountByJob(ctx context.Context, jobID string) (int64, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("COUNT(*)").
		From(TableRecords).
		Where(sq.Eq{"job_id": jobID}).
		ToSql()
	if err != nil {
		return -1, createQueryError(err)
	}

	var total int64
	if err := db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return -1, scanRowError(err)
	}

	return total, nil
}

func (r *RecordsRepository) DeleteByJob(ctx context.Context, jobID string) error {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Delete(TableRecords).
		Where(sq.Eq{"job_id": jobID}).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return executeQueryError(err)
	}

	return nil
}

// Search matches the term case-insensitively against the serialized data
// payload of each record.
func (r *RecordsRepository) Search(
	ctx context.Context,
	jobID, term string,
	limit uint64,
) ([]*domain.Record, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("job_id", "row_number", "data").
		From(TableRecords).
		Where(sq.Eq{"job_id": jobID}).
		Where(sq.Expr("data::text ILIKE '%' || ? || '%'", term)).
		OrderBy("row_number ASC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}

	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]*domain.Record, error) {
	defer rows.Close()

	var records []*domain.Record
	for rows.Next() {
		var (
			record domain.Record
			data   []byte
		)

		if err := rows.Scan(&record.JobID, &record.RowNumber, &data); err != nil {
			return nil, scanRowError(err)
		}

		if err := json.Unmarshal(data, &record.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record data: %w", err)
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, collectRowsError(err)
	}

	return records, nil
}
