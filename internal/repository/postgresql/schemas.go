package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kurochkinivan/table_import/internal/domain"
)

const TableSchemas = "schemas"

type SchemasRepository struct {
	pool *pgxpool.Pool
	qb   sq.StatementBuilderType
}

func NewSchemasRepository(pool *pgxpool.Pool) *SchemasRepository {
	return &SchemasRepository{
		pool: pool,
		qb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *SchemasRepository) SaveSchema(ctx context.Context, schema *domain.Schema) error {
	db := extractDB(ctx, r.pool)

	columns, err := json.Marshal(schema.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}

	sql, args, err := r.qb.
		Insert(TableSchemas).
		Columns("id", "job_id", "file_name", "columns").
		Values(schema.ID, schema.JobID, schema.FileName, columns).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return executeQueryError(err)
	}

	return nil
}

func (r *SchemasRepository) SchemaByJob(ctx context.Context, jobID string) (*domain.Schema, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("id", "job_id", "file_name", "columns").
		From(TableSchemas).
		Where(sq.Eq{"job_id": jobID}).
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	var (
		schema  domain.Schema
		columns []byte
	)

	err = db.QueryRow(ctx, sql, args...).Scan(&schema.ID, &schema.JobID, &schema.FileName, &columns)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, scanRowError(err)
	}

	if err := json.Unmarshal(columns, &schema.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}

	return &schema, nil
}
