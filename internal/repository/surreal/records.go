package surreal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// recordDoc carries the data payload as a JSON string so the scalar tagging
// survives the CBOR transport unchanged.
type recordDoc struct {
	JobID     string `json:"job_id"`
	RowNumber int64  `json:"row_number"`
	Data      string `json:"data"`
}

func (d *recordDoc) toDomain() (*domain.Record, error) {
	record := &domain.Record{
		JobID:     d.JobID,
		RowNumber: d.RowNumber,
	}

	if err := json.Unmarshal([]byte(d.Data), &record.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record data: %w", err)
	}

	return record, nil
}

type RecordsRepository struct {
	client *Client
}

func NewRecordsRepository(client *Client) *RecordsRepository {
	return &RecordsRepository{client: client}
}

// BulkInsert writes the whole batch through one INSERT statement, the
// store's batch path.
func (r *RecordsRepository) BulkInsert(ctx context.Context, records []*domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		data, err := json.Marshal(record.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal record data: %w", err)
		}

		rows = append(rows, map[string]any{
			"job_id":     record.JobID,
			"row_number": record.RowNumber,
			"data":       string(data),
		})
	}

	_, err := surrealdb.Query[any](ctx, r.client.db, `
		INSERT INTO record $rows
	`, map[string]any{"rows": rows})
	if err != nil {
		return fmt.Errorf("failed to bulk insert records: %w", err)
	}

	return nil
}

func (r *RecordsRepository) RecordsByJob(
	ctx context.Context,
	jobID string,
	limit, offset uint64,
) ([]*domain.Record, int64, error) {
	total, err := r.CountByJob(ctx, jobID)
	if err != nil {
		return nil, -1, err
	}

	results, err := surrealdb.Query[[]recordDoc](ctx, r.client.db, `
		SELECT job_id, row_number, data FROM record
		WHERE job_id = $job_id
		ORDER BY row_number ASC
		LIMIT $limit START $offset
	`, map[string]any{"job_id": jobID, "limit": limit, "offset": offset})
	if err != nil {
		return nil, -1, fmt.Errorf("failed to list records: %w", err)
	}

	records, err := toDomainRecords(first(results))
	if err != nil {
		return nil, -1, err
	}

	return records, total, nil
}

func (r *RecordsRepository) CountByJob(ctx context.Context, jobID string) (int64, error) {
	counts, err := surrealdb.Query[[]countRow](ctx, r.client.db, `
		SELECT count() FROM record WHERE job_id = $job_id GROUP ALL
	`, map[string]any{"job_id": jobID})
	if err != nil {
		return -1, fmt.Errorf("failed to count records: %w", err)
	}

	if rows := first(counts); len(rows) > 0 {
		return rows[0].Count, nil
	}

	return 0, nil
}

func (r *RecordsRepository) DeleteByJob(ctx context.Context, jobID string) error {
	_, err := surrealdb.Query[any](ctx, r.client.db, `
		DELETE record WHERE job_id = $job_id
	`, map[string]any{"job_id": jobID})
	if err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}

	return nil
}

func (r *RecordsRepository) Search(
	ctx context.Context,
	jobID, term string,
	limit uint64,
) ([]*domain.Record, error) {
	results, err := surrealdb.Query[[]recordDoc](ctx, r.client.db, `
		SELECT job_id, row_number, data FROM record
		WHERE job_id = $job_id
			AND string::contains(string::lowercase(data), string::lowercase($term))
		ORDER BY row_number ASC
		LIMIT $limit
	`, map[string]any{"job_id": jobID, "term": term, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}

	return toDomainRecords(first(results))
}

func toDomainRecords(docs []recordDoc) ([]*domain.Record, error) {
	records := make([]*domain.Record, 0, len(docs))
	for i := range docs {
		record, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}
