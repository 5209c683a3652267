package surreal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type schemaDoc struct {
	ID       surrealmodels.RecordID `json:"id"`
	JobID    string                 `json:"job_id"`
	FileName string                 `json:"file_name"`
	Columns  string                 `json:"columns"`
}

type SchemasRepository struct {
	client *Client
}

func NewSchemasRepository(client *Client) *SchemasRepository {
	return &SchemasRepository{client: client}
}

func (r *SchemasRepository) SaveSchema(ctx context.Context, schema *domain.Schema) error {
	columns, err := json.Marshal(schema.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}

	_, err = surrealdb.Query[any](ctx, r.client.db, `
		CREATE type::record("schema", $id) CONTENT {
			job_id: $job_id,
			file_name: $file_name,
			columns: $columns
		}
	`, map[string]any{
		"id":        schema.ID,
		"job_id":    schema.JobID,
		"file_name": schema.FileName,
		"columns":   string(columns),
	})
	if err != nil {
		return fmt.Errorf("failed to save schema: %w", err)
	}

	return nil
}

func (r *SchemasRepository) SchemaByJob(ctx context.Context, jobID string) (*domain.Schema, error) {
	results, err := surrealdb.Query[[]schemaDoc](ctx, r.client.db, `
		SELECT * FROM schema WHERE job_id = $job_id
	`, map[string]any{"job_id": jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	docs := first(results)
	if len(docs) == 0 {
		return nil, domain.ErrJobNotFound
	}

	schema := &domain.Schema{
		ID:       recordKey(docs[0].ID),
		JobID:    docs[0].JobID,
		FileName: docs[0].FileName,
	}

	if err := json.Unmarshal([]byte(docs[0].Columns), &schema.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}

	return schema, nil
}
