// Package surreal implements the repository contract over SurrealDB.
package surreal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

// Client wraps the SurrealDB connection with auto-reconnect.
type Client struct {
	conn *rews.Connection[*gorillaws.Connection]
	db   *surrealdb.DB
}

// NewClient connects, signs in and selects the configured namespace and
// database.
func NewClient(ctx context.Context, log *slog.Logger, cfg Config) (*Client, error) {
	sdkLogger := logger.New(log.Handler())
	codec := surrealcbor.New()

	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			return gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			}), nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to wrap connection: %w", err)
	}

	if _, err := db.SignIn(ctx, surrealdb.Auth{
		Username: cfg.Username,
		Password: cfg.Password,
	}); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace: %w", err)
	}

	if _, err := surrealdb.Query[any](ctx, db, schemaSQL, nil); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return &Client{conn: conn, db: db}, nil
}

// Config holds SurrealDB connection configuration.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

func (c *Client) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

const schemaSQL = `
DEFINE TABLE IF NOT EXISTS job SCHEMALESS;
DEFINE TABLE IF NOT EXISTS schema SCHEMALESS;
DEFINE TABLE IF NOT EXISTS record SCHEMALESS;
DEFINE INDEX IF NOT EXISTS job_created_idx ON job FIELDS created_at;
DEFINE INDEX IF NOT EXISTS schema_job_idx ON schema FIELDS job_id UNIQUE;
DEFINE INDEX IF NOT EXISTS record_job_row_idx ON record FIELDS job_id, row_number;
`

// first unwraps the generics query-result wrapper into its first statement's
// rows.
func first[T any](results *[]surrealdb.QueryResult[T]) T {
	var zero T
	if results == nil || len(*results) == 0 {
		return zero
	}

	return (*results)[0].Result
}
