package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kurochkinivan/table_import/internal/config"
	v1 "github.com/kurochkinivan/table_import/internal/controller/http/v1"
	"github.com/kurochkinivan/table_import/internal/ingest"
	"github.com/kurochkinivan/table_import/internal/parser"
	"github.com/kurochkinivan/table_import/internal/repository/postgresql"
	"github.com/kurochkinivan/table_import/internal/repository/surreal"
	"golang.org/x/sync/errgroup"
)

type App struct {
	log *slog.Logger
	cfg *config.Config
}

func New(log *slog.Logger, cfg *config.Config) *App {
	return &App{
		log: log,
		cfg: cfg,
	}
}

type repositories struct {
	jobs    ingest.JobRepository
	schemas ingest.SchemaRepository
	records ingest.RecordRepository
	tx      ingest.Transactor
	close   func(ctx context.Context)
}

func (a *App) Run(ctx context.Context) error {
	a.log.InfoContext(ctx, "starting app",
		slog.String("storage_driver", a.cfg.App.StorageDriver),
		slog.Int64("worker_count", a.cfg.App.WorkerCount),
		slog.Int64("queue_capacity", a.cfg.App.QueueCapacity),
	)

	repos, err := a.connectRepositories(ctx)
	if err != nil {
		return err
	}
	defer repos.close(context.WithoutCancel(ctx))

	return a.startEngine(ctx, repos)
}

func (a *App) connectRepositories(ctx context.Context) (*repositories, error) {
	switch a.cfg.App.StorageDriver {
	case config.DriverSurreal:
		a.log.InfoContext(ctx, "establishing surrealdb connection",
			slog.String("surreal_url", a.cfg.SurrealDB.URL),
			slog.String("surreal_namespace", a.cfg.SurrealDB.Namespace),
			slog.String("surreal_database", a.cfg.SurrealDB.Database),
		)

		client, err := surreal.NewClient(ctx, a.log, surreal.Config{
			URL:       a.cfg.SurrealDB.URL,
			Namespace: a.cfg.SurrealDB.Namespace,
			Database:  a.cfg.SurrealDB.Database,
			Username:  a.cfg.SurrealDB.Username,
			Password:  a.cfg.SurrealDB.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create surrealdb client: %w", err)
		}

		return &repositories{
			jobs:    surreal.NewJobsRepository(client),
			schemas: surreal.NewSchemasRepository(client),
			records: surreal.NewRecordsRepository(client),
			tx:      surreal.NewTxManager(),
			close: func(ctx context.Context) {
				if err := client.Close(ctx); err != nil {
					a.log.ErrorContext(ctx, "failed to close surrealdb client", slog.String("err", err.Error()))
				}
			},
		}, nil

	case config.DriverPostgres:
		a.log.InfoContext(ctx, "establishing postgresql connection",
			slog.String("postgresql_host", a.cfg.PostgreSQL.Host),
			slog.String("postgresql_port", a.cfg.PostgreSQL.Port),
			slog.String("postgresql_dbname", a.cfg.PostgreSQL.DBName),
		)

		pool, err := postgresql.NewConnection(ctx, a.log, a.cfg.PostgreSQL)
		if err != nil {
			return nil, fmt.Errorf("failed to create db connection: %w", err)
		}

		return &repositories{
			jobs:    postgresql.NewJobsRepository(pool),
			schemas: postgresql.NewSchemasRepository(pool),
			records: postgresql.NewRecordsRepository(pool),
			tx:      postgresql.NewTxManager(pool),
			close:   func(context.Context) { pool.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", a.cfg.App.StorageDriver)
	}
}

func (a *App) startEngine(ctx context.Context, repos *repositories) error {
	registry := parser.DefaultRegistry()
	queue := ingest.NewQueue(int(a.cfg.App.QueueCapacity))
	pipeline := ingest.NewPipeline(a.log, repos.jobs, repos.records, repos.tx, ingest.DefaultBufferCapacity)
	pool := ingest.NewPool(a.log, queue, registry, repos.jobs, repos.schemas, pipeline, a.cfg.App.WorkerCount)
	service := ingest.NewService(a.log, queue, registry, repos.jobs, repos.schemas, repos.records)
	server := v1.NewServer(a.cfg.HTTP, service)

	erg, ctx := errgroup.WithContext(ctx)

	erg.Go(func() error {
		a.log.InfoContext(ctx, "worker pool started")
		return pool.Run(ctx)
	})

	erg.Go(func() error {
		a.log.InfoContext(ctx, "starting http server",
			slog.String("addr", net.JoinHostPort(a.cfg.HTTP.Host, a.cfg.HTTP.Port)),
		)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}

		return nil
	})

	erg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	a.log.InfoContext(ctx, "all components started")

	if err := erg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.log.ErrorContext(ctx, "engine stopped with error", slog.String("err", err.Error()))

		return err
	}

	a.log.InfoContext(ctx, "engine stopped gracefully")

	return nil
}
