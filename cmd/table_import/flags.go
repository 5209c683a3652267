package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kurochkinivan/table_import/internal/app"
	"github.com/kurochkinivan/table_import/internal/config"
	"github.com/kurochkinivan/table_import/internal/ingest"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
)

var version = "dev"

func cmd() *cli.Command {
	return &cli.Command{
		Name:    "table_import",
		Usage:   "tabular file import service",
		Version: version,
		Flags:   flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, ok := ctx.Value(loggerKey{}).(*slog.Logger)
			if !ok {
				return errors.New("failed to get logger from context")
			}

			cfg := config.Load(cmd)

			return app.New(log, cfg).Run(ctx)
		},
	}
}

func flags() []cli.Flag {
	var configFile string

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Validator:   validateConfig,
			Usage:       "Load configuration from `FILE`",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:      "storage-driver",
			Aliases:   []string{"d"},
			Usage:     "Set storage driver (postgres or surreal)",
			Value:     config.DriverPostgres,
			Sources:   cli.NewValueSourceChain(yaml.YAML("app.storage_driver", altsrc.NewStringPtrSourcer(&configFile))),
			Required:  true,
			Validator: validateDriver,
		},
		&cli.IntFlag{
			Name:    "worker-count",
			Aliases: []string{"w"},
			Usage:   "Set the number of concurrently executing jobs",
			Value:   ingest.DefaultWorkerCount,
			Sources: cli.NewValueSourceChain(yaml.YAML("app.worker_count", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.IntFlag{
			Name:    "queue-capacity",
			Aliases: []string{"q"},
			Usage:   "Set the pending task queue capacity",
			Value:   ingest.DefaultQueueCapacity,
			Sources: cli.NewValueSourceChain(yaml.YAML("app.queue_capacity", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "pg-host",
			Usage:   "Set PostgreSQL host",
			Value:   "localhost",
			Sources: cli.NewValueSourceChain(yaml.YAML("postgresql.host", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "pg-port",
			Usage:   "Set PostgreSQL port",
			Value:   "5432",
			Sources: cli.NewValueSourceChain(yaml.YAML("postgresql.port", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "pg-username",
			Usage:   "Set PostgreSQL username",
			Sources: cli.NewValueSourceChain(yaml.YAML("postgresql.username", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "pg-password",
			Usage:   "Set PostgreSQL password",
			Sources: cli.NewValueSourceChain(yaml.YAML("postgresql.password", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "pg-dbname",
			Usage:   "Set PostgreSQL database name",
			Value:   "table_import",
			Sources: cli.NewValueSourceChain(yaml.YAML("postgresql.dbname", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "surreal-url",
			Usage:   "Set SurrealDB URL",
			Value:   "ws://localhost:8000",
			Sources: cli.NewValueSourceChain(yaml.YAML("surrealdb.url", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "surreal-namespace",
			Usage:   "Set SurrealDB namespace",
			Value:   "table_import",
			Sources: cli.NewValueSourceChain(yaml.YAML("surrealdb.namespace", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "surreal-database",
			Usage:   "Set SurrealDB database",
			Value:   "table_import",
			Sources: cli.NewValueSourceChain(yaml.YAML("surrealdb.database", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "surreal-username",
			Usage:   "Set SurrealDB username",
			Sources: cli.NewValueSourceChain(yaml.YAML("surrealdb.username", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "surreal-password",
			Usage:   "Set SurrealDB password",
			Sources: cli.NewValueSourceChain(yaml.YAML("surrealdb.password", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "http-host",
			Usage:   "Set HTTP server host",
			Value:   "localhost",
			Sources: cli.NewValueSourceChain(yaml.YAML("http.host", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "http-port",
			Usage:   "Set HTTP server port",
			Value:   "8080",
			Sources: cli.NewValueSourceChain(yaml.YAML("http.port", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.DurationFlag{
			Name:    "http-idle-timeout",
			Usage:   "Set HTTP server idle timeout",
			Value:   1 * time.Minute,
			Sources: cli.NewValueSourceChain(yaml.YAML("http.idle_timeout", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.DurationFlag{
			Name:    "http-read-timeout",
			Usage:   "Set HTTP server read timeout",
			Value:   15 * time.Second,
			Sources: cli.NewValueSourceChain(yaml.YAML("http.read_timeout", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.DurationFlag{
			Name:    "http-write-timeout",
			Usage:   "Set HTTP server write timeout",
			Value:   15 * time.Second,
			Sources: cli.NewValueSourceChain(yaml.YAML("http.write_timeout", altsrc.NewStringPtrSourcer(&configFile))),
		},
	}
}

func validateDriver(driver string) error {
	if driver != config.DriverPostgres && driver != config.DriverSurreal {
		return fmt.Errorf("driver must be %q or %q, got %q", config.DriverPostgres, config.DriverSurreal, driver)
	}

	return nil
}

func validateConfig(configFile string) error {
	info, err := os.Stat(configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%q does not exist", configFile)
		}
		return fmt.Errorf("failed to stat %q: %w", configFile, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", configFile)
	}

	ext := filepath.Ext(info.Name())
	if ext != ".yml" && ext != ".yaml" {
		return fmt.Errorf("invalid extension %q", ext)
	}

	return nil
}
