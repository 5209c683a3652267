package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

const (
	DriverPostgres = "postgres"
	DriverSurreal  = "surreal"
)

type Config struct {
	App
	PostgreSQL
	SurrealDB
	HTTP
}

type App struct {
	StorageDriver string
	WorkerCount   int64
	QueueCapacity int64
}

type PostgreSQL struct {
	Host     string
	Port     string
	Username string
	Password string
	DBName   string
}

type SurrealDB struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

type HTTP struct {
	Host         string
	Port         string
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func Load(cmd *cli.Command) *Config {
	return &Config{
		App: App{
			StorageDriver: cmd.String("storage-driver"),
			WorkerCount:   int64(cmd.Int("worker-count")),
			QueueCapacity: int64(cmd.Int("queue-capacity")),
		},
		PostgreSQL: PostgreSQL{
			Host:     cmd.String("pg-host"),
			Port:     cmd.String("pg-port"),
			Username: cmd.String("pg-username"),
			Password: cmd.String("pg-password"),
			DBName:   cmd.String("pg-dbname"),
		},
		SurrealDB: SurrealDB{
			URL:       cmd.String("surreal-url"),
			Namespace: cmd.String("surreal-namespace"),
			Database:  cmd.String("surreal-database"),
			Username:  cmd.String("surreal-username"),
			Password:  cmd.String("surreal-password"),
		},
		HTTP: HTTP{
			Host:         cmd.String("http-host"),
			Port:         cmd.String("http-port"),
			IdleTimeout:  cmd.Duration("http-idle-timeout"),
			ReadTimeout:  cmd.Duration("http-read-timeout"),
			WriteTimeout: cmd.Duration("http-write-timeout"),
		},
	}
}
