package load

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arthspark/etl/config"
	"github.com/arthspark/etl/utils"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/marcboeker/go-duckdb"
)

const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// DB wraps database/sql over either a DuckDB or a Postgres backend. The
// store operations in this package only use SQL both dialects accept
// ($N placeholders, ON CONFLICT upserts), so everything above this struct
// is backend-agnostic.
type DB struct {
	Logger    *slog.Logger
	DB        *sql.DB
	Driver    string
	connector *duckdb.Connector
}

func NewDB(config *config.Config, logger *slog.Logger) (*DB, error) {
	switch config.DB.Driver {
	case "", DriverDuckDB:
		return newDuckDB(config, logger)
	case DriverPostgres:
		return newPostgres(config, logger)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", config.DB.Driver)
	}
}

func newDuckDB(config *config.Config, logger *slog.Logger) (*DB, error) {
	path := config.DB.Path
	if path == ":memory:" {
		path = ""
	}

	var connInitFn func(driver.ExecerContext) error
	if len(config.DB.ConnInitFnQueries) > 0 {
		queries := config.DB.ConnInitFnQueries
		connInitFn = func(exec driver.ExecerContext) error {
			for _, queryPath := range queries {
				query, err := readQuery(queryPath)
				if err != nil {
					return err
				}
				if _, err := exec.ExecContext(context.Background(), string(query), nil); err != nil {
					return fmt.Errorf("failed to execute query from file %s: %w", queryPath, err)
				}
			}
			return nil
		}
	}

	connector, err := duckdb.NewConnector(path, connInitFn)
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(connector)

	if path == "" {
		logger.Info("Connected to DuckDB in-memory database")
	} else {
		logger.Info(fmt.Sprintf("Connected to local DuckDB database at %s", path))
	}

	return &DB{
		Logger:    logger,
		DB:        db,
		Driver:    DriverDuckDB,
		connector: connector,
	}, nil
}

func newPostgres(config *config.Config, logger *slog.Logger) (*DB, error) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("POSTGRES_DSN env variable is not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	for _, queryPath := range config.DB.ConnInitFnQueries {
		query, err := readQuery(queryPath)
		if err != nil {
			db.Close()
			return nil, err
		}
		if _, err := db.ExecContext(context.Background(), string(query)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute query from file %s: %w", queryPath, err)
		}
	}

	logger.Info("Connected to Postgres database")

	return &DB{
		Logger: logger,
		DB:     db,
		Driver: DriverPostgres,
	}, nil
}

// readQuery reads a SQL file, falling back to a project-root-relative lookup
// so tests running inside a package directory still find the sql/ files.
func readQuery(path string) ([]byte, error) {
	query, err := os.ReadFile(path)
	if err == nil {
		return query, nil
	}
	if !os.IsNotExist(err) || filepath.IsAbs(path) {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	fallback := utils.SQLPath(filepath.Base(path))
	query, fbErr := os.ReadFile(fallback)
	if fbErr != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return query, nil
}

func (db *DB) Close() {
	db.DB.Close()
	if db.connector != nil {
		db.connector.Close()
	}
}

func (db *DB) RunQuery(query string) error {
	_, err := db.DB.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}
