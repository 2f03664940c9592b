package dal

import (
	"fmt"

	"github.com/Billy-Davies-2/fightpick/internal/logger"
)

// Options selects and configures a backend
type Options struct {
	Driver     string // memory, sqlite or postgres
	SQLiteFile string
	URL        string
	SeedDemo   bool
}

// Open creates the backend named by opts.Driver
func Open(opts Options) (PredictionDAL, error) {
	switch opts.Driver {
	case "", "memory":
		logger.Info("Using in-memory prediction store", "seed_demo", opts.SeedDemo)
		if opts.SeedDemo {
			return NewMemoryDAL(), nil
		}
		return NewEmptyMemoryDAL(), nil
	case "sqlite":
		file := opts.SQLiteFile
		if file == "" {
			file = "dev.sqlite"
		}
		store, err := NewSQLiteDAL(file, opts.SeedDemo)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", file, err)
		}
		logger.Info("Connected to SQLite database", "file", file)
		return store, nil
	case "postgres":
		if opts.URL == "" {
			return nil, fmt.Errorf("postgres driver requires db.url")
		}
		store, err := NewPostgresDAL(opts.URL, opts.SeedDemo)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Info("Connected to Postgres database")
		return store, nil
	default:
		return nil, fmt.Errorf("%q (valid: memory, sqlite, postgres): %w", opts.Driver, ErrUnknownDriver)
	}
}
