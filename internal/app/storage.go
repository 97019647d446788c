package app

import (
	"context"
	"fmt"

	"github.com/eunsilkim-ELSA/family-calendar/internal/config"
	"github.com/eunsilkim-ELSA/family-calendar/internal/database"
	"github.com/eunsilkim-ELSA/family-calendar/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

// Storage is the calendar repository selected by the configuration.
type Storage struct {
	Repository calendar.Repository
	// Driver is the backend actually in use, which differs from the configured one after a fallback.
	Driver string
	close  func() error
}

func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage opens and migrates the configured backend. When Postgres cannot be reached the
// file store is used instead, unless cfg.Strict is set.
func OpenStorage(ctx context.Context, cfg config.Storage) (*Storage, error) {
	switch cfg.Driver {
	case config.DriverFile, "":
		return openFileStorage(cfg.File), nil
	case config.DriverSQLite:
		return openSQLiteStorage(cfg.SQLite)
	case config.DriverPostgres:
		storage, err := openPostgresStorage(ctx, cfg.Database)
		if err == nil {
			return storage, nil
		}
		if cfg.Strict {
			return nil, err
		}
		log.Warnf("Postgres unavailable, falling back to file storage at %s: %v", cfg.File.Path, err)
		return openFileStorage(cfg.File), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openFileStorage(cfg config.File) *Storage {
	log.Infof("Using file storage at %s", cfg.Path)
	return &Storage{
		Repository: calendar.NewFileRepository(cfg.Path),
		Driver:     config.DriverFile,
	}
}

func openSQLiteStorage(cfg config.SQLite) (*Storage, error) {
	db, err := database.OpenSQLite(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateSQLite(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	log.Infof("Using SQLite storage at %s", cfg.Path)
	conn := database.NewSqlxConn(db, database.DialectSQLite)
	return &Storage{
		Repository: calendar.NewSQLRepository(conn),
		Driver:     config.DriverSQLite,
		close:      conn.Close,
	}, nil
}

func openPostgresStorage(ctx context.Context, cfg config.Database) (*Storage, error) {
	pool, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(cfg); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("Using Postgres storage")
	conn := database.NewPgxConn(pool)
	return &Storage{
		Repository: calendar.NewSQLRepository(conn),
		Driver:     config.DriverPostgres,
		close:      conn.Close,
	}, nil
}
