// Package migration applies the SQL schema in migrations/ to PostgreSQL.
package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	// Registers the postgres:// database driver.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	// Registers the file:// migration source.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrator is the subset of *migrate.Migrate used here.
type Migrator interface {
	Up() error
	Version() (version uint, dirty bool, err error)
	Close() (source error, database error)
}

// Engine opens a Migrator. Tests replace it to avoid touching a database.
type Engine func(sourceURL, databaseURL string) (Migrator, error)

// DefaultEngine opens a golang-migrate instance.
func DefaultEngine(sourceURL, databaseURL string) (Migrator, error) {
	return migrate.New(sourceURL, databaseURL)
}

// Runner applies migrations from a directory.
type Runner struct {
	path        string
	databaseURL string
	engine      Engine
	logger      *slog.Logger
}

// NewRunner creates a Runner. A nil engine uses DefaultEngine.
func NewRunner(path, databaseURL string, engine Engine, logger *slog.Logger) *Runner {
	if engine == nil {
		engine = DefaultEngine
	}
	return &Runner{
		path:        path,
		databaseURL: databaseURL,
		engine:      engine,
		logger:      logger.With("component", "migration"),
	}
}

// SourceURL returns the file:// URL for the migrations directory.
func (r *Runner) SourceURL() (string, error) {
	abs, err := filepath.Abs(r.path)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// Up applies all pending migrations. Having nothing to apply is not an error.
func (r *Runner) Up() (err error) {
	source, err := r.SourceURL()
	if err != nil {
		return err
	}

	m, err := r.engine(source, r.databaseURL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			r.logger.Info("schema up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		r.logger.Info("migrations applied", "version", version, "dirty", dirty)
	}

	return nil
}
