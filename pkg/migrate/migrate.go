package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/kaokai/furniture-backend/pkg/logger"
)

// SourceDir is where new migration files are written during development.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the SQL files compiled into the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Runner applies goose migrations against Postgres.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

// NewRunner does not take ownership of db; closing it stays with the caller.
func NewRunner(db *sql.DB, fsys fs.FS, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	r.report(ctx, results...)
	return wrap("up", err)
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) error {
	result, err := r.provider.Down(ctx)
	r.report(ctx, result)
	return wrap("down", err)
}

// Redo rolls back the most recent migration and applies it again.
func (r *Runner) Redo(ctx context.Context) error {
	if err := r.Down(ctx); err != nil {
		return err
	}
	result, err := r.provider.UpByOne(ctx)
	r.report(ctx, result)
	return wrap("redo", err)
}

// Reset rolls every migration back.
func (r *Runner) Reset(ctx context.Context) error {
	results, err := r.provider.DownTo(ctx, 0)
	r.report(ctx, results...)
	return wrap("reset", err)
}

// To moves the schema up or down until it sits at version.
func (r *Runner) To(ctx context.Context, version int64) error {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return wrap("version", err)
	}
	var results []*goose.MigrationResult
	switch {
	case version > current:
		results, err = r.provider.UpTo(ctx, version)
	case version < current:
		results, err = r.provider.DownTo(ctx, version)
	}
	r.report(ctx, results...)
	return wrap("version", err)
}

// Status lists every known migration with its applied state.
func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	statuses, err := r.provider.Status(ctx)
	return statuses, wrap("status", err)
}

func (r *Runner) report(ctx context.Context, results ...*goose.MigrationResult) {
	if r.logg == nil {
		return
	}
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"version":     res.Source.Version,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}), "migration applied")
	}
}

func wrap(op string, err error) error {
	if err == nil || errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}

// ParseVersion accepts the 14 digit timestamp prefix of a migration file.
// Zero is allowed and means "before the first migration".
func ParseVersion(raw string) (int64, error) {
	if raw == "0" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || len(raw) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q, want YYYYMMDDHHMMSS", raw)
	}
	return v, nil
}
