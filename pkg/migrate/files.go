package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	migrationFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	slugInvalidRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`

// slug lowercases name and collapses every run of other characters into "_".
func slug(name string) string {
	return strings.Trim(slugInvalidRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes <dir>/<UTC timestamp>_<slug>.sql with empty
// goose Up and Down sections and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("migrations dir is required")
	}
	s := slug(name)
	if s == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create migrations dir: %w", err)
	}

	path := filepath.Join(dir, time.Now().UTC().Format(versionLayout)+"_"+s+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	if _, err := fmt.Fprintf(f, sqlTemplate, s); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write migration %s: %w", path, err)
	}
	return path, f.Close()
}

// ValidateDir checks the migrations on disk under dir.
func ValidateDir(dir string) error {
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS reports every badly named, duplicated or marker-less
// migration in fsys rather than stopping at the first one.
func ValidateFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var errs error
	versions := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		match := migrationFileRe.FindStringSubmatch(name)
		if match == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q, want <version>_<name>.sql", name))
			continue
		}
		if other, dup := versions[match[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("version %s used by both %s and %s", match[1], other, name))
		}
		versions[match[1]] = name
		errs = multierr.Append(errs, checkMarkers(fsys, name))
	}
	if len(versions) == 0 && errs == nil {
		return errors.New("no migrations found")
	}
	return errs
}

func checkMarkers(fsys fs.FS, name string) error {
	body, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	var errs error
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(string(body), marker) {
			errs = multierr.Append(errs, fmt.Errorf("%s: missing %q", name, marker))
		}
	}
	return errs
}
