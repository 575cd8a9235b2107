package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/logger"
	"github.com/kaokai/furniture-backend/pkg/migrate"
)

// dbCommands need a live connection; create and validate work on files.
var dbCommands = map[string]bool{
	"up":      true,
	"down":    true,
	"status":  true,
	"redo":    true,
	"reset":   true,
	"version": true,
}

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|redo|reset|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.SourceDir, "migrations directory for create and validate")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if err := run(logg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(logg *logger.Logger, opts options) error {
	// create and validate work on files only.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	if !dbCommands[opts.cmd] {
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
	var target int64
	if opts.cmd == "version" {
		v, err := migrate.ParseVersion(opts.version)
		if err != nil {
			return err
		}
		target = v
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.ForService("migrate", cfg.App)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	runner, err := migrate.NewRunner(sqlDB, migrate.Migrations(), logg)
	if err != nil {
		return err
	}
	if err := apply(ctx, runner, opts.cmd, target); err != nil {
		return err
	}
	logg.Info(ctx, "migrate finished")
	return nil
}

func apply(ctx context.Context, runner *migrate.Runner, cmd string, target int64) error {
	switch cmd {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "redo":
		return runner.Redo(ctx)
	case "reset":
		return runner.Reset(ctx)
	case "version":
		return runner.To(ctx, target)
	}

	statuses, err := runner.Status(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, st := range statuses {
		applied := "-"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, filepath.Base(st.Source.Path))
	}
	return w.Flush()
}
