package migrate

import (
	"context"
	"fmt"

	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/logger"
)

// MaybeRunDev brings a dev database up to date at boot when
// FURNITURE_AUTO_MIGRATE is set. Other environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	pool, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	runner, err := NewRunner(pool, Migrations(), logg)
	if err != nil {
		return err
	}
	logg.Info(ctx, "auto-migrate on boot")
	return runner.Up(ctx)
}
