package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kaokai/furniture-backend/pkg/logger"
)

type resetTokenStore interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// NewResetTokenPurgeJob clears password reset tokens past their expiry.
func NewResetTokenPurgeJob(logg *logger.Logger, store resetTokenStore) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &resetTokenPurgeJob{logg: logg, store: store, now: time.Now}, nil
}

type resetTokenPurgeJob struct {
	logg  *logger.Logger
	store resetTokenStore
	now   func() time.Time
}

func (j *resetTokenPurgeJob) Name() string { return "reset-token-purge" }

func (j *resetTokenPurgeJob) Run(ctx context.Context) error {
	cleared, err := j.store.ClearExpiredResetTokens(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("clear reset tokens: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "tokens_cleared", cleared), "expired reset tokens cleared")
	return nil
}
