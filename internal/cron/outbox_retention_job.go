package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kaokai/furniture-backend/pkg/logger"
)

const defaultOutboxRetention = 30 * 24 * time.Hour

type publishedEventPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob deletes published outbox rows older than retention.
func NewOutboxRetentionJob(logg *logger.Logger, repo publishedEventPruner, retention time.Duration) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &outboxRetentionJob{logg: logg, repo: repo, retention: retention, now: time.Now}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      publishedEventPruner
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "outbox retention cleanup complete")
	return nil
}
