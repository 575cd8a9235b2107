package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kaokai/furniture-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes row with tx; it never opens its own transaction.
func (r *Repository) Insert(tx *gorm.DB, row *models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(row).Error
}

func deliverable(q *gorm.DB, now time.Time) *gorm.DB {
	return q.Where("published_at IS NULL AND dead_at IS NULL").
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now)
}

// Claim leases up to limit deliverable rows, oldest first, by moving their
// next_attempt_at to now+lease. On Postgres concurrent claimers skip each
// other's locked rows instead of waiting.
func (r *Repository) Claim(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := deliverable(tx, now).Order("created_at ASC").Order("id ASC").Limit(limit)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&rows).Error; err != nil || len(rows) == 0 {
			return err
		}
		ids := make([]uuid.UUID, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		return tx.Model(&models.OutboxEvent{}).
			Where("id IN ?", ids).
			Update("next_attempt_at", now.Add(lease)).Error
	})
	return rows, err
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"published_at":  at,
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    nil,
	})
}

// Retry records a failed attempt and hides the row until at.
func (r *Repository) Retry(ctx context.Context, id uuid.UUID, cause error, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"attempt_count":   gorm.Expr("attempt_count + 1"),
		"last_error":      errorText(cause),
		"next_attempt_at": at,
	})
}

// Bury dead-letters the row; it is kept for inspection but never claimed.
func (r *Repository) Bury(ctx context.Context, id uuid.UUID, cause error, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    errorText(cause),
		"dead_at":       at,
	})
}

// Resurrect makes every dead-lettered row deliverable again with a fresh
// attempt budget.
func (r *Repository) Resurrect(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("dead_at IS NOT NULL AND published_at IS NULL").
		Updates(map[string]any{
			"dead_at":         nil,
			"next_attempt_at": nil,
			"attempt_count":   0,
		})
	return res.RowsAffected, res.Error
}

// Backlog counts rows still waiting for delivery and rows dead-lettered.
func (r *Repository) Backlog(ctx context.Context) (pending, dead int64, err error) {
	base := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("published_at IS NULL")
	if err = base.Session(&gorm.Session{}).Where("dead_at IS NULL").Count(&pending).Error; err != nil {
		return 0, 0, err
	}
	err = base.Session(&gorm.Session{}).Where("dead_at IS NOT NULL").Count(&dead).Error
	return pending, dead, err
}

// DeletePublishedBefore prunes delivered rows older than cutoff. Pending and
// dead-lettered rows are kept.
func (r *Repository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields).Error
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
