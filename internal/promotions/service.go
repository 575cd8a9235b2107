package promotions

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

// Repository reads promotion rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns promotions valid at or after now, newest first.
func (r *Repository) ListActive(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	var rows []models.Promotion
	err := r.db.WithContext(ctx).
		Where("valid_until >= ?", now).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// Service lists storefront promotions.
type Service interface {
	ListActive(ctx context.Context) ([]models.Promotion, error)
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.Promotion, error) {
	rows, err := s.repo.ListActive(ctx, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promotions")
	}
	if rows == nil {
		rows = []models.Promotion{}
	}
	return rows, nil
}
