package favorites

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

// Repository persists a user's favorite products.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, userID int64) ([]models.Favorite, error) {
	var rows []models.Favorite
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC, product_id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Exists(ctx context.Context, userID, productID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&n).Error
	return n > 0, err
}

func (r *Repository) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&n).Error
	return n > 0, err
}

func (r *Repository) Create(ctx context.Context, fav *models.Favorite) error {
	return r.db.WithContext(ctx).Create(fav).Error
}

func (r *Repository) Delete(ctx context.Context, userID, productID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.Favorite{})
	return res.RowsAffected > 0, res.Error
}

// Item is the API shape of one favorite.
type Item struct {
	ProductID int64           `json:"productId"`
	Product   *models.Product `json:"product"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Service manages per-user favorites.
type Service interface {
	List(ctx context.Context, userID int64) ([]Item, error)
	Add(ctx context.Context, userID, productID int64) (*Item, error)
	Remove(ctx context.Context, userID, productID int64) error
	IsFavorite(ctx context.Context, userID, productID int64) (bool, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("favorites repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID int64) ([]Item, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, toItem(row))
	}
	return items, nil
}

// Add favorites a product. Adding the same product twice is a conflict.
func (s *service) Add(ctx context.Context, userID, productID int64) (*Item, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	found, err := s.repo.ProductExists(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	fav := &models.Favorite{UserID: userID, ProductID: productID}
	if err := s.repo.Create(ctx, fav); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already in favorites")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add favorite")
	}

	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload favorite")
	}
	for _, row := range rows {
		if row.ProductID == productID {
			item := toItem(row)
			return &item, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "favorite vanished after insert")
}

func (s *service) Remove(ctx context.Context, userID, productID int64) error {
	ok, err := s.repo.Delete(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product is not in favorites")
	}
	return nil
}

func (s *service) IsFavorite(ctx context.Context, userID, productID int64) (bool, error) {
	ok, err := s.repo.Exists(ctx, userID, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check favorite")
	}
	return ok, nil
}

func toItem(row models.Favorite) Item {
	return Item{
		ProductID: row.ProductID,
		Product:   row.Product,
		CreatedAt: row.CreatedAt,
	}
}
