package products

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/pagination"
)

const bestSellerLimit = 4

// Filter narrows the public catalog listing.
type Filter struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Repository wraps catalog persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) List(ctx context.Context, filter Filter, params pagination.Params) (*pagination.Result[models.Product], error) {
	params = params.Normalize()
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.Product
	if err := query.Order("id ASC").Limit(params.Limit).Offset(params.Offset()).Find(&rows).Error; err != nil {
		return nil, err
	}
	return &pagination.Result[models.Product]{Items: rows, Page: params.Page, Limit: params.Limit, Total: total}, nil
}

// ListAll returns the admin view, newest first.
func (r *Repository) ListAll(ctx context.Context, params pagination.Params) (*pagination.Result[models.Product], error) {
	params = params.Normalize()
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return &pagination.Result[models.Product]{Items: rows, Page: params.Page, Limit: params.Limit, Total: total}, nil
}

func (r *Repository) BestSellers(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("is_best_seller = ?", true).
		Order("id ASC").
		Limit(bestSellerLimit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// UpdateFields applies a partial update. Stock is never part of fields.
func (r *Repository) UpdateFields(ctx context.Context, id int64, fields map[string]any) (bool, error) {
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).UpdateColumns(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
