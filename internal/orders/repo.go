package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	"github.com/kaokai/furniture-backend/pkg/pagination"
)

// Repository persists orders and their item snapshots.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the order row and then its items.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Omit("Items").Create(order).Error; err != nil {
		return err
	}
	if len(order.Items) == 0 {
		return nil
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(&order.Items).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) FindByPaymentSession(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("payment_session_id = ?", sessionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListFilters narrows the admin order list.
type ListFilters struct {
	UserID *int64
	Status *enums.OrderStatus
}

// List returns a page of orders, newest first, with items preloaded.
func (r *Repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*pagination.Result[models.Order], error) {
	params = params.Normalize()
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.UserID != nil {
		q = q.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.Order
	err := q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return &pagination.Result[models.Order]{
		Items: rows,
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
	}, nil
}

// UpdateStatus sets the status and reports whether a row matched.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}
