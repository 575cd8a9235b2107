package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
)

// Repository persists the local mirror of hosted checkout sessions.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, session *models.PaymentSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *Repository) FindByPaymentIntent(ctx context.Context, intentID string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	if err := r.db.WithContext(ctx).Where("payment_intent_id = ?", intentID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// MarkPaid moves a non-reconciled session to PAID_UNRECONCILED and records the
// payment intent when one is known.
func (r *Repository) MarkPaid(ctx context.Context, id string, intentID *string) error {
	updates := map[string]any{
		"status":     enums.PaymentSessionPaidUnreconciled,
		"updated_at": time.Now().UTC(),
	}
	if intentID != nil && *intentID != "" {
		updates["payment_intent_id"] = *intentID
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentSession{}).
		Where("id = ? AND status <> ?", id, enums.PaymentSessionReconciled).
		Updates(updates).Error
}

func (r *Repository) MarkReconciled(ctx context.Context, id string, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.PaymentSessionReconciled,
			"order_id":       orderID,
			"failure_reason": nil,
			"updated_at":     time.Now().UTC(),
		}).Error
}

// MarkFailed fails the session unless it already produced an order. The bool
// reports whether a row changed.
func (r *Repository) MarkFailed(ctx context.Context, id string, reason string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentSession{}).
		Where("id = ? AND status NOT IN ?", id, []enums.PaymentSessionStatus{
			enums.PaymentSessionReconciled,
			enums.PaymentSessionFailed,
		}).
		Updates(map[string]any{
			"status":         enums.PaymentSessionFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListStale returns INITIATED sessions created before cutoff, oldest first.
func (r *Repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentSession, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.PaymentSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.PaymentSessionInitiated, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// UserEmail returns the account email used to prefill the hosted page.
func (r *Repository) UserEmail(ctx context.Context, userID int64) (string, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("email").Where("id = ?", userID).First(&user).Error; err != nil {
		return "", err
	}
	return user.Email, nil
}
