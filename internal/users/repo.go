package users

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	"github.com/kaokai/furniture-backend/pkg/pagination"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail matches case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users newest first.
func (r *Repository) List(ctx context.Context, params pagination.Params) (*pagination.Result[models.User], error) {
	params = params.Normalize()
	q := r.db.WithContext(ctx).Model(&models.User{})

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var rows []models.User
	err := q.Session(&gorm.Session{}).
		Order("created_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return &pagination.Result[models.User]{Items: rows, Page: params.Page, Limit: params.Limit, Total: total}, nil
}

// UpdateFields applies a partial profile update and returns whether a row matched.
func (r *Repository) UpdateFields(ctx context.Context, id int64, fields map[string]any) (bool, error) {
	if len(fields) == 0 {
		return true, nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) UpdateRole(ctx context.Context, id int64, role enums.UserRole) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"role": role, "updated_at": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// SetResetToken stores the hash of a password reset token and its expiry.
func (r *Repository) SetResetToken(ctx context.Context, id int64, hash string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"reset_token_hash": hash, "reset_expires_at": expiresAt}).Error
}

// FindByResetToken returns the user holding an unexpired token hash.
func (r *Repository) FindByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("reset_token_hash = ? AND reset_expires_at > ?", hash, now).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword sets a new hash and clears any reset token.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash":    passwordHash,
			"reset_token_hash": nil,
			"reset_expires_at": nil,
			"updated_at":       time.Now().UTC(),
		}).Error
}

// ClearExpiredResetTokens drops reset tokens that expired before now.
func (r *Repository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("reset_token_hash IS NOT NULL AND reset_expires_at <= ?", now).
		UpdateColumns(map[string]any{"reset_token_hash": nil, "reset_expires_at": nil})
	return res.RowsAffected, res.Error
}
