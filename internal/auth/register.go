package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/internal/users"
	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/outbox"
	"github.com/kaokai/furniture-backend/pkg/outbox/payloads"
	"github.com/kaokai/furniture-backend/pkg/security"
)

// Register creates a USER account and signs it in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and email are required")
	}
	if err := s.checkPasswordLength(req.Password); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
		}

		created, err := repo.Create(ctx, users.CreateUserDTO{
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Phone:        req.Phone,
			Role:         enums.UserRoleUser,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		user = created

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   users.AggregateID(created.ID),
			Data: payloads.UserRegisteredEvent{
				UserID: created.ID,
				Email:  created.Email,
				Name:   created.Name,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user, s.now())
}
