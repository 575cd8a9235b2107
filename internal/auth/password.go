package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/internal/users"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/outbox"
	"github.com/kaokai/furniture-backend/pkg/outbox/payloads"
	"github.com/kaokai/furniture-backend/pkg/security"
)

const defaultResetTTL = time.Hour

// ForgotPassword never reveals whether the email exists. Known accounts get a
// fresh token and a password_reset_requested event for the mailer.
func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		user, err := repo.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
		}

		raw, hash, err := security.NewResetToken()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
		}
		ttl := s.passwordCfg.ResetTokenTTL
		if ttl <= 0 {
			ttl = defaultResetTTL
		}
		expiresAt := s.now().Add(ttl)
		if err := repo.SetResetToken(ctx, user.ID, hash, expiresAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetRequested,
			AggregateType: enums.AggregateUser,
			AggregateID:   users.AggregateID(user.ID),
			Data: payloads.PasswordResetRequestedEvent{
				UserID:    user.ID,
				Email:     user.Email,
				Name:      user.Name,
				ResetURL:  s.resetURL(raw),
				ExpiresAt: expiresAt,
			},
		})
	})
}

// ResetPassword swaps the password for the holder of an unexpired token and
// clears the token.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	if err := s.checkPasswordLength(req.Password); err != nil {
		return err
	}

	user, err := s.users.FindByResetToken(ctx, security.HashResetToken(token), s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "reset link is invalid or expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup reset token")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

func (s *service) resetURL(raw string) string {
	base := s.resetBase
	if base == "" {
		base = "http://localhost:3000"
	}
	return base + "/reset-password?token=" + url.QueryEscape(raw)
}
