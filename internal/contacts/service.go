package contacts

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/outbox"
	"github.com/kaokai/furniture-backend/pkg/outbox/payloads"
)

const defaultSubject = "ไม่ระบุหัวข้อ"

// SubmitRequest is the POST /contact payload.
type SubmitRequest struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   *string `json:"phone" validate:"omitempty,max=32"`
	Subject *string `json:"subject" validate:"omitempty,max=200"`
	Message string  `json:"message" validate:"required,max=5000"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service stores contact messages and hands them to the mailer via the outbox.
type Service struct {
	tx     txRunner
	outbox outbox.Emitter
}

func NewService(tx txRunner, emitter outbox.Emitter) (*Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Service{tx: tx, outbox: emitter}, nil
}

// Submit saves the message and emits contact.submitted in one transaction.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.Contact, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	message := strings.TrimSpace(req.Message)
	if name == "" || email == "" || message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email and message are required")
	}

	contact := &models.Contact{
		Name:    name,
		Email:   email,
		Phone:   blankToNil(req.Phone),
		Subject: blankToNil(req.Subject),
		Message: message,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(contact).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert contact")
		}
		subject := defaultSubject
		if contact.Subject != nil {
			subject = *contact.Subject
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventContactMessageSubmitted,
			AggregateType: enums.AggregateContact,
			AggregateID:   strconv.FormatInt(contact.ID, 10),
			Data: payloads.ContactSubmittedEvent{
				ContactID: contact.ID,
				Name:      contact.Name,
				Email:     contact.Email,
				Phone:     contact.Phone,
				Subject:   subject,
				Message:   contact.Message,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

func blankToNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
