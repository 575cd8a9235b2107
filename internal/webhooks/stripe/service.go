package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/internal/orders"
	"github.com/kaokai/furniture-backend/internal/payments"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/logger"
	"github.com/kaokai/furniture-backend/pkg/metrics"
	"github.com/kaokai/furniture-backend/pkg/outbox"
	"github.com/kaokai/furniture-backend/pkg/outbox/payloads"
	pkgstripe "github.com/kaokai/furniture-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Sessions          *payments.Repository
	Orders            orders.Service
	Gateway           payments.Gateway
	Outbox            outbox.Emitter
	TransactionRunner txRunner
	Metrics           *metrics.PaymentMetrics
	Logger            *logger.Logger
}

// Service turns verified gateway events into orders and session state.
type Service struct {
	sessions *payments.Repository
	orders   orders.Service
	gateway  payments.Gateway
	outbox   outbox.Emitter
	txRunner txRunner
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment session repo required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		sessions: params.Sessions,
		orders:   params.Orders,
		gateway:  params.Gateway,
		outbox:   params.Outbox,
		txRunner: params.TransactionRunner,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// HandleEvent dispatches a verified event. Unknown types are acknowledged.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	s.metrics.IncWebhook(string(event.Type))

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		cs, err := decodeSession(event)
		if err != nil {
			return err
		}
		if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			// async methods complete unpaid and settle with a later event
			return nil
		}
		meta, err := payments.MetadataFromSession(cs)
		if err != nil {
			return err
		}
		_, err = s.Reconcile(ctx, cs.ID, meta)
		return err
	case stripe.EventTypePaymentIntentSucceeded:
		pi, err := decodeIntent(event)
		if err != nil {
			return err
		}
		sessionID, meta, err := s.resolveIntent(ctx, pi, true)
		if err != nil {
			return err
		}
		if sessionID == "" {
			s.warn(ctx, fmt.Sprintf("payment intent %s has no checkout session", pi.ID))
			return nil
		}
		_, err = s.Reconcile(ctx, sessionID, meta)
		return err
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		cs, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.MarkFailed(ctx, cs.ID, string(event.Type))
	case stripe.EventTypePaymentIntentPaymentFailed:
		pi, err := decodeIntent(event)
		if err != nil {
			return err
		}
		sessionID, _, err := s.resolveIntent(ctx, pi, false)
		if err != nil || sessionID == "" {
			return err
		}
		reason := string(event.Type)
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}
		return s.MarkFailed(ctx, sessionID, reason)
	default:
		return nil
	}
}

// Reconcile creates the single order for a paid session. A session that
// already has an order returns that order, including when a concurrent
// delivery won the race on orders.payment_session_id.
func (s *Service) Reconcile(ctx context.Context, sessionID string, meta payments.SessionMeta) (*models.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	existing, err := s.orders.FindByPaymentSession(ctx, sessionID)
	if err == nil {
		s.metrics.IncReconciliation(metrics.OutcomeDuplicate)
		return existing, nil
	}
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		s.metrics.IncReconciliation(metrics.OutcomeError)
		return nil, err
	}
	if meta.UserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session has no user")
	}

	if err := s.markPaid(ctx, sessionID, meta); err != nil {
		s.metrics.IncReconciliation(metrics.OutcomeError)
		return nil, err
	}

	var created *models.Order
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.CreateOrderTx(ctx, tx, orders.CreateOrderInput{
			UserID:           meta.UserID,
			Source:           orders.CartSnapshot(),
			DeliveryMethod:   meta.DeliveryMethod,
			DeliveryDetails:  meta.DeliveryDetails,
			PaymentSessionID: &sessionID,
			Actor:            orders.ActorFor(meta.UserID, enums.UserRoleUser),
		})
		if err != nil {
			return err
		}
		if err := s.sessions.WithTx(tx).MarkReconciled(ctx, sessionID, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark session reconciled")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentReconciled,
			AggregateType: enums.AggregatePaymentSession,
			AggregateID:   sessionID,
			Data: payloads.PaymentReconciledEvent{
				SessionID:   sessionID,
				OrderID:     order.ID,
				UserID:      meta.UserID,
				AmountMinor: meta.AmountMinor,
				Currency:    meta.Currency,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue payment event")
		}
		created = order
		return nil
	})
	if err != nil {
		// a concurrent delivery may have committed first: it either tripped the
		// unique payment_session_id or already emptied the cart
		if winner, findErr := s.orders.FindByPaymentSession(ctx, sessionID); findErr == nil {
			s.metrics.IncReconciliation(metrics.OutcomeDuplicate)
			return winner, nil
		}
		s.metrics.IncReconciliation(metrics.OutcomeError)
		return nil, err
	}

	s.metrics.IncReconciliation(metrics.OutcomeCreated)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, meta.UserID), created.ID.String())
		s.logg.Info(logCtx, fmt.Sprintf("payment session %s reconciled", sessionID))
	}
	return created, nil
}

// MarkFailed records a session that will not produce an order. Cart and stock
// are untouched; a reconciled session keeps its status.
func (s *Service) MarkFailed(ctx context.Context, sessionID, reason string) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.sessions.WithTx(tx)
		row, err := repo.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment session")
		}
		changed, err := repo.MarkFailed(ctx, sessionID, reason)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark session failed")
		}
		if !changed {
			return nil
		}
		s.metrics.IncReconciliation(metrics.OutcomeFailed)
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePaymentSession,
			AggregateID:   sessionID,
			Data: payloads.PaymentFailedEvent{
				SessionID: sessionID,
				UserID:    row.UserID,
				Reason:    reason,
			},
		})
	})
}

// markPaid moves the stored session to PAID_UNRECONCILED, creating it from
// the gateway metadata when this instance never saw the checkout start.
func (s *Service) markPaid(ctx context.Context, sessionID string, meta payments.SessionMeta) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.sessions.WithTx(tx)
		_, err := repo.FindByID(ctx, sessionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row := &models.PaymentSession{
				ID:              sessionID,
				UserID:          meta.UserID,
				Status:          enums.PaymentSessionPaidUnreconciled,
				AmountMinor:     meta.AmountMinor,
				Currency:        meta.Currency,
				PaymentIntentID: meta.PaymentIntentID,
				DeliveryMethod:  meta.DeliveryMethod,
				DeliveryDetails: meta.DeliveryDetails,
			}
			if row.DeliveryMethod == "" {
				row.DeliveryMethod = enums.DeliveryMethodPickup
			}
			if err := repo.Create(ctx, row); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment session")
			}
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment session")
		}
		if err := repo.MarkPaid(ctx, sessionID, meta.PaymentIntentID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark session paid")
		}
		return nil
	})
}

// resolveIntent finds the checkout session behind a payment intent, first in
// the local table, then through intent metadata, and optionally by asking
// the gateway.
func (s *Service) resolveIntent(ctx context.Context, pi *stripe.PaymentIntent, askGateway bool) (string, payments.SessionMeta, error) {
	row, err := s.sessions.FindByPaymentIntent(ctx, pi.ID)
	if err == nil {
		meta := payments.MetadataFromRow(row)
		meta.PaymentIntentID = &pi.ID
		return row.ID, meta, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", payments.SessionMeta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment session")
	}

	if sessionID := strings.TrimSpace(pi.Metadata[payments.MetaSessionID]); sessionID != "" {
		if row, err := s.sessions.FindByID(ctx, sessionID); err == nil {
			meta := payments.MetadataFromRow(row)
			meta.PaymentIntentID = &pi.ID
			return row.ID, meta, nil
		}
		if !askGateway {
			return sessionID, payments.SessionMeta{}, nil
		}
		cs, err := s.gateway.GetCheckoutSession(ctx, sessionID)
		if err != nil {
			return "", payments.SessionMeta{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "fetch checkout session")
		}
		return sessionFromGateway(cs, pi)
	}

	if !askGateway {
		return "", payments.SessionMeta{}, nil
	}
	cs, err := s.gateway.FindCheckoutSessionByPaymentIntent(ctx, pi.ID)
	if err != nil {
		if pkgstripe.IsNotFound(err) {
			return "", payments.SessionMeta{}, nil
		}
		return "", payments.SessionMeta{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "find checkout session")
	}
	if cs == nil {
		return "", payments.SessionMeta{}, nil
	}
	return sessionFromGateway(cs, pi)
}

func sessionFromGateway(cs *stripe.CheckoutSession, pi *stripe.PaymentIntent) (string, payments.SessionMeta, error) {
	meta, err := payments.MetadataFromSession(cs)
	if err != nil {
		return "", payments.SessionMeta{}, err
	}
	meta.PaymentIntentID = &pi.ID
	if meta.AmountMinor == 0 {
		meta.AmountMinor = pi.Amount
		meta.Currency = string(pi.Currency)
	}
	return cs.ID, meta, nil
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if cs.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	return &cs, nil
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if pi.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &pi, nil
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}
