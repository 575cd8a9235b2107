package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/kaokai/furniture-backend/internal/payments"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/logger"
	pkgstripe "github.com/kaokai/furniture-backend/pkg/stripe"
)

const (
	defaultSessionTTL   = 24 * time.Hour
	sessionExpiryBatch  = 100
	sessionExpiryReason = "expired"
)

type staleSessionLister interface {
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentSession, error)
}

type checkoutLookup interface {
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

// sessionSettler is implemented by the Stripe webhook service so the job
// settles sessions through the same path as live events.
type sessionSettler interface {
	Reconcile(ctx context.Context, sessionID string, meta payments.SessionMeta) (*models.Order, error)
	MarkFailed(ctx context.Context, sessionID, reason string) error
}

type PaymentSessionExpiryJobParams struct {
	Logger   *logger.Logger
	Sessions staleSessionLister
	Gateway  checkoutLookup
	Settler  sessionSettler
	TTL      time.Duration
}

// NewPaymentSessionExpiryJob settles INITIATED sessions older than TTL whose
// webhook never arrived. Sessions the gateway reports as paid are reconciled
// into orders; everything else is failed.
func NewPaymentSessionExpiryJob(params PaymentSessionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("payment session repository required")
	}
	if params.Settler == nil {
		return nil, fmt.Errorf("session settler required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &paymentSessionExpiryJob{
		logg:     params.Logger,
		sessions: params.Sessions,
		gateway:  params.Gateway,
		settler:  params.Settler,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

type paymentSessionExpiryJob struct {
	logg     *logger.Logger
	sessions staleSessionLister
	gateway  checkoutLookup
	settler  sessionSettler
	ttl      time.Duration
	now      func() time.Time
}

func (j *paymentSessionExpiryJob) Name() string { return "payment-session-expiry" }

func (j *paymentSessionExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	rows, err := j.sessions.ListStale(ctx, cutoff, sessionExpiryBatch)
	if err != nil {
		return fmt.Errorf("list stale sessions: %w", err)
	}

	var (
		errs       error
		failed     int
		reconciled int
	)
	for i := range rows {
		row := &rows[i]
		paid, meta, err := j.paidAtGateway(ctx, row)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("session %s: %w", row.ID, err))
			continue
		}
		if paid {
			if _, err := j.settler.Reconcile(ctx, row.ID, meta); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", row.ID, err))
				continue
			}
			reconciled++
			continue
		}
		if err := j.settler.MarkFailed(ctx, row.ID, sessionExpiryReason); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("fail %s: %w", row.ID, err))
			continue
		}
		failed++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"scanned":    len(rows),
		"failed":     failed,
		"reconciled": reconciled,
	})
	j.logg.Info(logCtx, "stale payment sessions settled")
	return errs
}

// paidAtGateway asks the gateway for the final word. Without a gateway, or
// when the gateway no longer knows the session, it counts as unpaid.
func (j *paymentSessionExpiryJob) paidAtGateway(ctx context.Context, row *models.PaymentSession) (bool, payments.SessionMeta, error) {
	if j.gateway == nil {
		return false, payments.SessionMeta{}, nil
	}
	cs, err := j.gateway.GetCheckoutSession(ctx, row.ID)
	if err != nil {
		if pkgstripe.IsNotFound(err) {
			return false, payments.SessionMeta{}, nil
		}
		return false, payments.SessionMeta{}, err
	}
	if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return false, payments.SessionMeta{}, nil
	}
	meta, err := payments.MetadataFromSession(cs)
	if err != nil {
		meta = payments.MetadataFromRow(row)
	}
	return true, meta, nil
}
