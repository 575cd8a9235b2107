package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/internal/cart"
	"github.com/kaokai/furniture-backend/internal/stock"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	pkgstripe "github.com/kaokai/furniture-backend/pkg/stripe"
)

const checkoutDescription = "คำสั่งซื้อจากตะกร้า"

// Gateway is the subset of the Stripe client used by checkout and reconciliation.
type Gateway interface {
	Currency() string
	CreateCheckoutSession(ctx context.Context, req pkgstripe.CheckoutRequest) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	FindCheckoutSessionByPaymentIntent(ctx context.Context, intentID string) (*stripe.CheckoutSession, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

// Reconciler turns a paid session into exactly one order.
type Reconciler interface {
	Reconcile(ctx context.Context, sessionID string, meta SessionMeta) (*models.Order, error)
}

type CheckoutInput struct {
	DeliveryMethod  enums.DeliveryMethod
	DeliveryDetails *string
	SuccessURL      string
	CancelURL       string
}

type CheckoutResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Receipt is the customer-facing view of a hosted session.
type Receipt struct {
	ID              string     `json:"id"`
	AmountTotal     int64      `json:"amount_total"`
	Currency        string     `json:"currency"`
	PaymentStatus   string     `json:"payment_status"`
	CustomerEmail   string     `json:"customer_email,omitempty"`
	PaymentIntentID string     `json:"payment_intent_id,omitempty"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
}

// StatusView combines the local session status with the gateway's view.
type StatusView struct {
	ID            string                      `json:"id"`
	SessionID     string                      `json:"session_id,omitempty"`
	LocalStatus   *enums.PaymentSessionStatus `json:"local_status,omitempty"`
	GatewayStatus string                      `json:"gateway_status,omitempty"`
	OrderID       *uuid.UUID                  `json:"order_id,omitempty"`
}

type Service interface {
	CreateCheckoutSession(ctx context.Context, userID int64, input CheckoutInput) (*CheckoutResult, error)
	GetCheckoutSession(ctx context.Context, userID int64, id string) (*Receipt, error)
	CreateOrderFromSession(ctx context.Context, userID int64, sessionID string) (*models.Order, error)
	PaymentStatus(ctx context.Context, userID int64, id string) (*StatusView, error)
}

type ServiceParams struct {
	Repo       *Repository
	Carts      *cart.Repository
	Gateway    Gateway
	Reconciler Reconciler
	SuccessURL string
	CancelURL  string
}

type service struct {
	repo       *Repository
	carts      *cart.Repository
	gateway    Gateway
	reconciler Reconciler
	successURL string
	cancelURL  string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment session repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &service{
		repo:       params.Repo,
		carts:      params.Carts,
		gateway:    params.Gateway,
		reconciler: params.Reconciler,
		successURL: params.SuccessURL,
		cancelURL:  params.CancelURL,
	}, nil
}

// CreateCheckoutSession prices the caller's cart from current product prices
// and opens a hosted session for that amount.
func (s *service) CreateCheckoutSession(ctx context.Context, userID int64, input CheckoutInput) (*CheckoutResult, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	method := input.DeliveryMethod
	if method == "" {
		method = enums.DeliveryMethodPickup
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery method %q", method))
	}
	if input.DeliveryDetails != nil && utf8.RuneCountInString(*input.DeliveryDetails) > MaxDeliveryDetailsLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery details too long").WithDetails(map[string]string{
			"deliveryDetails": fmt.Sprintf("must be at most %d characters", MaxDeliveryDetailsLen),
		})
	}

	rows, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyOrder, "cart is empty")
	}
	total := decimal.Zero
	for _, row := range rows {
		if row.Product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{
				"product_id": row.ProductID,
			})
		}
		if row.Product.Stock < row.Quantity {
			return nil, stock.InsufficientStock(row.ProductID, row.Product.Name, row.Product.Stock, row.Quantity)
		}
		total = total.Add(row.Product.Price.Mul(decimal.NewFromInt(int64(row.Quantity))))
	}
	amount := pkgstripe.ToMinorUnits(total)
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	email, err := s.repo.UserEmail(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	cs, err := s.gateway.CreateCheckoutSession(ctx, pkgstripe.CheckoutRequest{
		AmountMinor:   amount,
		Description:   checkoutDescription,
		CustomerEmail: email,
		SuccessURL:    firstNonEmpty(input.SuccessURL, s.successURL),
		CancelURL:     firstNonEmpty(input.CancelURL, s.cancelURL),
		Metadata:      encodeMetadata(userID, method, input.DeliveryDetails),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create checkout session")
	}

	row := &models.PaymentSession{
		ID:              cs.ID,
		UserID:          userID,
		Status:          enums.PaymentSessionInitiated,
		AmountMinor:     amount,
		Currency:        s.gateway.Currency(),
		DeliveryMethod:  method,
		DeliveryDetails: input.DeliveryDetails,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment session")
	}
	return &CheckoutResult{ID: cs.ID, URL: cs.URL}, nil
}

func (s *service) GetCheckoutSession(ctx context.Context, userID int64, id string) (*Receipt, error) {
	cs, err := s.fetchSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(cs.Metadata, userID); err != nil {
		return nil, err
	}

	receipt := &Receipt{
		ID:            cs.ID,
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		PaymentStatus: string(cs.PaymentStatus),
		CustomerEmail: cs.CustomerEmail,
	}
	if receipt.CustomerEmail == "" && cs.CustomerDetails != nil {
		receipt.CustomerEmail = cs.CustomerDetails.Email
	}
	if cs.PaymentIntent != nil {
		receipt.PaymentIntentID = cs.PaymentIntent.ID
	}
	if row, err := s.repo.FindByID(ctx, cs.ID); err == nil {
		receipt.OrderID = row.OrderID
	}
	return receipt, nil
}

// CreateOrderFromSession is the manual fallback when the webhook has not
// arrived yet. It converges on the same single order as the webhook.
func (s *service) CreateOrderFromSession(ctx context.Context, userID int64, sessionID string) (*models.Order, error) {
	cs, err := s.fetchSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment has not completed")
	}
	meta, err := MetadataFromSession(cs)
	if err != nil {
		return nil, err
	}
	if meta.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout session belongs to another user")
	}
	return s.reconciler.Reconcile(ctx, cs.ID, meta)
}

// PaymentStatus accepts either a checkout session id or a payment intent id.
func (s *service) PaymentStatus(ctx context.Context, userID int64, id string) (*StatusView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	view := &StatusView{ID: id}
	row, err := s.findLocal(ctx, id)
	if err != nil {
		return nil, err
	}
	if row != nil {
		if row.UserID != userID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
		}
		status := row.Status
		view.LocalStatus = &status
		view.SessionID = row.ID
		view.OrderID = row.OrderID
	}

	gatewayStatus, found, err := s.gatewayStatus(ctx, id)
	if err != nil && row == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "fetch payment status")
	}
	if row == nil && !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	view.GatewayStatus = gatewayStatus
	return view, nil
}

func (s *service) findLocal(ctx context.Context, id string) (*models.PaymentSession, error) {
	lookup := s.repo.FindByID
	if strings.HasPrefix(id, "pi_") {
		lookup = s.repo.FindByPaymentIntent
	}
	row, err := lookup(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment session")
	}
	return row, nil
}

func (s *service) gatewayStatus(ctx context.Context, id string) (string, bool, error) {
	if strings.HasPrefix(id, "pi_") {
		pi, err := s.gateway.GetPaymentIntent(ctx, id)
		if err != nil {
			if pkgstripe.IsNotFound(err) {
				return "", false, nil
			}
			return "", false, err
		}
		return string(pi.Status), true, nil
	}
	cs, err := s.gateway.GetCheckoutSession(ctx, id)
	if err != nil {
		if pkgstripe.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(cs.PaymentStatus), true, nil
}

func (s *service) fetchSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	cs, err := s.gateway.GetCheckoutSession(ctx, id)
	if err != nil {
		if pkgstripe.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "fetch checkout session")
	}
	return cs, nil
}

// checkOwner only needs user_id. Sessions without one belong to nobody.
func checkOwner(md map[string]string, userID int64) error {
	owner, ok := metadataUserID(md)
	if !ok || owner != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "checkout session belongs to another user")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
