package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/internal/cart"
	"github.com/kaokai/furniture-backend/internal/stock"
	"github.com/kaokai/furniture-backend/pkg/checkout"
	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/outbox"
	"github.com/kaokai/furniture-backend/pkg/outbox/payloads"
	"github.com/kaokai/furniture-backend/pkg/pagination"
	"github.com/kaokai/furniture-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateOrderInput carries everything CreateOrder needs.
type CreateOrderInput struct {
	UserID           int64
	Source           ItemSource
	ShippingAddress  string
	DeliveryMethod   enums.DeliveryMethod
	DeliveryDetails  *string
	PaymentSessionID *string
	Actor            *outbox.ActorRef
}

// Service owns order placement and order reads.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	// CreateOrderTx runs CreateOrder inside a transaction owned by the caller.
	CreateOrderTx(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*models.Order, error)
	ListForUser(ctx context.Context, userID int64, params pagination.Params) (*pagination.Result[models.Order], error)
	GetForUser(ctx context.Context, userID int64, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*pagination.Result[models.Order], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, actor *outbox.ActorRef) (*models.Order, error)
	FindByPaymentSession(ctx context.Context, sessionID string) (*models.Order, error)
}

type service struct {
	repo   *Repository
	carts  *cart.Repository
	ledger *stock.Ledger
	outbox outbox.Emitter
	tx     txRunner
}

// NewService wires the order service.
func NewService(repo *Repository, carts *cart.Repository, ledger *stock.Ledger, emitter outbox.Emitter, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, carts: carts, ledger: ledger, outbox: emitter, tx: tx}, nil
}

// CreateOrder resolves the lines, re-reads every product, writes the order
// and its items, decrements stock, clears the cart and queues order.created.
// Everything happens in one transaction.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.CreateOrderTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) CreateOrderTx(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.UserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	method := input.DeliveryMethod
	if method == "" {
		method = enums.DeliveryMethodPickup
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery method %q", method))
	}
	address, err := resolveShippingAddress(input.ShippingAddress, method, input.DeliveryDetails)
	if err != nil {
		return nil, err
	}

	carts := s.carts.WithTx(tx)
	lines, err := s.resolveLines(ctx, carts, input)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyOrder, "order has no items")
	}

	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		var product models.Product
		err := tx.WithContext(ctx).Where("id = ?", line.ProductID).First(&product).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{
					"product_id": line.ProductID,
				})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product.Stock < line.Quantity {
			return nil, stock.InsufficientStock(product.ID, product.Name, product.Stock, line.Quantity)
		}
		item := models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
		}
		total = total.Add(item.LineTotal())
		items = append(items, item)
	}

	order := &models.Order{
		ID:               uuid.New(),
		UserID:           input.UserID,
		Total:            total,
		Status:           enums.OrderStatusPending,
		ShippingAddress:  address,
		DeliveryMethod:   method,
		DeliveryDetails:  input.DeliveryDetails,
		PaymentSessionID: input.PaymentSessionID,
		Items:            items,
	}
	if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "payment_session_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment session already has an order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	ledger := s.ledger.WithTx(tx)
	for _, item := range items {
		if err := ledger.Decrement(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	if _, err := carts.DeleteAll(ctx, input.UserID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID.String(),
		Actor:         input.Actor,
		Data:          orderCreatedEvent(order),
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
	}

	return order, nil
}

func (s *service) resolveLines(ctx context.Context, carts *cart.Repository, input CreateOrderInput) ([]checkout.LineInput, error) {
	switch src := input.Source.(type) {
	case explicitItems:
		raw := make([]checkout.LineInput, 0, len(src.items))
		for _, item := range src.items {
			raw = append(raw, checkout.LineInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		return checkout.MergeLines(raw)
	case cartSnapshot:
		rows, err := carts.ListByUser(ctx, input.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart")
		}
		lines := make([]checkout.LineInput, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, checkout.LineInput{ProductID: row.ProductID, Quantity: row.Quantity})
		}
		return lines, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order item source required")
	}
}

// resolveShippingAddress falls back to the shop address for pickup and to the
// formatted delivery details for delivery.
func resolveShippingAddress(explicit string, method enums.DeliveryMethod, details *string) (string, error) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, nil
	}
	if method == enums.DeliveryMethodPickup {
		return enums.StorePickupAddress, nil
	}
	if details != nil {
		if addr, err := types.ParseDeliveryAddress(*details); err == nil && !addr.IsEmpty() {
			return addr.Format(), nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "shipping address required for delivery")
}

func orderCreatedEvent(order *models.Order) payloads.OrderCreatedEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return payloads.OrderCreatedEvent{
		OrderID:          order.ID,
		UserID:           order.UserID,
		Total:            order.Total,
		DeliveryMethod:   order.DeliveryMethod,
		PaymentSessionID: order.PaymentSessionID,
		Items:            lines,
	}
}

func (s *service) ListForUser(ctx context.Context, userID int64, params pagination.Params) (*pagination.Result[models.Order], error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	res, err := s.repo.List(ctx, params, ListFilters{UserID: &userID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return res, nil
}

func (s *service) GetForUser(ctx context.Context, userID int64, id uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*pagination.Result[models.Order], error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	res, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return res, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// UpdateStatus moves the order to any valid status and queues
// order.status_changed when the status actually changed.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, actor *outbox.ActorRef) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		previous := current.Status
		if previous == status {
			updated = current
			return nil
		}
		if _, err := repo.UpdateStatus(ctx, id, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		current.Status = status
		updated = current

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   id.String(),
			Actor:         actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:  id,
				UserID:   current.UserID,
				Previous: previous,
				Status:   status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) FindByPaymentSession(ctx context.Context, sessionID string) (*models.Order, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment session id required")
	}
	order, err := s.repo.FindByPaymentSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// ParseID converts a path parameter into an order id.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id")
	}
	return id, nil
}

// ActorFor builds the outbox actor for a user id and role.
func ActorFor(userID int64, role enums.UserRole) *outbox.ActorRef {
	if userID <= 0 {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role.String()}
}
