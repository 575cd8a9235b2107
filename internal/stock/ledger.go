package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Adjustment reports the stock level before and after an admin change.
type Adjustment struct {
	ProductID int64             `json:"productId"`
	Action    enums.StockAction `json:"action"`
	Quantity  int               `json:"quantity"`
	Previous  int               `json:"previous"`
	Current   int               `json:"current"`
}

// Ledger is the only writer of products.stock.
type Ledger struct {
	db *gorm.DB
	tx txRunner
}

// NewLedger binds the ledger to a connection and a transaction runner.
func NewLedger(db *gorm.DB, tx txRunner) *Ledger {
	return &Ledger{db: db, tx: tx}
}

// WithTx scopes the ledger to an open transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	if tx == nil {
		return l
	}
	return &Ledger{db: tx}
}

// Decrement removes qty units with a single conditional update. The row is
// only touched when enough stock remains, so concurrent buyers can never
// drive stock below zero.
func (l *Ledger) Decrement(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var product models.Product
	err := l.db.WithContext(ctx).Select("id", "name", "stock").Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{
				"product_id": productID,
			})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product stock")
	}
	return InsufficientStock(product.ID, product.Name, product.Stock, qty)
}

// Adjust applies an admin stock change under a row lock.
func (l *Ledger) Adjust(ctx context.Context, productID int64, action enums.StockAction, qty int) (*Adjustment, error) {
	if !action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid stock action %q", action))
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be zero or more")
	}
	if action != enums.StockActionSet && qty == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *Adjustment
	run := func(tx *gorm.DB) error {
		var product models.Product
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "stock").
			Where("id = ?", productID).
			First(&product).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
		}

		next := nextLevel(product.Stock, action, qty)
		err = tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", productID).
			UpdateColumns(map[string]any{
				"stock":      next,
				"updated_at": time.Now().UTC(),
			}).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
		}

		result = &Adjustment{
			ProductID: productID,
			Action:    action,
			Quantity:  qty,
			Previous:  product.Stock,
			Current:   next,
		}
		return nil
	}

	if l.tx == nil {
		if err := run(l.db); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err := l.tx.WithTx(ctx, run); err != nil {
		return nil, err
	}
	return result, nil
}

func nextLevel(current int, action enums.StockAction, qty int) int {
	switch action {
	case enums.StockActionIncrease:
		return current + qty
	case enums.StockActionDecrease:
		if qty >= current {
			return 0
		}
		return current - qty
	default:
		return qty
	}
}

// InsufficientStock builds the typed error returned when a request exceeds
// the remaining units of a product.
func InsufficientStock(productID int64, name string, remaining, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d left of %s", remaining, name)).WithDetails(map[string]any{
		"product_id": productID,
		"name":       name,
		"remaining":  remaining,
		"requested":  requested,
	})
}
