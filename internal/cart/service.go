package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the per-user cart.
type Service interface {
	Get(ctx context.Context, userID int64) ([]CartLine, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) ([]CartLine, error)
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) ([]CartLine, error)
	RemoveItem(ctx context.Context, userID, productID int64) ([]CartLine, error)
	Clear(ctx context.Context, userID int64) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, userID int64) ([]CartLine, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}
	return toCartLines(items), nil
}

// AddItem adds quantity units on top of whatever is already in the cart.
// Stock is checked here for early feedback only; order creation re-checks.
func (s *service) AddItem(ctx context.Context, userID, productID int64, quantity int) ([]CartLine, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := s.loadProduct(ctx, repo, productID)
		if err != nil {
			return err
		}
		if product.Stock == 0 {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("%s is out of stock", product.Name)).WithDetails(map[string]any{
				"product_id": product.ID,
				"remaining":  0,
			})
		}

		inCart := 0
		existing, err := repo.Find(ctx, userID, productID)
		switch {
		case err == nil:
			inCart = existing.Quantity
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		if inCart+quantity > product.Stock {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d left of %s", product.Stock, product.Name)).WithDetails(map[string]any{
				"product_id": product.ID,
				"remaining":  product.Stock,
				"in_cart":    inCart,
			})
		}

		if err := repo.Upsert(ctx, userID, productID, inCart+quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// UpdateQuantity sets an absolute quantity; zero or less removes the line.
func (s *service) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) ([]CartLine, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Find(ctx, userID, productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		if quantity <= 0 {
			if err := repo.Delete(ctx, userID, productID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
			}
			return nil
		}

		product, err := s.loadProduct(ctx, repo, productID)
		if err != nil {
			return err
		}
		if quantity > product.Stock {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d left of %s", product.Stock, product.Name)).WithDetails(map[string]any{
				"product_id": product.ID,
				"remaining":  product.Stock,
			})
		}
		if err := repo.Upsert(ctx, userID, productID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID int64) ([]CartLine, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if err := s.repo.Delete(ctx, userID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if _, err := s.repo.DeleteAll(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) loadProduct(ctx context.Context, repo *Repository, productID int64) (*models.Product, error) {
	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{
				"product_id": productID,
			})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}
