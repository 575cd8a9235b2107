package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/internal/stock"
	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/pagination"
)

// Service exposes catalog reads and admin product management.
type Service interface {
	List(ctx context.Context, filter Filter, params pagination.Params) (*pagination.Result[models.Product], error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	BestSellers(ctx context.Context) ([]models.Product, error)
	Categories(ctx context.Context) ([]string, error)

	AdminList(ctx context.Context, params pagination.Params) (*pagination.Result[models.Product], error)
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, id int64, input UpdateProductInput) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, id int64, input StockInput) (*stock.Adjustment, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   *Repository
	ledger *stock.Ledger
	tx     txRunner
}

// NewService builds the catalog service. The ledger is the only stock writer.
func NewService(repo *Repository, ledger *stock.Ledger, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, ledger: ledger, tx: tx}, nil
}

func (s *service) List(ctx context.Context, filter Filter, params pagination.Params) (*pagination.Result[models.Product], error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot exceed maxPrice")
	}
	filter.Category = strings.TrimSpace(filter.Category)
	result, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) BestSellers(ctx context.Context) ([]models.Product, error) {
	rows, err := s.repo.BestSellers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list best sellers")
	}
	return rows, nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return rows, nil
}

func (s *service) AdminList(ctx context.Context, params pagination.Params) (*pagination.Result[models.Product], error) {
	result, err := s.repo.ListAll(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

// Create inserts the product with zero stock and sets the initial level
// through the ledger in the same transaction.
func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be zero or more")
	}

	product := input.toModel()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
		}
		if input.Stock == 0 {
			return nil
		}
		adj, err := s.ledger.WithTx(tx).Adjust(ctx, product.ID, enums.StockActionSet, input.Stock)
		if err != nil {
			return err
		}
		product.Stock = adj.Current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateProductInput) (*models.Product, error) {
	if input.Price != nil && !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	fields := input.columns()
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	ok, err := s.repo.UpdateFields(ctx, id, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.Get(ctx, id)
}

// Delete removes a product. Products referenced by order history are kept.
func (s *service) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by existing orders").WithDetails(map[string]any{
				"product_id": id,
			})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) AdjustStock(ctx context.Context, id int64, input StockInput) (*stock.Adjustment, error) {
	return s.ledger.Adjust(ctx, id, input.Action, input.Quantity)
}
