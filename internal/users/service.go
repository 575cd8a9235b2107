package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/pagination"
)

// Service covers the profile endpoints and admin user management.
type Service interface {
	Get(ctx context.Context, id int64) (*UserDTO, error)
	UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*UserDTO, error)
	List(ctx context.Context, params pagination.Params) (*pagination.Result[UserDTO], error)
	UpdateRole(ctx context.Context, id int64, role enums.UserRole) (*UserDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id int64) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*UserDTO, error) {
	fields := update.columns()
	if name, ok := fields["name"]; ok && name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if email, ok := fields["email"]; ok && email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
	}
	found, err := s.repo.UpdateFields(ctx, id, fields)
	if err != nil {
		if db.IsUniqueViolation(err, "email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return s.Get(ctx, id)
}

func (s *service) List(ctx context.Context, params pagination.Params) (*pagination.Result[UserDTO], error) {
	res, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return &pagination.Result[UserDTO]{
		Items: FromModels(res.Items),
		Page:  res.Page,
		Limit: res.Limit,
		Total: res.Total,
	}, nil
}

func (s *service) UpdateRole(ctx context.Context, id int64, role enums.UserRole) (*UserDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}
	found, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return s.Get(ctx, id)
}
