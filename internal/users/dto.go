package users

import (
	"strconv"
	"strings"
	"time"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
)

// UserDTO is the transport shape that omits credentials and reset state.
type UserDTO struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Phone       *string        `json:"phone"`
	Address     *string        `json:"address"`
	District    *string        `json:"district"`
	Amphoe      *string        `json:"amphoe"`
	Province    *string        `json:"province"`
	PostalCode  *string        `json:"postalCode"`
	Gender      *string        `json:"gender"`
	Nickname    *string        `json:"nickname"`
	Avatar      *string        `json:"avatar"`
	Role        enums.UserRole `json:"role"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Phone        *string
	Role         enums.UserRole
}

// ProfileUpdate carries the optional fields of PUT /user. Nil means unchanged.
type ProfileUpdate struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	Address    *string `json:"address"`
	District   *string `json:"district"`
	Amphoe     *string `json:"amphoe"`
	Province   *string `json:"province"`
	PostalCode *string `json:"postalCode" validate:"omitempty,max=10"`
	Gender     *string `json:"gender"`
	Nickname   *string `json:"nickname"`
	Avatar     *string `json:"avatar"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		Address:     u.Address,
		District:    u.District,
		Amphoe:      u.Amphoe,
		Province:    u.Province,
		PostalCode:  u.PostalCode,
		Gender:      u.Gender,
		Nickname:    u.Nickname,
		Avatar:      u.Avatar,
		Role:        u.Role,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func FromModels(rows []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	hash := c.PasswordHash
	return &models.User{
		Name:         strings.TrimSpace(c.Name),
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		PasswordHash: &hash,
		Phone:        c.Phone,
		Role:         role,
	}
}

// columns maps the set fields to their column names.
func (p ProfileUpdate) columns() map[string]any {
	fields := map[string]any{}
	set := func(column string, v *string) {
		if v != nil {
			fields[column] = strings.TrimSpace(*v)
		}
	}
	set("name", p.Name)
	if p.Email != nil {
		fields["email"] = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	set("phone", p.Phone)
	set("address", p.Address)
	set("district", p.District)
	set("amphoe", p.Amphoe)
	set("province", p.Province)
	set("postal_code", p.PostalCode)
	set("gender", p.Gender)
	set("nickname", p.Nickname)
	set("avatar", p.Avatar)
	return fields
}

// AggregateID is the outbox aggregate key for a user.
func AggregateID(id int64) string {
	return strconv.FormatInt(id, 10)
}
