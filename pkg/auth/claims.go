package auth

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kaokai/furniture-backend/pkg/enums"
)

var errNoIdentity = errors.New("token carries no valid identity")

// AccessTokenPayload is what the login flow knows about the user.
type AccessTokenPayload struct {
	UserID int64
	Email  string
	Role   enums.UserRole
	JTI    string
}

func (p AccessTokenPayload) validate() error {
	if p.UserID <= 0 {
		return errors.New("user id is required")
	}
	if !p.Role.IsValid() {
		return errors.New("invalid user role " + strconv.Quote(string(p.Role)))
	}
	return nil
}

type AccessTokenClaims struct {
	UserID int64          `json:"user_id"`
	Email  string         `json:"email"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after jwt's own exp and iss checks.
func (c AccessTokenClaims) Validate() error {
	if c.UserID <= 0 || !c.Role.IsValid() {
		return errNoIdentity
	}
	if c.Subject != "" && c.Subject != strconv.FormatInt(c.UserID, 10) {
		return errNoIdentity
	}
	return nil
}
