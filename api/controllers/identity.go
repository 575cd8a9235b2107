package controllers

import (
	"net/http"

	"github.com/kaokai/furniture-backend/api/middleware"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

func requireUser(r *http.Request) (int64, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}
