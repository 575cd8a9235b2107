package middleware

import (
	"net/http"

	"github.com/kaokai/furniture-backend/api/responses"
	pkgAuth "github.com/kaokai/furniture-backend/pkg/auth"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/logger"
)

// RequireCapability rejects callers whose role does not grant capability.
// It must run after Auth.
func RequireCapability(capability pkgAuth.Capability, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !pkgAuth.HasCapability(RoleFromContext(r.Context()), capability) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions").
					WithDetails(map[string]any{"capability": string(capability)}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
