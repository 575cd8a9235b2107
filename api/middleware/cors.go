package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

const localStorefrontOrigin = "http://localhost:3000"

// CORS allows the storefront origin (and local dev) to call the API with
// bearer tokens and Idempotency-Key headers.
func CORS(publicOrigin string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(publicOrigin),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

func allowedOrigins(publicOrigin string) []string {
	origins := []string{localStorefrontOrigin}
	for _, origin := range strings.Split(publicOrigin, ",") {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || origin == localStorefrontOrigin {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
