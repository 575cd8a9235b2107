package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kaokai/furniture-backend/api/controllers"
	authcontrollers "github.com/kaokai/furniture-backend/api/controllers/auth"
	cartcontrollers "github.com/kaokai/furniture-backend/api/controllers/cart"
	checkoutcontrollers "github.com/kaokai/furniture-backend/api/controllers/checkout"
	ordercontrollers "github.com/kaokai/furniture-backend/api/controllers/orders"
	webhookcontrollers "github.com/kaokai/furniture-backend/api/controllers/webhooks"
	"github.com/kaokai/furniture-backend/api/middleware"
	"github.com/kaokai/furniture-backend/api/responses"
	"github.com/kaokai/furniture-backend/internal/auth"
	"github.com/kaokai/furniture-backend/internal/cart"
	"github.com/kaokai/furniture-backend/internal/contacts"
	"github.com/kaokai/furniture-backend/internal/favorites"
	"github.com/kaokai/furniture-backend/internal/orders"
	"github.com/kaokai/furniture-backend/internal/payments"
	"github.com/kaokai/furniture-backend/internal/products"
	"github.com/kaokai/furniture-backend/internal/promotions"
	"github.com/kaokai/furniture-backend/internal/users"
	pkgAuth "github.com/kaokai/furniture-backend/pkg/auth"
	"github.com/kaokai/furniture-backend/pkg/auth/session"
	"github.com/kaokai/furniture-backend/pkg/config"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/logger"
	"github.com/kaokai/furniture-backend/pkg/metrics"
)

// Store is the Redis surface shared by the request-level middleware.
type Store interface {
	middleware.IdempotencyStore
	middleware.RateLimiterStore
}

// Services groups everything the HTTP surface dispatches to.
type Services struct {
	Auth       auth.Service
	Users      users.Service
	Products   products.Service
	Promotions promotions.Service
	Favorites  favorites.Service
	Contacts   *contacts.Service
	Cart       cart.Service
	Orders     orders.Service
	Payments   payments.Service

	StripeWebhook      webhookcontrollers.StripeWebhookService
	StripeClient       webhookcontrollers.SigningClient
	StripeWebhookGuard webhookcontrollers.WebhookGuard
}

// Dependencies are the infrastructure handles the router needs.
type Dependencies struct {
	Sessions session.AccessSessionChecker
	Store    Store
	Pingers  map[string]controllers.Pinger
	Registry *prometheus.Registry
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies, svc Services) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if deps.Registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(deps.Registry)
	}

	r.Use(
		middleware.Recoverer(logg),
		chimw.RealIP,
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.PublicOrigin),
	)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	store := deps.Store
	limits := cfg.AuthRateLimit
	loginLimit := middleware.RateLimit(store, logg,
		middleware.PerClientIP("auth:login", limits.LoginIPLimit, limits.LoginWindow),
		middleware.PerEmail("auth:login", limits.LoginEmailLimit, limits.LoginWindow),
	)
	registerLimit := middleware.RateLimit(store, logg,
		middleware.PerClientIP("auth:register", limits.RegisterIPLimit, limits.RegisterWindow),
	)
	forgotLimit := middleware.RateLimit(store, logg,
		middleware.PerClientIP("auth:forgot", limits.ForgotIPLimit, limits.ForgotWindow),
	)
	idempotent := middleware.Idempotency(store, cfg.Idempotency.RequestTTL, logg)

	r.Route("/api", func(r chi.Router) {
		r.Route("/health", func(r chi.Router) {
			r.Get("/live", controllers.HealthLive(cfg))
			r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
		})

		// public
		r.Get("/products", controllers.ProductList(svc.Products, logg))
		r.Get("/products/bestsellers", controllers.ProductBestSellers(svc.Products, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(svc.Products, logg))
		r.Get("/categories", controllers.Categories(svc.Products, logg))
		r.Get("/promotions", controllers.Promotions(svc.Promotions, logg))
		r.Post("/contact", controllers.ContactSubmit(svc.Contacts, logg))
		r.Post("/stripe/webhook", webhookcontrollers.StripeWebhook(svc.StripeWebhook, svc.StripeClient, svc.StripeWebhookGuard, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimit).Post("/register", authcontrollers.Register(svc.Auth, logg))
			r.With(loginLimit).Post("/login", authcontrollers.Login(svc.Auth, logg))
			r.With(forgotLimit).Post("/forgot-password", authcontrollers.ForgotPassword(svc.Auth, logg))
			r.With(forgotLimit).Post("/reset-password", authcontrollers.ResetPassword(svc.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
				r.Get("/me", authcontrollers.Me(svc.Auth, logg))
				r.Post("/logout", authcontrollers.Logout(svc.Auth, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.RequireCapability(pkgAuth.CapabilityRead, logg))

			r.Get("/user", controllers.UserProfile(svc.Users, logg))
			r.Get("/cart", cartcontrollers.CartFetch(svc.Cart, logg))
			r.Get("/orders", ordercontrollers.List(svc.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
			r.Get("/checkout/session/{sessionId}", checkoutcontrollers.SessionReceipt(svc.Payments, logg))
			r.Get("/payments/{sessionId}/status", checkoutcontrollers.PaymentStatus(svc.Payments, logg))
			r.Get("/favorites", controllers.FavoritesList(svc.Favorites, logg))
			r.Get("/favorites/{productId}", controllers.FavoritesCheck(svc.Favorites, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(pkgAuth.CapabilityWrite, logg))

				r.Put("/user", controllers.UserUpdate(svc.Users, logg))
				r.Post("/cart", cartcontrollers.CartAddItem(svc.Cart, logg))
				r.Put("/cart/{productId}", cartcontrollers.CartUpdateQuantity(svc.Cart, logg))
				r.Delete("/cart/{productId}", cartcontrollers.CartRemoveItem(svc.Cart, logg))
				r.Delete("/cart", cartcontrollers.CartClear(svc.Cart, logg))
				r.With(idempotent).Post("/orders", ordercontrollers.Create(svc.Orders, logg))
				r.With(idempotent).Post("/checkout/create", checkoutcontrollers.CreateSession(svc.Payments, logg))
				r.Post("/checkout/session/{sessionId}/create-order", checkoutcontrollers.CreateOrderFromSession(svc.Payments, logg))
				r.Post("/favorites", controllers.FavoritesAdd(svc.Favorites, logg))
				r.Delete("/favorites/{productId}", controllers.FavoritesRemove(svc.Favorites, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.RequireCapability(pkgAuth.CapabilityAdmin, logg))

			r.Get("/users", controllers.AdminUsersList(svc.Users, logg))
			r.Put("/users/{userId}/role", controllers.AdminUserUpdateRole(svc.Users, logg))

			r.Get("/products", controllers.AdminProductsList(svc.Products, logg))
			r.With(idempotent).Post("/products", controllers.AdminProductCreate(svc.Products, logg))
			r.Put("/products/{productId}", controllers.AdminProductUpdate(svc.Products, logg))
			r.Delete("/products/{productId}", controllers.AdminProductDelete(svc.Products, logg))
			r.Put("/products/{productId}/stock", controllers.AdminProductStock(svc.Products, logg))

			r.Get("/orders", ordercontrollers.AdminList(svc.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.AdminDetail(svc.Orders, logg))
			r.Put("/orders/{orderId}/status", ordercontrollers.AdminUpdateStatus(svc.Orders, logg))
		})
	})

	return r
}
