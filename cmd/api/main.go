package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kaokai/furniture-backend/api/controllers"
	"github.com/kaokai/furniture-backend/api/routes"
	"github.com/kaokai/furniture-backend/internal/auth"
	"github.com/kaokai/furniture-backend/internal/cart"
	"github.com/kaokai/furniture-backend/internal/contacts"
	"github.com/kaokai/furniture-backend/internal/favorites"
	"github.com/kaokai/furniture-backend/internal/orders"
	"github.com/kaokai/furniture-backend/internal/payments"
	"github.com/kaokai/furniture-backend/internal/products"
	"github.com/kaokai/furniture-backend/internal/promotions"
	"github.com/kaokai/furniture-backend/internal/stock"
	"github.com/kaokai/furniture-backend/internal/users"
	stripewebhook "github.com/kaokai/furniture-backend/internal/webhooks/stripe"
	"github.com/kaokai/furniture-backend/pkg/auth/session"
	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/logger"
	"github.com/kaokai/furniture-backend/pkg/metrics"
	"github.com/kaokai/furniture-backend/pkg/migrate"
	"github.com/kaokai/furniture-backend/pkg/outbox"
	"github.com/kaokai/furniture-backend/pkg/redis"
	"github.com/kaokai/furniture-backend/pkg/server"
	pkgstripe "github.com/kaokai/furniture-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForService("api", cfg.App)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager, stripeClient, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	addr := cfg.App.ListenAddr()
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	srv := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Sessions: sessionManager,
			Store:    redisClient,
			Pingers: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			Registry: registry,
		}, *services),
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Serve(sigCtx, srv, server.DefaultShutdownTimeout, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
	stripeClient *pkgstripe.Client,
	registry prometheus.Registerer,
) (*routes.Services, error) {
	gdb := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(gdb), logg)
	ledger := stock.NewLedger(gdb, dbClient)
	cartRepo := cart.NewRepository(gdb)
	userRepo := users.NewRepository(gdb)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          userRepo,
		SessionManager: sessionManager,
		Outbox:         emitter,
		TxRunner:       dbClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		ResetURLBase:   cfg.App.PublicOrigin,
	})
	if err != nil {
		return nil, err
	}
	userService, err := users.NewService(userRepo)
	if err != nil {
		return nil, err
	}
	productService, err := products.NewService(products.NewRepository(gdb), ledger, dbClient)
	if err != nil {
		return nil, err
	}
	promotionService, err := promotions.NewService(promotions.NewRepository(gdb), time.Now)
	if err != nil {
		return nil, err
	}
	favoriteService, err := favorites.NewService(favorites.NewRepository(gdb))
	if err != nil {
		return nil, err
	}
	contactService, err := contacts.NewService(dbClient, emitter)
	if err != nil {
		return nil, err
	}
	cartService, err := cart.NewService(cartRepo, dbClient)
	if err != nil {
		return nil, err
	}
	orderService, err := orders.NewService(orders.NewRepository(gdb), cartRepo, ledger, emitter, dbClient)
	if err != nil {
		return nil, err
	}

	sessionRepo := payments.NewRepository(gdb)
	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Sessions:          sessionRepo,
		Orders:            orderService,
		Gateway:           stripeClient,
		Outbox:            emitter,
		TransactionRunner: dbClient,
		Metrics:           metrics.NewPaymentMetrics(registry),
		Logger:            logg,
	})
	if err != nil {
		return nil, err
	}
	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:       sessionRepo,
		Carts:      cartRepo,
		Gateway:    stripeClient,
		Reconciler: webhookService,
		SuccessURL: cfg.Stripe.SuccessURL,
		CancelURL:  cfg.Stripe.CancelURL,
	})
	if err != nil {
		return nil, err
	}

	guard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Idempotency.WebhookTTL)
	if err != nil {
		return nil, err
	}

	return &routes.Services{
		Auth:               authService,
		Users:              userService,
		Products:           productService,
		Promotions:         promotionService,
		Favorites:          favoriteService,
		Contacts:           contactService,
		Cart:               cartService,
		Orders:             orderService,
		Payments:           paymentService,
		StripeWebhook:      webhookService,
		StripeClient:       stripeClient,
		StripeWebhookGuard: guard,
	}, nil
}
