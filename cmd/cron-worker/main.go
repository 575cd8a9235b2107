package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/kaokai/furniture-backend/internal/cart"
	"github.com/kaokai/furniture-backend/internal/cron"
	"github.com/kaokai/furniture-backend/internal/orders"
	"github.com/kaokai/furniture-backend/internal/payments"
	"github.com/kaokai/furniture-backend/internal/stock"
	"github.com/kaokai/furniture-backend/internal/users"
	stripewebhook "github.com/kaokai/furniture-backend/internal/webhooks/stripe"
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
	runJob := flag.String("job", "", "run the named job once and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.ForService("cron-worker", cfg.App)

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

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry, err := buildJobs(cfg, logg, dbClient, stripeClient, promRegistry)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(promRegistry),
		Tick:     cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"service_kind": cfg.Service.Kind,
	})
	if *runJob != "" {
		if err := service.RunJob(ctx, *runJob); err != nil {
			logg.Error(ctx, "cron job failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(logg.WithField(ctx, "jobs", registry.Names()), "starting cron worker")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return service.Run(gctx) })
	if cfg.Service.OpsAddr != "" {
		g.Go(func() error {
			return server.Serve(gctx, server.Ops(cfg.Service.OpsAddr, promRegistry), server.DefaultShutdownTimeout, logg)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker stopped")
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, stripeClient *pkgstripe.Client, reg prometheus.Registerer) (*cron.Registry, error) {
	gdb := dbClient.DB()
	outboxRepo := outbox.NewRepository(gdb)
	emitter := outbox.NewService(outboxRepo, logg)
	ledger := stock.NewLedger(gdb, dbClient)
	sessionRepo := payments.NewRepository(gdb)

	orderService, err := orders.NewService(orders.NewRepository(gdb), cart.NewRepository(gdb), ledger, emitter, dbClient)
	if err != nil {
		return nil, err
	}
	settler, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Sessions:          sessionRepo,
		Orders:            orderService,
		Gateway:           stripeClient,
		Outbox:            emitter,
		TransactionRunner: dbClient,
		Metrics:           metrics.NewPaymentMetrics(reg),
		Logger:            logg,
	})
	if err != nil {
		return nil, err
	}

	expiryJob, err := cron.NewPaymentSessionExpiryJob(cron.PaymentSessionExpiryJobParams{
		Logger:   logg,
		Sessions: sessionRepo,
		Gateway:  stripeClient,
		Settler:  settler,
		TTL:      cfg.Cron.SessionTTL,
	})
	if err != nil {
		return nil, err
	}
	resetJob, err := cron.NewResetTokenPurgeJob(logg, users.NewRepository(gdb))
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(logg, outboxRepo, cfg.Outbox.Retention)
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	err = multierr.Combine(
		registry.Every(cfg.Cron.SessionExpiryEvery, expiryJob),
		registry.Every(cfg.Cron.ResetTokenPurgeEvery, resetJob),
		registry.Every(cfg.Cron.OutboxRetentionEvery, retentionJob),
	)
	return registry, err
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
