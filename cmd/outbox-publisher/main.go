package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/instance"
	"github.com/kaokai/furniture-backend/pkg/kafka"
	"github.com/kaokai/furniture-backend/pkg/logger"
	"github.com/kaokai/furniture-backend/pkg/metrics"
	"github.com/kaokai/furniture-backend/pkg/migrate"
	"github.com/kaokai/furniture-backend/pkg/outbox"
	"github.com/kaokai/furniture-backend/pkg/outbox/registry"
	"github.com/kaokai/furniture-backend/pkg/pubsub"
	"github.com/kaokai/furniture-backend/pkg/server"
)

type closableBroker interface {
	broker
	io.Closer
}

func main() {
	resurrect := flag.Bool("resurrect", false, "requeue dead-lettered events and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.ForService("outbox-publisher", cfg.App)

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

	brokerName := strings.ToLower(strings.TrimSpace(cfg.Outbox.Broker))
	b, err := newBroker(context.Background(), brokerName, cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap broker", err)
		os.Exit(1)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logg.Error(context.Background(), "error closing broker", err)
		}
	}()

	repo := outbox.NewRepository(dbClient.DB())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"service_kind": cfg.Service.Kind,
		"broker":       brokerName,
		"instance":     instance.ID(),
	})

	if *resurrect {
		n, err := repo.Resurrect(ctx)
		if err != nil {
			logg.Error(ctx, "failed to requeue dead-lettered events", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "requeued", n), "dead-lettered events requeued")
		return
	}

	eventRegistry, err := registry.NewEventRegistry(cfg.Outbox)
	if err != nil {
		logg.Error(ctx, "failed to build event registry", err)
		os.Exit(1)
	}
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	publisher, err := NewPublisher(PublisherParams{
		Config:     cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		Broker:     b,
		BrokerName: brokerName,
		Store:      repo,
		Resolver:   eventRegistry,
		Metrics:    metrics.NewOutboxMetrics(promRegistry),
	})
	if err != nil {
		logg.Error(ctx, "failed to create outbox publisher", err)
		os.Exit(1)
	}

	logg.Info(ctx, "starting outbox publisher")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return publisher.Run(gctx) })
	if cfg.Service.OpsAddr != "" {
		g.Go(func() error {
			return server.Serve(gctx, server.Ops(cfg.Service.OpsAddr, promRegistry), server.DefaultShutdownTimeout, logg)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher stopped")
}

func newBroker(ctx context.Context, name string, cfg *config.Config, logg *logger.Logger) (closableBroker, error) {
	switch name {
	case "kafka":
		producer, err := kafka.NewProducer(ctx, cfg.Kafka, logg)
		if err != nil {
			return nil, err
		}
		return producer, nil
	case "", "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.Outbox, logg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, errors.New("unsupported outbox broker " + name)
	}
}
