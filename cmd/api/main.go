package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"example.com/extracurricular/internal/api"
	"example.com/extracurricular/internal/catalog"
	"example.com/extracurricular/internal/config"
	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/events"
	"example.com/extracurricular/internal/logging"
	"example.com/extracurricular/internal/persistence/memory"
	"example.com/extracurricular/internal/persistence/postgres"
	redisstore "example.com/extracurricular/internal/persistence/redis"
	httptransport "example.com/extracurricular/internal/transport/http"
)

func main() {
	os.Exit(start())
}

// start returns the process exit code once every deferred cleanup has run.
func start() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Printf("logger: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("activity directory stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seed, err := catalog.Load(cfg.SeedFile)
	if err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	opts := []domain.Option{
		domain.WithLogger(logger.Named("domain")),
		domain.WithCapacityEnforcement(cfg.EnforceCapacity),
	}
	if cfg.EventsEnabled() {
		producer := events.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		var publisher *events.Publisher
		if cfg.SchemaRegistryURL != "" {
			publisher = events.NewPublisher(producer, events.NewSchemaRegistryClient(cfg.SchemaRegistryURL), cfg.EventsTopic)
		} else {
			publisher = events.NewPublisher(producer, nil, cfg.EventsTopic)
		}
		opts = append(opts, domain.WithPublisher(publisher), domain.WithPublishTimeout(cfg.PublishTimeout))
		logger.Info("publishing signup events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.EventsTopic))
	}

	service := domain.NewService(repo, opts...)
	if err := service.SeedCatalog(ctx, seed); err != nil {
		return err
	}

	mux := http.NewServeMux()
	api.NewHandler(service, logger.Named("api")).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.Wrap(mux, logger.Named("http"), cfg.CORSAllowedOrigin))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("activity directory listening",
			zap.String("address", cfg.HTTPAddress),
			zap.String("store", cfg.StoreBackend),
			zap.Int("activities", len(seed)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-shutdownCh:
		logger.Info("shutdown requested")
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

func openRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain.Repository, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("using postgres store")
		return postgres.NewRepository(pool), pool.Close, nil

	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("using redis store", zap.String("address", cfg.RedisAddress))
		return redisstore.NewRepository(client, cfg.RedisKeyPrefix), func() { _ = client.Close() }, nil

	default:
		logger.Info("using in-memory store")
		return memory.NewRepository(), func() {}, nil
	}
}
