package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homestay/internal/app/commands"
	bookingapp "homestay/internal/app/handlers/booking"
	"homestay/internal/app/middleware"
	appoutbox "homestay/internal/app/outbox"
	"homestay/internal/app/queries"
	"homestay/internal/app/uow"
	"homestay/internal/infra/broker/kafka"
	"homestay/internal/infra/broker/rabbitmq"
	"homestay/internal/infra/config"
	mongostore "homestay/internal/infra/db/mongo"
	ginserver "homestay/internal/infra/http/gin"
	"homestay/internal/infra/lock/redislock"
	"homestay/internal/infra/obs"
	infraoutbox "homestay/internal/infra/outbox"
	"homestay/internal/infra/security"
	"homestay/internal/infra/storage/memory"
	"homestay/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("homestay stopped", "error", err)
		os.Exit(1)
	}
}

// persistence groups what a storage backend contributes to the application.
type persistence struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	source      infraoutbox.Source
	idempotency middleware.IdempotencyStore
	checks      map[string]func(context.Context) error
	closers     []func(context.Context) error
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := buildPersistence(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(store.closers) - 1; i >= 0; i-- {
			if err := store.closers[i](closeCtx); err != nil {
				logger.Warn("shutdown step failed", "error", err)
			}
		}
	}()

	covers, err := buildCoverLinker(cfg, logger)
	if err != nil {
		return err
	}

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	bookingapp.Register(commandBus, queryBus, bookingapp.Dependencies{
		UoWFactory: store.factory,
		Outbox:     store.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
		Covers:     covers,
		Logger:     logger,
	})

	relay, err := startRelay(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	var notifyRelay func()
	if relay != nil {
		notifyRelay = relay.Notify
	}

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Authorization(middleware.RoleAuthorizer{}),
		middleware.Idempotency(store.idempotency, nil),
		middleware.OutboxRelay(store.outbox, notifyRelay, logger),
		middleware.Transaction(store.factory, nil),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(middleware.SelfValidator{}),
		middleware.QueryAuthorization(middleware.RoleAuthorizer{}),
	)

	verifier := security.TokenVerifier{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		RolesClaim: cfg.JWTRolesClaim,
		Leeway:     30 * time.Second,
	}
	booking := ginserver.BookingHandler{
		Commands: commandBusWithMiddleware,
		Queries:  queryBusWithMiddleware,
		Logger:   logger,
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: store.checks}, ginserver.Handlers{
		Booking:        booking,
		HostBooking:    ginserver.HostBookingHandler{BookingHandler: booking},
		AuthMiddleware: ginserver.AuthMiddleware{Verifier: verifier, Logger: logger}.Handle,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.Storage, "locks", cfg.LockBackend, "broker", cfg.Broker)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

func buildPersistence(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence, error) {
	locks, closeLocks, err := buildLocker(ctx, cfg, logger)
	if err != nil {
		return persistence{}, err
	}
	fixtures, err := loadFixtures(cfg, logger)
	if err != nil {
		return persistence{}, err
	}

	switch cfg.Storage {
	case config.StorageMongo:
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return persistence{}, err
		}
		if err := client.EnsureSchema(ctx); err != nil {
			return persistence{}, err
		}
		catalog := mongostore.NewListingCatalog(client.DB)
		for _, listing := range fixtures.All() {
			if err := catalog.Upsert(ctx, listing); err != nil {
				return persistence{}, err
			}
		}
		outbox := mongostore.NewOutboxStore(client.DB)
		p := persistence{
			factory: mongostore.Factory{
				DB:       client.DB,
				Bookings: mongostore.NewBookingStore(client.DB),
				Catalog:  catalog,
				Locks:    locks,
			},
			outbox:      outbox,
			source:      outbox,
			idempotency: mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL),
			checks:      map[string]func(context.Context) error{"mongo": client.Ping},
			closers:     []func(context.Context) error{client.Close},
		}
		if closeLocks != nil {
			p.closers = append(p.closers, closeLocks)
		}
		return p, nil
	default:
		outbox := memory.NewOutbox()
		p := persistence{
			factory: memory.Factory{
				BookingStore: memory.NewBookingStore(),
				Catalog:      fixtures,
				Locks:        locks,
			},
			outbox:      outbox,
			source:      outbox,
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			checks:      map[string]func(context.Context) error{},
		}
		if closeLocks != nil {
			p.closers = append(p.closers, closeLocks)
		}
		return p, nil
	}
}

func buildLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (uow.ListingLocker, func(context.Context) error, error) {
	if cfg.LockBackend != config.LockRedis {
		return memory.NewListingLocks(cfg.LockWait), nil, nil
	}
	rdb, err := redislock.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func(context.Context) error { return rdb.Close() }
	return redislock.New(rdb, cfg.LockTTL, cfg.LockWait, logger), closeFn, nil
}

func loadFixtures(cfg config.Config, logger *slog.Logger) (*memory.ListingCatalog, error) {
	if cfg.ListingsFixtures == "" {
		logger.Warn("no listing fixtures configured, catalog is empty")
		return memory.NewListingCatalog()
	}
	catalog, err := memory.LoadListingFixtures(cfg.ListingsFixtures)
	if err != nil {
		return nil, err
	}
	logger.Info("listing fixtures loaded", "path", cfg.ListingsFixtures, "count", len(catalog.All()))
	return catalog, nil
}

func buildCoverLinker(cfg config.Config, logger *slog.Logger) (bookingapp.CoverLinker, error) {
	if cfg.S3Endpoint == "" {
		return nil, nil
	}
	linker, err := s3.NewLinker(s3.Options{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		UseSSL:         cfg.S3UseSSL,
		Expiry:         cfg.S3URLExpiry,
	}, logger)
	if err != nil {
		return nil, err
	}
	return linker, nil
}

// startRelay returns nil when no broker is configured.
func startRelay(ctx context.Context, cfg config.Config, store persistence, logger *slog.Logger) (*infraoutbox.Worker, error) {
	var producer infraoutbox.Producer
	switch cfg.Broker {
	case config.BrokerKafka:
		p, err := kafka.NewProducer(cfg.KafkaBrokers, "homestay", nil)
		if err != nil {
			return nil, err
		}
		producer = p
		go closeOnDone(ctx, p.Close, logger)
	case config.BrokerRabbitMQ:
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, err
		}
		producer = p
		go closeOnDone(ctx, p.Close, logger)
	default:
		logger.Info("no broker configured, outbox records stay pending")
		return nil, nil
	}

	worker := &infraoutbox.Worker{
		Store:       store.source,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()
	return worker, nil
}

func closeOnDone(ctx context.Context, closeFn func() error, logger *slog.Logger) {
	<-ctx.Done()
	if err := closeFn(); err != nil {
		logger.Warn("broker close failed", "error", err)
	}
}
