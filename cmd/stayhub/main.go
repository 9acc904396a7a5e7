package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	bookingapp "stayhub/internal/app/handlers/booking"
	"stayhub/internal/app/middleware"
	appoutbox "stayhub/internal/app/outbox"
	"stayhub/internal/app/policies"
	authsvc "stayhub/internal/app/services/auth"
	"stayhub/internal/app/uow"
	domainauth "stayhub/internal/domain/auth"
	"stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/money"
	domainuser "stayhub/internal/domain/user"
	"stayhub/internal/infra/broker/kafka"
	"stayhub/internal/infra/config"
	mongostore "stayhub/internal/infra/db/mongo"
	ginserver "stayhub/internal/infra/http/gin"
	"stayhub/internal/infra/obs"
	infraoutbox "stayhub/internal/infra/outbox"
	"stayhub/internal/infra/redis"
	"stayhub/internal/infra/security"
	"stayhub/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("dotenv not loaded", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	if err := app.loadListingFixtures(ctx, cfg.ListingsFixtures, logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err, "path", cfg.ListingsFixtures)
	}

	if app.relay != nil {
		go func() {
			if err := app.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox relay stopped", "error", err)
			}
		}()
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Checks:  app.checks,
		Timeout: 2 * time.Second,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageBackend,
		"locks", cfg.LockBackend, "sessions", cfg.SessionBackend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type listingSaver interface {
	Save(ctx context.Context, listing *listings.Listing) error
}

type application struct {
	handlers ginserver.Handlers
	listings listingSaver
	relay    *infraoutbox.Worker
	checks   map[string]obs.Check
	closers  []func(context.Context) error
}

// storage groups what the booking core and the identity service need from a backend.
type storage struct {
	factory     uow.UoWFactory
	listings    listingSaver
	outbox      appoutbox.Outbox
	queue       infraoutbox.Queue
	idempotency middleware.IdempotencyStore
	locker      policies.Locker
	users       domainuser.Repository
	sessions    domainauth.SessionStore
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{checks: map[string]obs.Check{}}

	var (
		st  storage
		err error
	)
	switch cfg.StorageBackend {
	case config.BackendMongo:
		st, err = app.mongoStorage(ctx, cfg)
	default:
		st = memoryStorage(cfg)
	}
	if err != nil {
		app.close(logger)
		return nil, err
	}

	if cfg.UsesRedis() {
		client, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			app.close(logger)
			return nil, fmt.Errorf("redis: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		app.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		applyRedis(&st, cfg, client)
	}

	commandBus, queryBus := bookingapp.NewBuses(bookingapp.Dependencies{
		UoWFactory:   st.factory,
		Outbox:       st.outbox,
		Encoder:      appoutbox.JSONEventEncoder{},
		Locker:       st.locker,
		Idempotency:  st.idempotency,
		Logger:       logger,
		DefaultLimit: cfg.DefaultPageLimit,
		MaxLimit:     cfg.MaxPageLimit,
	})
	auth := &authsvc.Service{
		Users:      st.users,
		Sessions:   st.sessions,
		Passwords:  security.BcryptHasher{Cost: bcrypt.DefaultCost},
		Tokens:     security.SessionTokens{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	app.handlers = ginserver.Handlers{
		Booking:        ginserver.BookingHandler{Commands: commandBus, Queries: queryBus, Logger: logger},
		Auth:           ginserver.AuthHandler{Service: auth, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Sessions: auth, Logger: logger}.Handle,
	}
	app.listings = st.listings

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("stayhub-outbox-relay"))
		if err != nil {
			app.close(logger)
			return nil, fmt.Errorf("kafka: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
		app.relay = &infraoutbox.Worker{
			Queue:       st.queue,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Source:      "stayhub",
			Backoff:     cfg.RetryBackoff,
			Logger:      logger.With("component", "outbox-relay"),
		}
	} else {
		logger.Info("KAFKA_BROKERS not set, booking events stay in the outbox")
	}
	return app, nil
}

func memoryStorage(cfg config.Config) storage {
	listingsRepo := memory.NewListingRepository()
	box := memory.NewOutbox()
	return storage{
		factory: memory.Factory{
			Listings: listingsRepo,
			Bookings: memory.NewBookingRepository(),
			Outbox:   box,
		},
		listings:    listingsRepo,
		outbox:      box,
		queue:       box,
		idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL, nil),
		locker:      memory.NewLocker(cfg.LockWait),
		users:       memory.NewUserRepository(),
		sessions:    memory.NewSessionStore(),
	}
}

func (a *application) mongoStorage(ctx context.Context, cfg config.Config) (storage, error) {
	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, fmt.Errorf("mongo: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.checks["mongo"] = client.Ping
	if err := client.EnsureIndexes(ctx); err != nil {
		return storage{}, fmt.Errorf("mongo indexes: %w", err)
	}
	box, err := infraoutbox.NewStore(ctx, client.DB)
	if err != nil {
		return storage{}, fmt.Errorf("mongo outbox: %w", err)
	}
	idem, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return storage{}, fmt.Errorf("mongo idempotency: %w", err)
	}
	listingsRepo := mongostore.NewListingRepository(client.DB)
	return storage{
		factory: mongostore.Factory{
			DB:       client.DB,
			Listings: listingsRepo,
			Bookings: mongostore.NewBookingRepository(client.DB),
		},
		listings:    listingsRepo,
		outbox:      box,
		queue:       box,
		idempotency: idem,
		locker:      mongostore.NewLocker(client.DB, cfg.LockTTL, cfg.LockWait),
		users:       mongostore.NewUserRepository(client.DB),
		sessions:    mongostore.NewSessionStore(client.DB),
	}, nil
}

func applyRedis(st *storage, cfg config.Config, client *goredis.Client) {
	if cfg.LockBackend == config.BackendRedis {
		st.locker = redis.NewLocker(client, cfg.LockTTL, cfg.LockWait)
	}
	if cfg.SessionBackend == config.BackendRedis {
		st.sessions = redis.NewSessionStore(client)
	}
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}

type listingFixture struct {
	ID                   string `json:"id"`
	Host                 string `json:"host"`
	Title                string `json:"title"`
	City                 string `json:"city"`
	Country              string `json:"country"`
	GuestsLimit          int    `json:"guests_limit"`
	MinNights            int    `json:"min_nights"`
	MaxNights            int    `json:"max_nights"`
	NightlyRate          int64  `json:"nightly_rate"`
	Currency             string `json:"currency"`
	CancellationPolicyID string `json:"cancellation_policy_id"`
}

// loadListingFixtures seeds the listing catalog. A missing file is skipped.
func (a *application) loadListingFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()

	var fixtures []listingFixture
	if err := json.NewDecoder(f).Decode(&fixtures); err != nil {
		if errors.Is(err, io.EOF) {
			logger.Warn("listing fixtures file empty", "path", path)
			return nil
		}
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	imported := 0
	for _, fx := range fixtures {
		currency := fx.Currency
		if currency == "" {
			currency = money.DefaultCurrency
		}
		price, err := money.New(fx.NightlyRate, currency)
		if err != nil {
			logger.Error("fixture price invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		listing, err := listings.NewListing(listings.CreateListingParams{
			ID:                   listings.ListingID(fx.ID),
			Host:                 listings.HostID(fx.Host),
			Title:                fx.Title,
			City:                 fx.City,
			Country:              fx.Country,
			GuestsLimit:          fx.GuestsLimit,
			MinNights:            fx.MinNights,
			MaxNights:            fx.MaxNights,
			BasePrice:            price,
			CancellationPolicyID: fx.CancellationPolicyID,
			Now:                  now,
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := listing.Activate(now); err != nil {
			logger.Error("fixture activation failed", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := a.listings.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		imported++
	}
	logger.Info("listing fixtures imported", "count", imported, "path", path)
	return nil
}
