package di

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hanko-field/bookstore/internal/handlers"
	"github.com/hanko-field/bookstore/internal/payments"
	"github.com/hanko-field/bookstore/internal/platform/config"
	"github.com/hanko-field/bookstore/internal/platform/events"
	pfirestore "github.com/hanko-field/bookstore/internal/platform/firestore"
	"github.com/hanko-field/bookstore/internal/platform/idempotency"
	"github.com/hanko-field/bookstore/internal/platform/metrics"
	"github.com/hanko-field/bookstore/internal/platform/observability"
	"github.com/hanko-field/bookstore/internal/repositories"
	"github.com/hanko-field/bookstore/internal/repositories/cached"
	"github.com/hanko-field/bookstore/internal/repositories/filestore"
	firestoreRepo "github.com/hanko-field/bookstore/internal/repositories/firestore"
	"github.com/hanko-field/bookstore/internal/repositories/gcs"
	"github.com/hanko-field/bookstore/internal/repositories/memory"
	"github.com/hanko-field/bookstore/internal/repositories/redisstore"
	"github.com/hanko-field/bookstore/internal/repositories/sqlstore"
	"github.com/hanko-field/bookstore/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Catalog  services.CatalogService
	Cart     services.CartService
	Checkout services.CheckoutService
	System   services.SystemService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config      config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Registry
	Services    Services
	Idempotency idempotency.Store

	handler http.Handler
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func(context.Context) error
}

// Option customises container construction, mostly for tests.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	build   services.BuildInfo
	clock   func() time.Time
	gateway payments.Gateway
	catalog repositories.CatalogRepository
	carts   repositories.CartRepository
}

// WithLogger sets the base logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBuildInfo sets the metadata reported by the health endpoints.
func WithBuildInfo(info services.BuildInfo) Option {
	return func(o *options) { o.build = info }
}

// WithClock overrides the time source passed to services.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithGateway replaces the Stripe gateway. The circuit breaker still wraps it.
func WithGateway(gateway payments.Gateway) Option {
	return func(o *options) { o.gateway = gateway }
}

// WithCatalogRepository bypasses Catalog.Source selection.
func WithCatalogRepository(repo repositories.CatalogRepository) Option {
	return func(o *options) { o.catalog = repo }
}

// WithCartRepository bypasses Cart.Store selection.
func WithCartRepository(repo repositories.CartRepository) Option {
	return func(o *options) { o.carts = repo }
}

type pinger interface {
	Ping(ctx context.Context) error
}

type builder struct {
	cfg    config.Config
	opts   options
	logger *zap.Logger

	firestore *pfirestore.Provider
	redis     *redis.Client
	checks    []repositories.DependencyCheck
	closers   []namedCloser
}

// NewContainer selects the configured backends and assembles services and the HTTP handler.
// On failure every resource opened so far is released.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (c *Container, err error) {
	o := options{logger: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.build.StartedAt.IsZero() {
		o.build.StartedAt = o.clock().UTC()
	}
	if o.build.Environment == "" {
		o.build.Environment = cfg.Server.Environment
	}

	b := &builder{cfg: cfg, opts: o, logger: o.logger}
	defer func() {
		if err != nil {
			closeAll(context.Background(), b.logger, b.closers)
		}
	}()

	registry := metrics.NewRegistry()

	catalogRepo, err := b.catalogRepository(ctx)
	if err != nil {
		return nil, err
	}
	cartRepo, err := b.cartRepository()
	if err != nil {
		return nil, err
	}
	publisher, err := b.publisher(ctx)
	if err != nil {
		return nil, err
	}
	gateway, err := b.gateway()
	if err != nil {
		return nil, err
	}
	store, err := b.idempotencyStore(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := b.services(catalogRepo, cartRepo, publisher, gateway, registry)
	if err != nil {
		return nil, err
	}

	c = &Container{
		Config:      cfg,
		Logger:      b.logger,
		Metrics:     registry,
		Services:    svc,
		Idempotency: store,
		closers:     b.closers,
	}
	c.handler = b.router(c)
	return c, nil
}

// Handler returns the fully wired HTTP handler.
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Close releases clients in reverse order of creation.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return closeAll(ctx, c.Logger, c.closers)
}

func closeAll(ctx context.Context, logger *zap.Logger, closers []namedCloser) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		closer := closers[i]
		if err := closer.close(ctx); err != nil {
			logger.Warn("close failed", zap.String("resource", closer.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", closer.name, err))
		}
	}
	return errors.Join(errs...)
}

func (b *builder) addCloser(name string, fn func(context.Context) error) {
	b.closers = append(b.closers, namedCloser{name: name, close: fn})
}

func (b *builder) addCheck(name string, fn func(context.Context) error) {
	b.checks = append(b.checks, repositories.DependencyCheck{Name: name, Check: fn})
}

func (b *builder) firestoreProvider() *pfirestore.Provider {
	if b.firestore == nil {
		b.firestore = pfirestore.NewProvider(b.cfg.Firestore)
		b.addCloser("firestore", func(context.Context) error { return b.firestore.Close() })
		b.addCheck("firestore", b.firestore.Ping)
	}
	return b.firestore
}

func (b *builder) redisClient() *redis.Client {
	if b.redis == nil {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     b.cfg.Redis.Addr,
			Password: b.cfg.Redis.Password,
			DB:       b.cfg.Redis.DB,
		})
		client := b.redis
		b.addCloser("redis", func(context.Context) error { return client.Close() })
		b.addCheck("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
	}
	return b.redis
}

func (b *builder) catalogRepository(ctx context.Context) (repositories.CatalogRepository, error) {
	repo := b.opts.catalog
	if repo == nil {
		var err error
		repo, err = b.openCatalog(ctx)
		if err != nil {
			return nil, err
		}
	}
	check := func(ctx context.Context) error {
		_, err := repo.ListProducts(ctx)
		return err
	}
	if p, ok := repo.(pinger); ok {
		check = p.Ping
	}
	b.addCheck("catalog", check)
	return cached.NewCatalogRepository(repo, b.cfg.Catalog.CacheTTL), nil
}

func (b *builder) openCatalog(ctx context.Context) (repositories.CatalogRepository, error) {
	cfg := b.cfg.Catalog
	switch cfg.Source {
	case "file":
		repo, err := filestore.NewCatalogRepository(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("build file catalog: %w", err)
		}
		return repo, nil
	case "sql":
		db, err := sqlstore.Open(ctx, b.cfg.SQL.Driver, b.cfg.SQL.DSN)
		if err != nil {
			return nil, fmt.Errorf("open catalog database: %w", err)
		}
		b.addCloser("sql", func(context.Context) error { return db.Close() })
		if b.cfg.SQL.MigrateOnStart {
			if err := sqlstore.Migrate(db, b.cfg.SQL.Driver); err != nil {
				return nil, fmt.Errorf("migrate catalog database: %w", err)
			}
		}
		return newSQLCatalog(db)
	case "firestore":
		repo, err := firestoreRepo.NewCatalogRepository(b.firestoreProvider(), cfg.Collection)
		if err != nil {
			return nil, fmt.Errorf("build firestore catalog: %w", err)
		}
		return repo, nil
	case "gcs":
		client, err := cloudstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialise storage client: %w", err)
		}
		b.addCloser("storage", func(context.Context) error { return client.Close() })
		repo, err := gcs.NewCatalogRepository(gcs.ClientOpener(client), b.cfg.Storage.CatalogBucket, cfg.Object)
		if err != nil {
			return nil, fmt.Errorf("build gcs catalog: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported catalog source %q", cfg.Source)
	}
}

func newSQLCatalog(db *sql.DB) (repositories.CatalogRepository, error) {
	repo, err := sqlstore.NewCatalogRepository(db)
	if err != nil {
		return nil, fmt.Errorf("build sql catalog: %w", err)
	}
	return repo, nil
}

func (b *builder) cartRepository() (repositories.CartRepository, error) {
	repo := b.opts.carts
	if repo == nil {
		var err error
		repo, err = b.openCart()
		if err != nil {
			return nil, err
		}
	}
	if p, ok := repo.(pinger); ok {
		b.addCheck("cart", p.Ping)
	}
	return repo, nil
}

func (b *builder) openCart() (repositories.CartRepository, error) {
	cfg := b.cfg.Cart
	switch cfg.Store {
	case "memory":
		return memory.NewCartRepository(), nil
	case "file":
		repo, err := filestore.NewCartRepository(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("build file cart store: %w", err)
		}
		return repo, nil
	case "redis":
		repo, err := redisstore.NewCartRepository(b.redisClient(), cfg.Key, 0)
		if err != nil {
			return nil, fmt.Errorf("build redis cart store: %w", err)
		}
		return repo, nil
	case "firestore":
		repo, err := firestoreRepo.NewCartRepository(b.firestoreProvider(), cfg.Collection, cfg.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("build firestore cart store: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported cart store %q", cfg.Store)
	}
}

func (b *builder) publisher(ctx context.Context) (services.CartEventPublisher, error) {
	cfg := b.cfg.Events
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("initialise pubsub client: %w", err)
		}
		b.addCloser("pubsub", func(context.Context) error { return client.Close() })
		publisher, err := events.NewPubSubPublisher(client.Topic(cfg.Topic))
		if err != nil {
			return nil, fmt.Errorf("build pubsub publisher: %w", err)
		}
		b.addCloser("pubsub-topic", func(context.Context) error { return publisher.Close() })
		return publisher, nil
	case "kafka":
		publisher, err := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.Topic))
		if err != nil {
			return nil, fmt.Errorf("build kafka publisher: %w", err)
		}
		b.addCloser("kafka", func(context.Context) error { return publisher.Close() })
		return publisher, nil
	default:
		return nil, fmt.Errorf("unsupported events backend %q", cfg.Backend)
	}
}

func (b *builder) gateway() (payments.Gateway, error) {
	next := b.opts.gateway
	if next == nil {
		if strings.TrimSpace(b.cfg.PSP.StripeAPIKey) == "" {
			b.logger.Warn("stripe api key not configured; checkout sessions are disabled")
			next = payments.DisabledGateway{}
		} else {
			stripeGateway, err := payments.NewStripeGateway(payments.StripeGatewayConfig{
				APIKey:  b.cfg.PSP.StripeAPIKey,
				APIURL:  b.cfg.PSP.StripeAPIURL,
				Timeout: b.cfg.Checkout.GatewayTimeout,
				Logger:  payments.StripeLogger(observability.ServiceLogger(b.logger, "stripe")),
			})
			if err != nil {
				return nil, fmt.Errorf("build stripe gateway: %w", err)
			}
			next = stripeGateway
		}
	}

	breakerLogger := b.logger.Named("payments")
	breaker := payments.NewBreakerGateway(next, payments.BreakerSettings{
		Name:        "stripe",
		MaxFailures: uint32(b.cfg.PSP.BreakerMaxFailures),
		OpenTimeout: b.cfg.PSP.BreakerOpenTimeout,
		OnStateChange: func(name, from, to string) {
			breakerLogger.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from), zap.String("to", to))
		},
	})
	b.addCheck("payments", breaker.Ping)
	return breaker, nil
}

func (b *builder) idempotencyStore(ctx context.Context) (idempotency.Store, error) {
	switch b.cfg.Idempotency.Store {
	case "", "memory":
		return idempotency.NewMemoryStore(), nil
	case "redis":
		return idempotency.NewRedisStore(b.redisClient(), "idem:"), nil
	case "firestore":
		client, err := b.firestoreProvider().Client(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialise firestore client: %w", err)
		}
		return idempotency.NewFirestoreStore(client), nil
	default:
		return nil, fmt.Errorf("unsupported idempotency store %q", b.cfg.Idempotency.Store)
	}
}

func (b *builder) services(
	catalogRepo repositories.CatalogRepository,
	cartRepo repositories.CartRepository,
	publisher services.CartEventPublisher,
	gateway payments.Gateway,
	registry *metrics.Registry,
) (Services, error) {
	var svc Services
	serviceLogger := func(name string) services.Logger {
		return services.Logger(observability.ServiceLogger(b.logger, name))
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: catalogRepo,
		Locale:  b.cfg.Catalog.Locale,
		Logger:  serviceLogger("catalog"),
		Metrics: registry,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository: cartRepo,
		Catalog:    catalogSvc,
		Clock:      b.opts.clock,
		Logger:     serviceLogger("cart"),
		Publisher:  publisher,
		Metrics:    registry,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	checkoutCfg := b.cfg.Checkout
	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Gateway: gateway,
		Cart:    cartSvc,
		Settings: services.CheckoutSettings{
			Currency:            checkoutCfg.Currency,
			ShippingName:        checkoutCfg.ShippingName,
			ShippingDescription: checkoutCfg.ShippingDescription,
			ShippingAmount:      checkoutCfg.ShippingAmount,
			MinimumAmount:       checkoutCfg.MinimumAmount,
			DefaultOrigin:       checkoutCfg.DefaultOrigin,
			GatewayTimeout:      checkoutCfg.GatewayTimeout,
		},
		Logger:  serviceLogger("checkout"),
		Metrics: registry,
		Clock:   b.opts.clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	healthRepo, err := repositories.NewDependencyHealthRepository(b.checks, repositories.WithDependencyClock(b.opts.clock))
	if err != nil {
		return Services{}, fmt.Errorf("build health repository: %w", err)
	}
	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: healthRepo,
		Clock:            b.opts.clock,
		Build:            b.opts.build,
		OptionalChecks:   []string{"payments"},
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}

func (b *builder) router(c *Container) http.Handler {
	cfg := b.cfg
	idempotencyMiddleware := idempotency.Middleware(
		c.Idempotency,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(b.logger.Named("idempotency"))),
		idempotency.WithClock(b.opts.clock),
	)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware(cfg.Firestore.ProjectID),
		observability.InjectLoggerMiddleware(b.logger),
		observability.RequestLoggerMiddleware(),
		observability.RecoveryMiddleware(b.logger),
		handlers.CORSMiddleware(cfg.Server.AllowedOrigins),
	}
	if cfg.Metrics.Enabled {
		middlewares = append(middlewares, c.Metrics.Middleware)
	}

	routerOpts := []handlers.Option{
		handlers.WithBasePath(cfg.Server.BasePath),
		handlers.WithMiddlewares(middlewares...),
		handlers.WithAPIInfo(handlers.APIInfo{
			Name:        "Bookstore API",
			Description: "Book catalog, cart and checkout",
			Version:     b.opts.build.Version,
		}),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthSystemService(c.Services.System),
			handlers.WithHealthBuildInfo(b.opts.build),
			handlers.WithHealthClock(b.opts.clock),
		)),
		handlers.WithAPIRoutes(
			handlers.NewProductHandlers(c.Services.Catalog).Routes,
			handlers.NewCartHandlers(c.Services.Cart).Routes,
			handlers.NewCheckoutHandlers(c.Services.Checkout,
				handlers.WithCheckoutIdempotency(idempotencyMiddleware),
				handlers.WithCheckoutRateLimit(cfg.Checkout.RateLimit, cfg.Checkout.RateWindow, b.opts.clock),
			).Routes,
		),
	}
	if cfg.Metrics.Enabled {
		routerOpts = append(routerOpts, handlers.WithMetricsHandler(cfg.Metrics.Path, c.Metrics.Handler()))
	}
	return handlers.NewRouter(routerOpts...)
}
