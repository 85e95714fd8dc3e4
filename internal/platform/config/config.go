package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultBasePath             = "/api"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultRequestTimeout       = 60 * time.Second
	defaultEnvironment          = "local"
	defaultCatalogSource        = "file"
	defaultCatalogPath          = "data/books.json"
	defaultCatalogCollection    = "products"
	defaultCatalogObject        = "catalog/books.json"
	defaultCatalogCacheTTL      = 30 * time.Second
	defaultCatalogLocale        = "ro"
	defaultCartStore            = "file"
	defaultCartPath             = "data/cart.json"
	defaultCartKey              = "cart:global"
	defaultCartCollection       = "carts"
	defaultCartDocument         = "global"
	defaultCurrency             = "ron"
	defaultShippingName         = "Transport"
	defaultShippingDescription  = "Cost livrare"
	defaultShippingAmount       = 1999
	defaultMinimumAmount        = 100
	defaultCheckoutOrigin       = "http://localhost:3000"
	defaultGatewayTimeout       = 10 * time.Second
	defaultCheckoutRateLimit    = 30
	defaultCheckoutRateWindow   = time.Minute
	defaultBreakerFailures      = 5
	defaultBreakerOpenTimeout   = 30 * time.Second
	defaultSQLDriver            = "sqlite"
	defaultSQLDSN               = "file:data/bookstore.db?_pragma=busy_timeout(5000)"
	defaultEventsBackend        = "none"
	defaultEventsTopic          = "bookstore-cart-events"
	defaultIdempotencyStore     = "memory"
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
	defaultMetricsPath          = "/metrics"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Catalog     CatalogConfig
	Cart        CartConfig
	Checkout    CheckoutConfig
	PSP         PSPConfig
	Firestore   FirestoreConfig
	Redis       RedisConfig
	SQL         SQLConfig
	Storage     StorageConfig
	Events      EventsConfig
	Idempotency IdempotencyConfig
	Metrics     MetricsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port           string
	BasePath       string
	Environment    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// CatalogConfig selects where products are read from.
type CatalogConfig struct {
	Source     string
	Path       string
	Collection string
	Object     string
	CacheTTL   time.Duration
	Locale     string
}

// CartConfig selects where the singleton cart is persisted.
type CartConfig struct {
	Store      string
	Path       string
	Key        string
	Collection string
	DocumentID string
}

// CheckoutConfig controls how checkout sessions are priced and redirected.
type CheckoutConfig struct {
	Currency            string
	ShippingName        string
	ShippingDescription string
	ShippingAmount      int64
	MinimumAmount       int64
	DefaultOrigin       string
	GatewayTimeout      time.Duration
	// RateLimit caps session creations per client IP within RateWindow. Zero disables it.
	RateLimit  int
	RateWindow time.Duration
}

// PSPConfig collects payment provider credentials and client behaviour.
type PSPConfig struct {
	StripeAPIKey       string
	StripeAPIURL       string
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID       string
	EmulatorHost    string
	CredentialsFile string
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SQLConfig configures the relational catalog.
type SQLConfig struct {
	Driver         string
	DSN            string
	MigrateOnStart bool
}

// StorageConfig lists bucket names used by the application.
type StorageConfig struct {
	CatalogBucket string
}

// EventsConfig selects the cart event transport.
type EventsConfig struct {
	Backend      string
	Topic        string
	ProjectID    string
	KafkaBrokers []string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Store            string
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets failed to resolve.
type MissingSecretsError struct {
	secrets []missingSecret
}

type missingSecret struct {
	name     string
	redacted string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.secrets) == 0 {
		return "missing required secrets"
	}
	names := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		names = append(names, secret.redacted)
	}
	sort.Strings(names)
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(names, ", "))
}

// RedactedNames returns a copy of the redacted secret identifiers.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil || len(e.secrets) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		out = append(out, secret.redacted)
	}
	sort.Strings(out)
	return out
}

// Names returns the underlying secret identifiers.
func (e *MissingSecretsError) Names() []string {
	if e == nil || len(e.secrets) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		out = append(out, secret.name)
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile               string
	envMap                map[string]string
	useSystemEnv          bool
	secret                SecretResolver
	requiredSecrets       []string
	panicOnMissingSecrets bool
}

// EnvironmentValues returns the effective key/value environment map after applying the same precedence
// rules as Load (dotenv < OS env < explicit env map). Callers can use the result to initialise
// dependencies before invoking Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	merge := func(source map[string]string) {
		if source == nil {
			return
		}
		for key, value := range source {
			values[key] = value
		}
	}

	merge(dotEnvValues)

	if options.useSystemEnv {
		system := make(map[string]string)
		for _, entry := range os.Environ() {
			if entry == "" {
				continue
			}
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			if key == "" {
				continue
			}
			system[key] = parts[1]
		}
		merge(system)
	}

	merge(options.envMap)

	return values, nil
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks the provided secret identifiers as mandatory.
// Identifiers match the config field names recorded by the loader (e.g. "PSP.StripeAPIKey").
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// WithPanicOnMissingSecrets causes Load to panic when required secrets are missing.
func WithPanicOnMissingSecrets() Option {
	return func(o *loaderOptions) {
		o.panicOnMissingSecrets = true
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:           stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			BasePath:       stringWithDefault(lookup, "API_SERVER_BASE_PATH", defaultBasePath),
			Environment:    strings.ToLower(stringWithDefault(lookup, "API_ENVIRONMENT", defaultEnvironment)),
			ReadTimeout:    durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "API_SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
			AllowedOrigins: csvWithDefault(lookup, "API_SERVER_ALLOWED_ORIGINS"),
		},
		Catalog: CatalogConfig{
			Source:     strings.ToLower(stringWithDefault(lookup, "API_CATALOG_SOURCE", defaultCatalogSource)),
			Path:       stringWithDefault(lookup, "API_CATALOG_PATH", defaultCatalogPath),
			Collection: stringWithDefault(lookup, "API_CATALOG_COLLECTION", defaultCatalogCollection),
			Object:     stringWithDefault(lookup, "API_CATALOG_OBJECT", defaultCatalogObject),
			CacheTTL:   durationWithDefault(lookup, "API_CATALOG_CACHE_TTL", defaultCatalogCacheTTL),
			Locale:     stringWithDefault(lookup, "API_CATALOG_LOCALE", defaultCatalogLocale),
		},
		Cart: CartConfig{
			Store:      strings.ToLower(stringWithDefault(lookup, "API_CART_STORE", defaultCartStore)),
			Path:       stringWithDefault(lookup, "API_CART_PATH", defaultCartPath),
			Key:        stringWithDefault(lookup, "API_CART_KEY", defaultCartKey),
			Collection: stringWithDefault(lookup, "API_CART_COLLECTION", defaultCartCollection),
			DocumentID: stringWithDefault(lookup, "API_CART_DOCUMENT_ID", defaultCartDocument),
		},
		Checkout: CheckoutConfig{
			Currency:            strings.ToLower(stringWithDefault(lookup, "API_CHECKOUT_CURRENCY", defaultCurrency)),
			ShippingName:        stringWithDefault(lookup, "API_CHECKOUT_SHIPPING_NAME", defaultShippingName),
			ShippingDescription: stringWithDefault(lookup, "API_CHECKOUT_SHIPPING_DESCRIPTION", defaultShippingDescription),
			ShippingAmount:      int64(intWithDefault(lookup, "API_CHECKOUT_SHIPPING_AMOUNT", defaultShippingAmount)),
			MinimumAmount:       int64(intWithDefault(lookup, "API_CHECKOUT_MINIMUM_AMOUNT", defaultMinimumAmount)),
			DefaultOrigin:       strings.TrimRight(stringWithDefault(lookup, "API_CHECKOUT_DEFAULT_ORIGIN", defaultCheckoutOrigin), "/"),
			GatewayTimeout:      durationWithDefault(lookup, "API_CHECKOUT_GATEWAY_TIMEOUT", defaultGatewayTimeout),
			RateLimit:           intWithDefault(lookup, "API_CHECKOUT_RATE_LIMIT", defaultCheckoutRateLimit),
			RateWindow:          durationWithDefault(lookup, "API_CHECKOUT_RATE_WINDOW", defaultCheckoutRateWindow),
		},
		PSP: PSPConfig{
			StripeAPIKey:       stringWithDefault(lookup, "API_PSP_STRIPE_API_KEY", ""),
			StripeAPIURL:       stringWithDefault(lookup, "API_PSP_STRIPE_API_URL", ""),
			BreakerMaxFailures: intWithDefault(lookup, "API_PSP_BREAKER_MAX_FAILURES", defaultBreakerFailures),
			BreakerOpenTimeout: durationWithDefault(lookup, "API_PSP_BREAKER_OPEN_TIMEOUT", defaultBreakerOpenTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:       stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost:    stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
			CredentialsFile: stringWithDefault(lookup, "API_GCP_CREDENTIALS_FILE", ""),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "API_REDIS_ADDR", ""),
			Password: stringWithDefault(lookup, "API_REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "API_REDIS_DB", 0),
		},
		SQL: SQLConfig{
			Driver:         strings.ToLower(stringWithDefault(lookup, "API_SQL_DRIVER", defaultSQLDriver)),
			DSN:            stringWithDefault(lookup, "API_SQL_DSN", defaultSQLDSN),
			MigrateOnStart: boolWithDefault(lookup, "API_SQL_MIGRATE_ON_START", true),
		},
		Storage: StorageConfig{
			CatalogBucket: stringWithDefault(lookup, "API_STORAGE_CATALOG_BUCKET", ""),
		},
		Events: EventsConfig{
			Backend:      strings.ToLower(stringWithDefault(lookup, "API_EVENTS_BACKEND", defaultEventsBackend)),
			Topic:        stringWithDefault(lookup, "API_EVENTS_TOPIC", defaultEventsTopic),
			ProjectID:    stringWithDefault(lookup, "API_EVENTS_PROJECT_ID", ""),
			KafkaBrokers: csvWithDefault(lookup, "API_EVENTS_KAFKA_BROKERS"),
		},
		Idempotency: IdempotencyConfig{
			Store:            strings.ToLower(stringWithDefault(lookup, "API_IDEMPOTENCY_STORE", defaultIdempotencyStore)),
			Header:           stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
		Metrics: MetricsConfig{
			Enabled: boolWithDefault(lookup, "API_METRICS_ENABLED", true),
			Path:    stringWithDefault(lookup, "API_METRICS_PATH", defaultMetricsPath),
		},
	}

	resolvedSecrets := make(map[string]string)
	resolveField := func(name string, field *string) error {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return err
		}
		*field = resolved
		resolvedSecrets[name] = strings.TrimSpace(resolved)
		return nil
	}

	// Pub/Sub shares the Firestore project unless configured separately.
	if cfg.Events.ProjectID == "" {
		cfg.Events.ProjectID = cfg.Firestore.ProjectID
	}
	if !strings.HasPrefix(cfg.Server.BasePath, "/") {
		cfg.Server.BasePath = "/" + cfg.Server.BasePath
	}

	secretFields := []struct {
		name  string
		field *string
	}{
		{"PSP.StripeAPIKey", &cfg.PSP.StripeAPIKey},
		{"Redis.Password", &cfg.Redis.Password},
		{"SQL.DSN", &cfg.SQL.DSN},
	}
	for _, target := range secretFields {
		if err := resolveField(target.name, target.field); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	if missing := findMissingSecrets(options.requiredSecrets, resolvedSecrets); missing != nil {
		if options.panicOnMissingSecrets {
			fmt.Fprintf(os.Stderr, "config: %s\n", missing.Error())
			panic(missing)
		}
		return Config{}, missing
	}

	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" {
		return value, nil
	}
	if !isSecretReference(value) {
		return value, nil
	}
	if resolver == nil {
		normalized := normalizeSecretReference(value)
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	normalized := normalizeSecretReference(value)
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if cfg.Server.Port == "" {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Server.RequestTimeout <= 0 {
		invalid = append(invalid, "Server.RequestTimeout")
	}

	switch cfg.Catalog.Source {
	case "file":
		if strings.TrimSpace(cfg.Catalog.Path) == "" {
			invalid = append(invalid, "Catalog.Path")
		}
	case "sql":
		if strings.TrimSpace(cfg.SQL.DSN) == "" {
			invalid = append(invalid, "SQL.DSN")
		}
		if cfg.SQL.Driver != "sqlite" && cfg.SQL.Driver != "postgres" {
			invalid = append(invalid, "SQL.Driver")
		}
	case "firestore":
		if cfg.Firestore.ProjectID == "" {
			invalid = append(invalid, "Firestore.ProjectID")
		}
	case "gcs":
		if cfg.Storage.CatalogBucket == "" {
			invalid = append(invalid, "Storage.CatalogBucket")
		}
	default:
		invalid = append(invalid, "Catalog.Source")
	}

	switch cfg.Cart.Store {
	case "memory":
	case "file":
		if strings.TrimSpace(cfg.Cart.Path) == "" {
			invalid = append(invalid, "Cart.Path")
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			invalid = append(invalid, "Redis.Addr")
		}
	case "firestore":
		if cfg.Firestore.ProjectID == "" {
			invalid = append(invalid, "Firestore.ProjectID")
		}
	default:
		invalid = append(invalid, "Cart.Store")
	}

	if cfg.Checkout.Currency == "" {
		invalid = append(invalid, "Checkout.Currency")
	}
	if cfg.Checkout.ShippingAmount < 0 {
		invalid = append(invalid, "Checkout.ShippingAmount")
	}
	if cfg.Checkout.MinimumAmount <= 0 {
		invalid = append(invalid, "Checkout.MinimumAmount")
	}
	if cfg.Checkout.GatewayTimeout <= 0 {
		invalid = append(invalid, "Checkout.GatewayTimeout")
	}
	if cfg.Checkout.RateLimit < 0 || (cfg.Checkout.RateLimit > 0 && cfg.Checkout.RateWindow <= 0) {
		invalid = append(invalid, "Checkout.RateLimit")
	}
	if cfg.PSP.BreakerMaxFailures <= 0 {
		invalid = append(invalid, "PSP.BreakerMaxFailures")
	}

	switch cfg.Events.Backend {
	case "none":
	case "pubsub":
		if cfg.Events.ProjectID == "" {
			invalid = append(invalid, "Events.ProjectID")
		}
	case "kafka":
		if len(cfg.Events.KafkaBrokers) == 0 {
			invalid = append(invalid, "Events.KafkaBrokers")
		}
	default:
		invalid = append(invalid, "Events.Backend")
	}

	switch cfg.Idempotency.Store {
	case "memory":
	case "redis":
		if cfg.Redis.Addr == "" {
			invalid = append(invalid, "Redis.Addr")
		}
	case "firestore":
		if cfg.Firestore.ProjectID == "" {
			invalid = append(invalid, "Firestore.ProjectID")
		}
	default:
		invalid = append(invalid, "Idempotency.Store")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		invalid = append(invalid, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		invalid = append(invalid, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		invalid = append(invalid, "Idempotency.CleanupBatchSize")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: dedupe(invalid)}
	}
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	if len(required) == 0 {
		return nil
	}
	missing := make([]missingSecret, 0, len(required))
	seen := make(map[string]struct{})
	for _, name := range required {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		if value := strings.TrimSpace(resolved[trimmed]); value != "" {
			continue
		}
		missing = append(missing, missingSecret{
			name:     trimmed,
			redacted: redactSecretName(trimmed),
		})
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{secrets: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
