package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Auth  AuthConfig
	Store StoreConfig
	Mongo MongoConfig
	Redis RedisConfig
	Seed  SeedConfig
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET, required"`
	JWTAlgorithm   string        `env:"JWT_ALGORITHM,   default=HS256"`
	JWTIssuer      string        `env:"JWT_ISSUER,      default=classifieds"`
	TokenTTL       time.Duration `env:"TOKEN_TTL,       default=30m"`
	PasswordPepper string        `env:"PASSWORD_PEPPER"`
	BcryptCost     int           `env:"BCRYPT_COST,     default=10"`
}

type StoreConfig struct {
	Backend    string `env:"STORE_BACKEND, default=memory"`
	SQLitePath string `env:"SQLITE_PATH,   default=classifieds.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=classifieds"`
}

// RedisConfig configures the idempotency store. An empty Addr keeps
// idempotency keys in process memory.
type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

// SeedConfig names the accounts created at startup when absent.
type SeedConfig struct {
	AdminUsername string `env:"SEED_ADMIN_USERNAME"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD"`
	UserUsername  string `env:"SEED_USER_USERNAME"`
	UserPassword  string `env:"SEED_USER_PASSWORD"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through lookuper and validates it.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment reports whether logs should be human readable.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory, BackendSQLite, BackendMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}
	switch c.Auth.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported JWT_ALGORITHM %q", c.Auth.JWTAlgorithm))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if (c.Seed.AdminUsername == "") != (c.Seed.AdminPassword == "") {
		errs = append(errs, errors.New("SEED_ADMIN_USERNAME and SEED_ADMIN_PASSWORD must be set together"))
	}
	if (c.Seed.UserUsername == "") != (c.Seed.UserPassword == "") {
		errs = append(errs, errors.New("SEED_USER_USERNAME and SEED_USER_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// String renders the configuration for logging with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"port=%s env=%s log_level=%s store=%s jwt_algorithm=%s jwt_issuer=%s token_ttl=%s jwt_secret=%s pepper=%s redis=%s redis_password=%s seed_admin=%s seed_user=%s",
		c.Port, c.Env, c.LogLevel, c.Store.Backend,
		c.Auth.JWTAlgorithm, c.Auth.JWTIssuer, c.Auth.TokenTTL,
		mask(c.Auth.JWTSecret), mask(c.Auth.PasswordPepper),
		c.Redis.Addr, mask(c.Redis.Password),
		c.Seed.AdminUsername, c.Seed.UserUsername,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}
