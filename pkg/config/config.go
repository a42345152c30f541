package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Branch  BranchConfig
	Store   StoreConfig
	Redis   RedisConfig
	Metrics MetricsConfig
	CORS    CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Store.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env  string `envconfig:"ELTAFAWOOK_APP_ENV" default:"dev"`
	Host string `envconfig:"ELTAFAWOOK_APP_HOST" default:"127.0.0.1"`
	Port string `envconfig:"ELTAFAWOOK_APP_PORT" default:"8088"`

	LogLevel     string `envconfig:"ELTAFAWOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ELTAFAWOOK_LOG_WARN_STACK" default:"false"`
}

// Addr is the listen address; the host defaults to loopback so only the local
// operator reaches the signed-in session.
func (a AppConfig) Addr() string {
	return net.JoinHostPort(strings.TrimSpace(a.Host), a.Port)
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points at the remote bookshop REST API.
type APIConfig struct {
	BaseURL string `envconfig:"ELTAFAWOOK_API_BASE_URL" required:"true"`
	// Timeout of zero leaves requests bounded only by the caller's context.
	Timeout time.Duration `envconfig:"ELTAFAWOOK_API_TIMEOUT" default:"0s"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(a.BaseURL))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvAPIBaseURL)
	}
	if a.Timeout < 0 {
		return fmt.Errorf("%s must not be negative", EnvAPITimeout)
	}
	return nil
}

type BranchConfig struct {
	DefaultCode      string `envconfig:"ELTAFAWOOK_DEFAULT_BRANCH_CODE" default:"BAN"`
	KindergartenCode string `envconfig:"ELTAFAWOOK_KG_BRANCH_CODE" default:"QAL"`
}

// StoreConfig configures the local operator store (settings, remembered session).
type StoreConfig struct {
	Driver      string `envconfig:"ELTAFAWOOK_STORE_DRIVER" default:"sqlite"`
	DSN         string `envconfig:"ELTAFAWOOK_STORE_DSN"`
	SQLitePath  string `envconfig:"ELTAFAWOOK_STORE_SQLITE_PATH" default:"eltafawook-admin.db"`
	AutoMigrate bool   `envconfig:"ELTAFAWOOK_STORE_AUTO_MIGRATE" default:"true"`

	MaxOpenConns    int           `envconfig:"ELTAFAWOOK_STORE_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"ELTAFAWOOK_STORE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"ELTAFAWOOK_STORE_CONN_MAX_LIFETIME" default:"1h"`
}

func (s *StoreConfig) ensureDSN() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = StoreDriverSQLite
	}
	switch s.Driver {
	case StoreDriverSQLite:
		if s.DSN == "" {
			s.DSN = fmt.Sprintf("file:%s?_foreign_keys=on", s.SQLitePath)
		}
		return nil
	case StoreDriverPostgres:
		if s.DSN == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvStoreDSN, EnvStoreDriver, StoreDriverPostgres)
		}
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvStoreDriver, StoreDriverSQLite, StoreDriverPostgres)
	}
}

// RedisConfig is optional; when neither URL nor address is set availability
// snapshots stay in process memory.
type RedisConfig struct {
	URL          string        `envconfig:"ELTAFAWOOK_REDIS_URL"`
	Address      string        `envconfig:"ELTAFAWOOK_REDIS_ADDR"`
	Password     string        `envconfig:"ELTAFAWOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ELTAFAWOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ELTAFAWOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ELTAFAWOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ELTAFAWOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ELTAFAWOOK_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"ELTAFAWOOK_REDIS_WRITE_TIMEOUT" default:"3s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"ELTAFAWOOK_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"ELTAFAWOOK_METRICS_PATH" default:"/metrics"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ELTAFAWOOK_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}
