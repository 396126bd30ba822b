package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	KurrentDB KurrentDBConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Records   RecordsConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	AllowedOrigins  []string
}

type DatabaseConfig struct {
	// URL takes precedence over the discrete fields when set.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// KurrentDBConfig holds configuration for KurrentDB (EventStoreDB).
type KurrentDBConfig struct {
	Enabled bool
	// Host is the KurrentDB server hostname
	Host string
	// Port is the gRPC port (default 2113)
	Port int
	// Insecure disables TLS (for development)
	Insecure bool
	Username string
	Password string
	// StreamPrefix is prepended to every stream name
	StreamPrefix string
}

type AuthConfig struct {
	// Enabled requires a valid bearer token on every API request.
	Enabled   bool
	JWTSecret string
	Issuer    string
	// SystemActor is used for unauthenticated development requests.
	SystemActor string
}

// StorageConfig configures the S3-compatible object store for case-update documents.
type StorageConfig struct {
	Driver    string // s3 or memory
	Region    string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string

	// OrphanTTL is how long an unattached upload survives a sweep.
	OrphanTTL     time.Duration
	SweepInterval time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	// LookupTTL bounds how long autocomplete results are cached.
	LookupTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string // console, json, both
}

type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// RecordsConfig holds case-record rules that vary per deployment.
type RecordsConfig struct {
	CaseNumberPrefix  string
	CaseNumberRetries int
	TimeZone          string
	StoreDriver       string // postgres or memory
}

// Location resolves the configured time zone, falling back to UTC.
func (r RecordsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from the environment, after loading a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 8080),
			Env:             getEnv("ENV", "development"),
			RequestTimeout:  getEnvDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodyBytes:    int64(getEnvInt("SERVER_MAX_BODY_BYTES", 20*1024*1024)),
			AllowedOrigins:  getEnvSlice("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "eden"),
			Password: getEnv("DB_PASSWORD", "eden"),
			Database: getEnv("DB_NAME", "eden"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		KurrentDB: KurrentDBConfig{
			Enabled:      getEnvBool("KURRENTDB_ENABLED", false),
			Host:         getEnv("KURRENTDB_HOST", "localhost"),
			Port:         getEnvInt("KURRENTDB_PORT", 2113),
			Insecure:     getEnvBool("KURRENTDB_INSECURE", true),
			Username:     getEnv("KURRENTDB_USERNAME", ""),
			Password:     getEnv("KURRENTDB_PASSWORD", ""),
			StreamPrefix: getEnv("KURRENTDB_STREAM_PREFIX", "eden"),
		},
		Auth: AuthConfig{
			Enabled:     getEnvBool("AUTH_ENABLED", false),
			JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			Issuer:      getEnv("JWT_ISSUER", ""),
			SystemActor: getEnv("AUTH_SYSTEM_ACTOR", "00000000-0000-0000-0000-000000000001"),
		},
		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", "memory"),
			Region:        getEnv("AWS_REGION", "us-east-1"),
			Endpoint:      getEnv("AWS_ENDPOINT", ""),
			Bucket:        getEnv("AWS_BUCKET", "eden-documents"),
			AccessKey:     getEnv("AWS_ACCESS_KEY", ""),
			SecretKey:     getEnv("AWS_SECRET_KEY", ""),
			Prefix:        getEnv("STORAGE_PREFIX", "incident_documents"),
			OrphanTTL:     getEnvDuration("STORAGE_ORPHAN_TTL", 6*time.Hour),
			SweepInterval: getEnvDuration("STORAGE_SWEEP_INTERVAL", time.Hour),
		},
		Redis: RedisConfig{
			Enabled:   getEnvBool("REDIS_ENABLED", false),
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			LookupTTL: getEnvDuration("REDIS_LOOKUP_TTL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvInt("RATE_LIMIT_RPS", 50),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 100),
		},
		Records: RecordsConfig{
			CaseNumberPrefix:  getEnv("RECORDS_CASE_NUMBER_PREFIX", "EDN"),
			CaseNumberRetries: getEnvInt("RECORDS_CASE_NUMBER_RETRIES", 3),
			TimeZone:          getEnv("RECORDS_TIMEZONE", "Asia/Manila"),
			StoreDriver:       getEnv("RECORDS_STORE", "postgres"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "s3", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Records.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown RECORDS_STORE %q", c.Records.StoreDriver)
	}
	switch c.Log.Format {
	case "console", "json", "both":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED is set")
	}
	if c.Records.CaseNumberRetries < 1 {
		c.Records.CaseNumberRetries = 1
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				result = append(result, v)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
