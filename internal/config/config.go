package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Auth        AuthConfig      `yaml:"auth"`
	CORS        CORSConfig      `yaml:"cors"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Logging     LoggingConfig   `yaml:"logging"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Environment string          `yaml:"environment" validate:"oneof=development test production"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

type DatabaseConfig struct {
	URI                string        `yaml:"uri"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Host               string        `yaml:"host"`
	AppName            string        `yaml:"app_name"`
	Name               string        `yaml:"name" validate:"required"`
	EventsCollection   string        `yaml:"events_collection" validate:"required"`
	JoinedCollection   string        `yaml:"joined_collection" validate:"required"`
	MaxPoolSize        int           `yaml:"max_pool_size" validate:"min=1"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
	NormalizeJoinedIDs bool          `yaml:"normalize_joined_ids"`
}

type AuthConfig struct {
	Provider                string        `yaml:"provider" validate:"oneof=firebase jwt"`
	FirebaseCredentialsFile string        `yaml:"firebase_credentials_file" validate:"required_if=Provider firebase"`
	FirebaseProjectID       string        `yaml:"firebase_project_id"`
	JWTSecret               string        `yaml:"jwt_secret" validate:"required_if=Provider jwt"`
	JWTExpiry               time.Duration `yaml:"jwt_expiry"`
}

type CORSConfig struct {
	AllowAllOrigins bool     `yaml:"allow_all_origins"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

type RateLimitConfig struct {
	PublicPerMinute        int      `yaml:"public_per_minute" validate:"min=0"`
	AuthenticatedPerMinute int      `yaml:"authenticated_per_minute" validate:"min=0"`
	TrustedProxyCIDRs      []string `yaml:"trusted_proxy_cidrs" validate:"dive,cidr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter" validate:"omitempty,oneof=stdout otlp none"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" validate:"min=0,max=1"`
}

// Defaults returns the configuration used when neither a file nor the
// environment sets a value.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Database: DatabaseConfig{
			AppName:            "Cluster0",
			Name:               "social_db",
			EventsCollection:   "events",
			JoinedCollection:   "joinedEvents",
			MaxPoolSize:        50,
			ConnectTimeout:     10 * time.Second,
			NormalizeJoinedIDs: true,
		},
		Auth: AuthConfig{
			Provider:  "firebase",
			JWTExpiry: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:        120,
			AuthenticatedPerMinute: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Exporter:     "stdout",
			ServiceName:  "social-events",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Environment: "development",
	}
}

// Load builds the configuration from defaults, an optional YAML file, a .env
// file in the working directory and finally the process environment.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)

	cfg.Database.URI = getEnv("DB_URI", cfg.Database.URI)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASS", cfg.Database.Password)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.AppName = getEnv("DB_APP_NAME", cfg.Database.AppName)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.EventsCollection = getEnv("DB_EVENTS_COLLECTION", cfg.Database.EventsCollection)
	cfg.Database.JoinedCollection = getEnv("DB_JOINED_COLLECTION", cfg.Database.JoinedCollection)
	cfg.Database.MaxPoolSize = getEnvInt("DB_MAX_POOL_SIZE", cfg.Database.MaxPoolSize)
	cfg.Database.ConnectTimeout = getEnvSeconds("DB_CONNECT_TIMEOUT_SECONDS", cfg.Database.ConnectTimeout)
	cfg.Database.NormalizeJoinedIDs = getEnvBool("DB_NORMALIZE_JOINED_IDS", cfg.Database.NormalizeJoinedIDs)

	cfg.Auth.Provider = strings.ToLower(getEnv("AUTH_PROVIDER", cfg.Auth.Provider))
	cfg.Auth.FirebaseCredentialsFile = getEnv("FIREBASE_CREDENTIALS_FILE",
		getEnv("GOOGLE_APPLICATION_CREDENTIALS", cfg.Auth.FirebaseCredentialsFile))
	cfg.Auth.FirebaseProjectID = getEnv("FIREBASE_PROJECT_ID", cfg.Auth.FirebaseProjectID)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	if hours := getEnvInt("JWT_EXPIRY_HOURS", 0); hours > 0 {
		cfg.Auth.JWTExpiry = time.Duration(hours) * time.Hour
	}

	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", cfg.Environment))

	if origins := getEnvList("CORS_ALLOWED_ORIGINS"); origins != nil {
		cfg.CORS.AllowedOrigins = origins
	}
	if !cfg.CORS.AllowAllOrigins {
		cfg.CORS.AllowAllOrigins = cfg.Environment != "production" && len(cfg.CORS.AllowedOrigins) == 0
	}

	cfg.RateLimit.PublicPerMinute = getEnvInt("RATE_LIMIT_PUBLIC", cfg.RateLimit.PublicPerMinute)
	cfg.RateLimit.AuthenticatedPerMinute = getEnvInt("RATE_LIMIT_AUTHENTICATED", cfg.RateLimit.AuthenticatedPerMinute)
	if cidrs := getEnvList("TRUSTED_PROXY_CIDRS"); cidrs != nil {
		cfg.RateLimit.TrustedProxyCIDRs = cidrs
	}

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = getEnv("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	cfg.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field rules the struct tags
// cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Database.URI == "" {
		if c.Database.User == "" || c.Database.Password == "" || c.Database.Host == "" {
			return fmt.Errorf("DB_URI or DB_USER, DB_PASS and DB_HOST are required")
		}
	}
	if c.Environment == "production" && len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in production")
	}
	if c.Auth.Provider == "jwt" {
		if c.Environment == "production" {
			return fmt.Errorf("AUTH_PROVIDER=jwt is not allowed in production")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
		}
	}
	return nil
}

// ConnectionURI returns the Mongo connection string, assembling it from its
// components when no full URI was configured.
func (d DatabaseConfig) ConnectionURI() string {
	if d.URI != "" {
		return d.URI
	}
	query := url.Values{}
	query.Set("retryWrites", "true")
	query.Set("w", "majority")
	if d.AppName != "" {
		query.Set("appName", d.AppName)
	}
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host,
		Path:     "/",
		RawQuery: query.Encode(),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	seconds := getEnvInt(key, 0)
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func getEnvList(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}
