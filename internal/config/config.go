package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverMongo     = "mongo"
	DriverFirestore = "firestore"
	DriverSQLite    = "sqlite"

	LedgerStore    = "store"
	LedgerSupabase = "supabase"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver     string `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoDBURI      string `env:"MONGODB_URI"`
	MongoDBPassword string `env:"MONGODB_PASSWORD"`
	MongoDBDatabase string `env:"MONGODB_DATABASE" envDefault:"whosin"`
	FirebaseProject string `env:"FIREBASE_PROJECT_ID"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	SQLitePath      string `env:"SQLITE_PATH" envDefault:"whosin.db"`

	VoterLedger     string `env:"VOTER_LEDGER" envDefault:"store"`
	SupabaseURL     string `env:"SUPABASE_URL"`
	SupabaseAnonKey string `env:"SUPABASE_URL_ANON_KEY"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RateLimit     string `env:"RATE_LIMIT" envDefault:"30-M"`

	RSVPSecret        string        `env:"RSVP_SECRET"`
	RSVPWindow        time.Duration `env:"RSVP_WINDOW" envDefault:"1h"`
	SignatureMaxSkew  time.Duration `env:"SIGNATURE_MAX_SKEW" envDefault:"5m"`
	VoterTokenSecret  string        `env:"VOTER_TOKEN_SECRET"`
	VoterTokenTTL     time.Duration `env:"VOTER_TOKEN_TTL" envDefault:"1h"`
	RequireVoterToken bool          `env:"REQUIRE_VOTER_TOKEN" envDefault:"false"`

	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	OTLPEndpoint string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.VoterLedger = strings.ToLower(strings.TrimSpace(cfg.VoterLedger))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the keys each selected backend needs.
func (c *Config) Validate() error {
	if c.RSVPSecret == "" {
		return fmt.Errorf("RSVP_SECRET is required")
	}
	if c.RSVPWindow <= 0 {
		return fmt.Errorf("RSVP_WINDOW must be positive")
	}
	if c.SignatureMaxSkew < 0 {
		return fmt.Errorf("SIGNATURE_MAX_SKEW must not be negative")
	}

	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoDBURI == "" {
			return fmt.Errorf("MONGODB_URI is required")
		}
	case DriverFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (expected mongo, firestore, sqlite)", c.StoreDriver)
	}

	switch c.VoterLedger {
	case LedgerStore:
	case LedgerSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required")
		}
		if c.SupabaseAnonKey == "" {
			return fmt.Errorf("SUPABASE_URL_ANON_KEY is required")
		}
	default:
		return fmt.Errorf("unsupported VOTER_LEDGER %q (expected store, supabase)", c.VoterLedger)
	}

	if c.RequireVoterToken && c.VoterTokenSecret == "" {
		return fmt.Errorf("VOTER_TOKEN_SECRET is required when REQUIRE_VOTER_TOKEN is set")
	}
	return nil
}

// TokenSecret falls back to the RSVP secret when no dedicated voter token
// secret is configured.
func (c *Config) TokenSecret() []byte {
	if c.VoterTokenSecret != "" {
		return []byte(c.VoterTokenSecret)
	}
	return []byte(c.RSVPSecret)
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
