package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Result store backends selectable with results.backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type Config struct {
	Server struct {
		Port            string `yaml:"port"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		AllowedOrigins  string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Quiz struct {
		TTL       string `yaml:"ttl"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"quiz"`
	Results struct {
		Backend     string `yaml:"backend"`
		SaveTimeout string `yaml:"save_timeout"`
	} `yaml:"results"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
}

// Load reads YAML config from path. A missing file yields the defaults so the
// service can start with nothing but flags and environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints that yaml decoding cannot.
func (c Config) Validate() error {
	switch c.ResultsBackend() {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return errors.New("results.backend postgres requires postgres.url")
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return errors.New("results.backend mongo requires mongo.uri")
		}
	default:
		return fmt.Errorf("unknown results.backend %q", c.Results.Backend)
	}
	return nil
}

// ResultsBackend returns the configured backend, defaulting to postgres when a
// database is configured and memory otherwise.
func (c Config) ResultsBackend() string {
	if c.Results.Backend != "" {
		return c.Results.Backend
	}
	if c.Postgres.URL != "" {
		return BackendPostgres
	}
	return BackendMemory
}

// MongoDatabase returns the configured database name or the default.
func (c Config) MongoDatabase() string {
	if c.Mongo.Database == "" {
		return "typologylab"
	}
	return c.Mongo.Database
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
