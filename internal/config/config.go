package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Backend       BackendConfig       `yaml:"backend"`
	Policy        PolicyConfig        `yaml:"policy"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Submit        SubmitConfig        `yaml:"submit"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// BackendConfig selects where compiled model deployments are persisted.
type BackendConfig struct {
	Kind           string               `yaml:"kind"` // "http" or "postgres"
	BaseURL        string               `yaml:"base_url"`
	APIKey         string               `yaml:"api_key"`
	CreatePath     string               `yaml:"create_path"`
	Timeout        time.Duration        `yaml:"timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryInterval time.Duration `yaml:"recovery_interval"`
}

type PolicyConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

type RateLimitConfig struct {
	SubmitRPM int `yaml:"submit_rpm"`
}

const (
	SubmitAll   = "all"
	SubmitFirst = "first"
)

// SubmitConfig controls how many compiled requests a submission persists.
type SubmitConfig struct {
	Mode string `yaml:"mode"`
}

type NotificationsConfig struct {
	FeedKey  string `yaml:"feed_key"`
	FeedSize int64  `yaml:"feed_size"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8081,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 15 * time.Second,
			AllowedOrigins:   []string{"http://localhost:3000"},
			MaxBodyBytes:     1 << 20,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "aegis_admin",
			User:            "aegis",
			MaxOpenConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addresses: []string{"localhost:6379"},
			DB:        0,
			PoolSize:  10,
		},
		Telemetry: TelemetryConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
		Backend: BackendConfig{
			Kind:       "http",
			BaseURL:    "http://localhost:4000",
			CreatePath: "/model/new",
			Timeout:    30 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				RecoveryInterval: 15 * time.Second,
			},
		},
		Policy: PolicyConfig{
			Enabled:           false,
			BundlePath:        "/etc/aegis-admin/policies",
			EvaluationTimeout: 100 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			SubmitRPM: 30,
		},
		Submit: SubmitConfig{
			Mode: SubmitAll,
		},
		Notifications: NotificationsConfig{
			FeedKey:  "aegis:admin:notifications",
			FeedSize: 100,
		},
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case "http", "postgres":
	default:
		return fmt.Errorf("backend.kind must be http or postgres, got %q", c.Backend.Kind)
	}
	switch c.Submit.Mode {
	case SubmitAll, SubmitFirst:
	default:
		return fmt.Errorf("submit.mode must be %q or %q, got %q", SubmitAll, SubmitFirst, c.Submit.Mode)
	}
	return nil
}
