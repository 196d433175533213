// Package config lê a configuração do processo a partir de variáveis de ambiente.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"genai-gateway/gateway/response"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// APIKey é a credencial do upstream. Ausente não derruba o processo:
	// cada requisição responde 500 até que seja configurada.
	APIKey string `env:"GEMINI_API_KEY"`

	Gateway     GatewayConfig     `envPrefix:"GATEWAY_"`
	Upstream    UpstreamConfig    `envPrefix:"UPSTREAM_"`
	Rate        RateConfig        `envPrefix:"RATE_"`
	Concurrency ConcurrencyConfig `envPrefix:"CONCURRENCY_"`
	Log         LogConfig         `envPrefix:"LOG_"`
	Metrics     MetricsConfig     `envPrefix:"METRICS_"`
}

type GatewayConfig struct {
	Path         string `env:"PATH" envDefault:"/"`
	Locale       string `env:"LOCALE" envDefault:"pt-BR"`
	MaxBodyBytes int64  `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

type UpstreamConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	Model   string        `env:"MODEL" envDefault:"gemini-2.0-flash"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type RateConfig struct {
	MaxRequests   int           `env:"MAX_REQUESTS" envDefault:"30"`
	Window        time.Duration `env:"WINDOW" envDefault:"60s"`
	KeyHeaders    []string      `env:"KEY_HEADERS" envSeparator:"," envDefault:"X-Forwarded-For,X-Nf-Client-Connection-Ip,Client-Ip"`
	KeyRemoteAddr bool          `env:"KEY_REMOTE_ADDR" envDefault:"false"`
	CleanupEvery  time.Duration `env:"CLEANUP_EVERY" envDefault:"2m"`
	AddHeaders    bool          `env:"ADD_HEADERS" envDefault:"false"`
	LogEvery      time.Duration `env:"LOG_EVERY" envDefault:"1s"`

	Stats StatsConfig `envPrefix:"STATS_"`
}

// StatsConfig: contadores de decisões no Redis (apenas estatística).
type StatsConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"false"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	Prefix        string        `env:"PREFIX" envDefault:"gateway:ratelimit:stats"`
	TTL           time.Duration `env:"TTL" envDefault:"24h"`
	Bucket        string        `env:"BUCKET" envDefault:"minute"`
	TrackKeys     bool          `env:"TRACK_KEYS" envDefault:"false"`
}

// ConcurrencyConfig limita chamadas simultâneas ao upstream. Max=0 desliga.
type ConcurrencyConfig struct {
	Max     int           `env:"MAX" envDefault:"0"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"0s"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

// Load lê o ambiente do processo.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom lê de um mapa em vez do ambiente (testes).
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(c *Config) error {
	if c.Rate.MaxRequests <= 0 {
		return errors.New("RATE_MAX_REQUESTS must be > 0")
	}
	if c.Rate.Window <= 0 {
		return errors.New("RATE_WINDOW must be > 0")
	}
	if c.Rate.Stats.Enabled && strings.TrimSpace(c.Rate.Stats.RedisAddr) == "" {
		return errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	if c.Concurrency.Max < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.Upstream.Timeout < 0 {
		return errors.New("UPSTREAM_TIMEOUT must be >= 0")
	}
	if !strings.HasPrefix(c.Gateway.Path, "/") {
		return errors.New("GATEWAY_PATH must start with /")
	}
	if c.Metrics.Enabled && (!strings.HasPrefix(c.Metrics.Path, "/") || c.Metrics.Path == c.Gateway.Path) {
		return errors.New("METRICS_PATH must start with / and differ from GATEWAY_PATH")
	}
	if _, err := response.NewTranslator(c.Gateway.Locale, c.Rate.Window); err != nil {
		return fmt.Errorf("GATEWAY_LOCALE: %w", err)
	}

	headers := c.Rate.KeyHeaders[:0]
	for _, h := range c.Rate.KeyHeaders {
		if h = strings.TrimSpace(h); h != "" && !slices.Contains(headers, h) {
			headers = append(headers, h)
		}
	}
	c.Rate.KeyHeaders = headers
	return nil
}
