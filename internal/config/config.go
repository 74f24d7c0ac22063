package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override. Nested keys use a
// double underscore, e.g. TERO__SERVER__PORT.
const EnvPrefix = "TERO"

const envSeparator = "__"

// Config holds the application configuration
type Config struct {
	Server       ServerConfig        `mapstructure:"server"`
	Auth0        Auth0Config         `mapstructure:"auth0"`
	DatabaseURL  string              `mapstructure:"database_url"`
	Integrations []IntegrationConfig `mapstructure:"integrations"`
	Log          LogConfig           `mapstructure:"log"`
	Telemetry    TelemetryConfig     `mapstructure:"telemetry"`
}

// ServerConfig controls the HTTP listener and in-process services.
type ServerConfig struct {
	Address  string `mapstructure:"address"`
	Port     int    `mapstructure:"port"`
	GSDomain string `mapstructure:"gs_domain"`
	PageSize int    `mapstructure:"page_size"`
	// Days a game may go unplayed before the purge job deletes it.
	ActiveGameRetention int           `mapstructure:"active_game_retention"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	CacheCapacity       int           `mapstructure:"cache_capacity"`
	WorkerCount         int           `mapstructure:"worker_count"`
	QueueSize           int           `mapstructure:"queue_size"`
	// Anonymous pseudo-user creations allowed per second.
	PseudoUserRate float64 `mapstructure:"pseudo_user_rate"`
}

// ListenAddr returns host:port for the HTTP server.
func (s ServerConfig) ListenAddr() string {
	return net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
}

// Auth0Config holds identity provider settings.
type Auth0Config struct {
	// Domain is the tenant base URL, e.g. "https://tero.eu.auth0.com/".
	Domain     string `mapstructure:"domain"`
	Audience   string `mapstructure:"audience"`
	ClientID   string `mapstructure:"client_id"`
	WebhookKey string `mapstructure:"webhook_key"`
}

// Issuer returns the expected "iss" claim (the domain with a trailing slash).
func (a Auth0Config) Issuer() string {
	return strings.TrimSuffix(a.Domain, "/") + "/"
}

// JWKSURL returns the location of the tenant's signing keys.
func (a Auth0Config) JWKSURL() string {
	return a.Issuer() + ".well-known/jwks.json"
}

// IntegrationConfig maps a machine-to-machine client id to an integration name.
type IntegrationConfig struct {
	Name    string `mapstructure:"name"`
	Subject string `mapstructure:"subject"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls OpenTelemetry export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure"`
	ServiceName  string `mapstructure:"service_name"`
}

var defaults = map[string]any{
	"server.address":               "127.0.0.1",
	"server.port":                  3000,
	"server.gs_domain":             "",
	"server.page_size":             20,
	"server.active_game_retention": 24,
	"server.cache_ttl":             "10m",
	"server.cache_capacity":        10_000,
	"server.worker_count":          4,
	"server.queue_size":            1024,
	"server.pseudo_user_rate":      5.0,
	"auth0.domain":                 "",
	"auth0.audience":               "",
	"auth0.client_id":              "",
	"auth0.webhook_key":            "",
	"database_url":                 "",
	"integrations":                 []map[string]any{},
	"log.level":                    "info",
	"log.format":                   "json",
	"telemetry.otlp_endpoint":      "",
	"telemetry.insecure":           false,
	"telemetry.service_name":       "tero-api",
}

var mandatory = []string{
	"server.gs_domain",
	"auth0.domain",
	"auth0.audience",
	"auth0.webhook_key",
	"database_url",
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + envSeparator + strings.ToUpper(strings.ReplaceAll(key, ".", envSeparator))
}

// Load reads the TOML file at path (or config.toml from the working directory
// and /etc/tero when path is empty), applies TERO__ environment overrides and
// validates mandatory keys.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/tero")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for _, key := range mandatory {
		if strings.TrimSpace(v.GetString(key)) == "" {
			return nil, fmt.Errorf("missing mandatory configuration key %q (env: %s)", key, EnvName(key))
		}
	}

	cfg := &Config{}
	hooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		integrationsFromStringHook(),
	)
	if err := v.Unmarshal(cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.PageSize <= 0 {
		return fmt.Errorf("server.page_size must be positive, got %d", c.Server.PageSize)
	}
	if c.Server.ActiveGameRetention <= 0 {
		return fmt.Errorf("server.active_game_retention must be positive, got %d", c.Server.ActiveGameRetention)
	}
	if c.Server.CacheTTL <= 0 {
		return fmt.Errorf("server.cache_ttl must be positive, got %s", c.Server.CacheTTL)
	}
	for i, in := range c.Integrations {
		if in.Name == "" || in.Subject == "" {
			return fmt.Errorf("integrations[%d] requires both name and subject", i)
		}
	}
	return nil
}

// integrationsFromStringHook lets TERO__INTEGRATIONS carry
// "name=subject,name=subject" since env vars cannot express TOML tables.
func integrationsFromStringHook() mapstructure.DecodeHookFunc {
	target := reflect.TypeOf([]IntegrationConfig{})
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != target {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []IntegrationConfig{}, nil
		}

		var out []IntegrationConfig
		for _, pair := range strings.Split(raw, ",") {
			name, subject, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				return nil, fmt.Errorf("integration %q must have the form name=subject", pair)
			}
			out = append(out, IntegrationConfig{Name: strings.TrimSpace(name), Subject: strings.TrimSpace(subject)})
		}
		return out, nil
	}
}
