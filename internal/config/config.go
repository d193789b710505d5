// Package config loads and validates search configuration via Viper.
package config

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Output kinds.
const (
	OutputFile     = "file"
	OutputPostgres = "postgres"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Output  OutputConfig  `mapstructure:"output"`
	Source  SourceConfig  `mapstructure:"source"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

// SearchConfig governs the worker pool and the word predicate.
type SearchConfig struct {
	Workers      int    `mapstructure:"workers"`
	Pattern      string `mapstructure:"pattern"`
	TopN         int    `mapstructure:"top_n"`
	HTMLTextOnly bool   `mapstructure:"html_text_only"`
}

// HTTPConfig configures page retrieval.
type HTTPConfig struct {
	TimeoutMs     int               `mapstructure:"timeout_ms"`
	Headers       map[string]string `mapstructure:"headers"`
	UserAgent     string            `mapstructure:"user_agent"`
	RespectRobots bool              `mapstructure:"respect_robots"`
	PerHostRPS    float64           `mapstructure:"per_host_rps"`
	PerHostBurst  int               `mapstructure:"per_host_burst"`
	MaxBodyBytes  int               `mapstructure:"max_body_bytes"`
}

// OutputConfig selects where records are written.
type OutputConfig struct {
	Kind     string         `mapstructure:"kind"`
	Path     string         `mapstructure:"path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig controls the Postgres record writer.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// SourceConfig describes where the URL list comes from and how to parse it.
type SourceConfig struct {
	URL       string   `mapstructure:"url"`
	Delimiter string   `mapstructure:"delimiter"`
	Field     int      `mapstructure:"field"`
	Scheme    string   `mapstructure:"scheme"`
	URLs      []string `mapstructure:"urls"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ServerConfig controls the optional status server. Empty Addr disables it.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.workers", 20)
	v.SetDefault("search.pattern", `\bs[a-z]*[aeiou][a-z]*s\b`)
	v.SetDefault("search.top_n", 3)
	v.SetDefault("search.html_text_only", false)
	v.SetDefault("http.timeout_ms", 3000)
	v.SetDefault("http.headers", map[string]string{})
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.per_host_rps", 0)
	v.SetDefault("http.per_host_burst", 1)
	v.SetDefault("http.max_body_bytes", 0)
	v.SetDefault("output.kind", OutputFile)
	v.SetDefault("output.path", "results.txt")
	v.SetDefault("output.postgres.table", "search_results")
	v.SetDefault("source.url", "https://s3.amazonaws.com/fieldlens-public/urls.txt")
	v.SetDefault("source.delimiter", ",")
	v.SetDefault("source.field", 1)
	v.SetDefault("source.scheme", "https://")
	v.SetDefault("logging.development", true)
	v.SetDefault("server.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Search.Workers <= 0 {
		return fmt.Errorf("search.workers must be > 0")
	}
	if c.Search.TopN <= 0 {
		return fmt.Errorf("search.top_n must be > 0")
	}
	if _, err := regexp.Compile("(?i)" + c.Search.Pattern); err != nil {
		return fmt.Errorf("search.pattern is invalid: %w", err)
	}
	if c.HTTP.TimeoutMs <= 0 {
		return fmt.Errorf("http.timeout_ms must be > 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	if c.HTTP.PerHostRPS < 0 {
		return fmt.Errorf("http.per_host_rps must be >= 0")
	}
	switch c.Output.Kind {
	case OutputFile, "":
		if strings.TrimSpace(c.Output.Path) == "" {
			return fmt.Errorf("output.path must be set for the file output")
		}
	case OutputPostgres:
		if c.Output.Postgres.DSN == "" {
			return fmt.Errorf("output.postgres.dsn must be set for the postgres output")
		}
	default:
		return fmt.Errorf("output.kind %q is not supported", c.Output.Kind)
	}
	if len(c.Source.URLs) == 0 {
		if c.Source.URL == "" {
			return fmt.Errorf("source.url or source.urls must be set")
		}
		if c.Source.Delimiter == "" {
			return fmt.Errorf("source.delimiter must not be empty")
		}
		if c.Source.Field < 0 {
			return fmt.Errorf("source.field must be >= 0")
		}
	}
	return nil
}

// FetchTimeout converts the millisecond timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutMs) * time.Millisecond
}

// RequestHeaders returns the configured headers in canonical form.
func (c Config) RequestHeaders() http.Header {
	h := make(http.Header, len(c.HTTP.Headers))
	for k, v := range c.HTTP.Headers {
		h.Set(k, v)
	}
	return h
}
