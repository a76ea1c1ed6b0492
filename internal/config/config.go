// Package config loads server settings from an optional YAML file and
// DATABRICKS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	apperrors "github.com/revodata/databricks-mcp-server/internal/errors"
)

// EnvPrefix is prepended to every environment variable, e.g.
// DATABRICKS_CLIENT_MAX_RETRIES for client.max_retries.
const EnvPrefix = "DATABRICKS"

// Config is the complete server configuration.
type Config struct {
	Host       string          `yaml:"host" mapstructure:"host" validate:"required"`
	Token      string          `yaml:"token" mapstructure:"token" validate:"required"`
	APIVersion string          `yaml:"api_version" mapstructure:"api_version" validate:"required"`
	Client     ClientConfig    `yaml:"client" mapstructure:"client"`
	Namespace  NamespaceConfig `yaml:"namespace" mapstructure:"namespace"`
	Tools      ToolsConfig     `yaml:"tools" mapstructure:"tools"`
	// MasksDir overrides embedded mask definitions file by file.
	MasksDir string       `yaml:"masks_dir" mapstructure:"masks_dir"`
	Server   ServerConfig `yaml:"server" mapstructure:"server"`
}

// ClientConfig bounds traffic to the workspace API.
type ClientConfig struct {
	MaxConcurrentRequests int           `yaml:"max_concurrent_requests" mapstructure:"max_concurrent_requests" validate:"min=1,max=256"`
	MaxRetries            int           `yaml:"max_retries" mapstructure:"max_retries" validate:"min=1,max=20"`
	BaseDelay             time.Duration `yaml:"base_delay" mapstructure:"base_delay" validate:"gt=0"`
	RequestTimeout        time.Duration `yaml:"request_timeout" mapstructure:"request_timeout" validate:"gt=0"`
	MaxPages              int           `yaml:"max_pages" mapstructure:"max_pages" validate:"min=1"`
}

// NamespaceConfig controls the table name cache.
type NamespaceConfig struct {
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gt=0"`
}

// ToolsConfig holds limits applied by the tool layer.
type ToolsConfig struct {
	MaxRunsPerJob int `yaml:"max_runs_per_job" mapstructure:"max_runs_per_job" validate:"min=1,max=1000"`
	// AggregationTimeout of zero means no deadline.
	AggregationTimeout time.Duration `yaml:"aggregation_timeout" mapstructure:"aggregation_timeout" validate:"gte=0"`
}

// ServerConfig selects the transport and log verbosity.
type ServerConfig struct {
	// HTTPAddr switches from stdio to streamable HTTP when set.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr"`
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`
	// RateLimit is HTTP requests per minute per client IP; zero disables it.
	RateLimit   int   `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	MaxBodySize int64 `yaml:"max_body_size" mapstructure:"max_body_size" validate:"min=1"`
}

var defaults = map[string]any{
	"api_version":                    "2.1",
	"client.max_concurrent_requests": 8,
	"client.max_retries":             5,
	"client.base_delay":              "500ms",
	"client.request_timeout":         "30s",
	"client.max_pages":               100,
	"namespace.ttl":                  "10m",
	"tools.max_runs_per_job":         25,
	"tools.aggregation_timeout":      "0s",
	"masks_dir":                      "",
	"server.http_addr":               "",
	"server.log_level":               "info",
	"server.rate_limit":              0,
	"server.max_body_size":           1 << 20,
}

// keys without a default still need an env binding so Unmarshal sees them.
var requiredKeys = []string{"host", "token"}

// NewViper returns a viper instance wired for env overrides and defaults.
// When configFile is empty, databricks-mcp.yaml is looked up in the working
// directory and in ~/.databricks-mcp.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("databricks-mcp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".databricks-mcp"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, key := range requiredKeys {
		_ = v.BindEnv(key)
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the config file (if any), applies env overrides and validates
// the result. A missing file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.NewConfigurationError("", fmt.Sprintf("failed to unmarshal config: %v", err))
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Token = strings.TrimSpace(cfg.Token)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile is NewViper followed by Load.
func LoadFile(configFile string) (*Config, error) {
	return Load(NewViper(configFile))
}

// Validate checks struct tag bounds. The first violation is reported as a
// ConfigurationError naming the environment variable that controls it.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		return name
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewConfigurationError("", err.Error())
	}
	fe := verrs[0]
	return apperrors.NewConfigurationError(EnvName(keyOf(fe)), describe(fe))
}

// EnvName maps a config key such as client.max_retries to its environment
// variable.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// keyOf strips the root struct name from the validator namespace.
func keyOf(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is not set"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "min", "gte":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be greater than %s, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// SlogLevel converts the configured log level.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.Server.LogLevel)
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
