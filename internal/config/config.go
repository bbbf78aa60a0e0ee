package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CAFE_SERVER_PORT
const EnvPrefix = "CAFE"

// DefaultPath is used when CAFE_CONFIG is unset
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Registry RegistryConfig `mapstructure:"registry"`
	Flow     FlowConfig     `mapstructure:"flow"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Mode         string        `mapstructure:"mode"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RegistryConfig holds tax registry client configuration
type RegistryConfig struct {
	// URLTemplate must contain the {cufe} placeholder
	URLTemplate string        `mapstructure:"url_template"`
	QRBaseURL   string        `mapstructure:"qr_base_url"` // also the only origin QR links may point at
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxPageSize int64         `mapstructure:"max_page_size"`
}

// FlowConfig holds import flow lifecycle settings
type FlowConfig struct {
	IdleTTL             time.Duration `mapstructure:"idle_ttl"`
	CompletedResetDelay time.Duration `mapstructure:"completed_reset_delay"`
	StoreMatchTimeout   time.Duration `mapstructure:"store_match_timeout"`
}

// ArchiveConfig controls raw XML archiving
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configPath, applies CAFE_* environment overrides and validates.
// An empty configPath loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.path", "data/cafe.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	v.SetDefault("registry.url_template", "https://dgi-fep.mef.gob.pa/Consultas/FacturasPorCUFE?CUFE={cufe}")
	v.SetDefault("registry.qr_base_url", "https://dgi-fep.mef.gob.pa/Consultas/FacturasPorQR")
	v.SetDefault("registry.user_agent", "cafe-importer/1.0 (+invoice import)")
	v.SetDefault("registry.timeout", 20*time.Second)
	v.SetDefault("registry.max_page_size", 10<<20)

	v.SetDefault("flow.idle_ttl", 30*time.Minute)
	v.SetDefault("flow.completed_reset_delay", 5*time.Second)
	v.SetDefault("flow.store_match_timeout", 2*time.Second)

	v.SetDefault("archive.enabled", true)
	v.SetDefault("archive.dir", "data/archive")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the keys whose env names don't follow the prefix rule
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.path", "CAFE_DB_PATH", "CAFE_DATABASE_PATH")
	_ = v.BindEnv("logger.level", "CAFE_LOG_LEVEL", "CAFE_LOGGER_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if !strings.Contains(c.Registry.URLTemplate, "{cufe}") {
		return fmt.Errorf("registry.url_template must contain {cufe}")
	}
	if _, err := url.Parse(strings.ReplaceAll(c.Registry.URLTemplate, "{cufe}", "x")); err != nil {
		return fmt.Errorf("registry.url_template is not a valid URL: %w", err)
	}
	if c.Registry.QRBaseURL == "" {
		return fmt.Errorf("registry.qr_base_url is required")
	}
	if c.Registry.Timeout <= 0 {
		return fmt.Errorf("registry.timeout must be positive")
	}

	if c.Flow.IdleTTL <= 0 {
		return fmt.Errorf("flow.idle_ttl must be positive")
	}
	if c.Flow.CompletedResetDelay < 0 {
		return fmt.Errorf("flow.completed_reset_delay must not be negative")
	}

	if c.Archive.Enabled && c.Archive.Dir == "" {
		return fmt.Errorf("archive.dir is required when archiving is enabled")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console")
	}

	return nil
}
