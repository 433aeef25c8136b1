package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vinodismyname/salesdash/pkg/validation"
)

// EnvPrefix namespaces environment overrides, e.g. SALESDASH_HTTP_ADDR.
const EnvPrefix = "SALESDASH"

// Config is the complete runtime configuration.
type Config struct {
	Source   string `mapstructure:"source" validate:"required,source"`
	Title    string `mapstructure:"title"`
	Subtitle string `mapstructure:"subtitle"`

	PreviewRows int `mapstructure:"preview_rows" validate:"min=1,max=500"`

	Schema Schema `mapstructure:"schema"`
	HTTP   HTTP   `mapstructure:"http"`
	Limits Limits `mapstructure:"limits"`
	Loader Loader `mapstructure:"loader"`
	MCP    MCP    `mapstructure:"mcp"`
	Log    Log    `mapstructure:"log"`
}

// Schema names the columns the pipeline relies on.
type Schema struct {
	Measure string `mapstructure:"measure" validate:"required"`
	Country string `mapstructure:"country" validate:"required"`
	Segment string `mapstructure:"segment" validate:"required"`
	Date    string `mapstructure:"date"`
}

type HTTP struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimit       float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst       int           `mapstructure:"rate_burst" validate:"gte=0"`
}

type Limits struct {
	MaxConcurrentRequests int           `mapstructure:"max_concurrent_requests" validate:"min=1"`
	MaxConcurrentLoads    int           `mapstructure:"max_concurrent_loads" validate:"min=1"`
	OperationTimeout      time.Duration `mapstructure:"operation_timeout" validate:"gte=0"`
	AcquireTimeout        time.Duration `mapstructure:"acquire_timeout" validate:"gte=0"`
	// MaxPreviewRows caps the rows a single preview request may ask for.
	MaxPreviewRows int `mapstructure:"max_preview_rows" validate:"min=1"`
}

type Loader struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	CleanupEvery time.Duration `mapstructure:"cleanup_every" validate:"gte=0"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"gte=0"`
	MaxBytes     int64         `mapstructure:"max_bytes" validate:"gte=0"`
	// AllowedDirs restricts local file sources. Empty disables local files.
	AllowedDirs []string `mapstructure:"allowed_dirs"`
}

// MCP configures the tool server.
type MCP struct {
	// Model sizes previews against its context window.
	Model         string   `mapstructure:"model"`
	DisabledTools []string `mapstructure:"disabled_tools"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Load reads configuration from defaults, an optional file and the environment.
// Precedence: env > config file > defaults. Command flags are applied by callers.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("salesdash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if msg := validation.ValidateStruct(c); msg != "" {
		return fmt.Errorf("config: %s", msg)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source", DefaultSourceURL)
	v.SetDefault("title", DefaultTitle)
	v.SetDefault("subtitle", DefaultSubtitle)
	v.SetDefault("preview_rows", DefaultPreviewRows)

	v.SetDefault("schema.measure", DefaultMeasureColumn)
	v.SetDefault("schema.country", DefaultCountryColumn)
	v.SetDefault("schema.segment", DefaultSegmentColumn)
	v.SetDefault("schema.date", DefaultDateColumn)

	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("http.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.rate_limit", DefaultRateLimit)
	v.SetDefault("http.rate_burst", DefaultRateBurst)

	v.SetDefault("limits.max_concurrent_requests", DefaultMaxConcurrentRequests)
	v.SetDefault("limits.max_concurrent_loads", DefaultMaxConcurrentLoads)
	v.SetDefault("limits.operation_timeout", DefaultOperationTimeout)
	v.SetDefault("limits.acquire_timeout", DefaultAcquireRequestTimeout)
	v.SetDefault("limits.max_preview_rows", DefaultMaxPreviewRows)

	v.SetDefault("loader.cache_ttl", DefaultCacheIdleTTL)
	v.SetDefault("loader.cleanup_every", DefaultCacheCleanupPeriod)
	v.SetDefault("loader.fetch_timeout", DefaultFetchTimeout)
	v.SetDefault("loader.max_bytes", DefaultMaxSourceBytes)
	v.SetDefault("loader.allowed_dirs", []string{})

	v.SetDefault("mcp.model", DefaultModel)
	v.SetDefault("mcp.disabled_tools", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
