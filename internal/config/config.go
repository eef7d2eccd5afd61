package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// Config holds every runtime setting of the bot, read from the environment.
type Config struct {
	TelegramToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	GeoProvider   string `envconfig:"GEO_PROVIDER" default:"here"`
	HereAPIKey    string `envconfig:"HERE_API_KEY"`
	MapboxToken   string `envconfig:"MAPBOX_ACCESS_TOKEN"`

	AdminGroupID int64  `envconfig:"ADMIN_GROUP_ID" required:"true"`
	AdminIDs     IDList `envconfig:"ADMIN_IDS"`

	Env  string `envconfig:"APP_ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8443"`
	URL  string `envconfig:"APP_URL"`

	APIToken    string   `envconfig:"API_TOKEN"`
	JWTSecret   string   `envconfig:"JWT_SECRET"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseDSN   string `envconfig:"DATABASE_DSN"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	StaleThreshold  time.Duration `envconfig:"STALE_THRESHOLD" default:"5m"`
	MonitorInterval time.Duration `envconfig:"MONITOR_INTERVAL" default:"60s"`
	PromptTimeout   time.Duration `envconfig:"PROMPT_TIMEOUT" default:"5m"`
}

// IDList is a comma-separated list of Telegram user IDs. Blank items are skipped.
type IDList []int64

// Decode implements envconfig.Decoder.
func (l *IDList) Decode(value string) error {
	ids, err := ParseIDList(value)
	if err != nil {
		return err
	}
	*l = ids
	return nil
}

// ParseIDList parses "1, 2,3" into []int64{1, 2, 3}.
func ParseIDList(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using process environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.AdminIDs) == 0 {
		log.Warn("ADMIN_IDS is empty: no user will be able to run admin commands")
	}
	return &cfg, nil
}

// Validate checks cross-field requirements envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	c.GeoProvider = strings.ToLower(strings.TrimSpace(c.GeoProvider))
	switch c.GeoProvider {
	case ProviderHere:
		if c.HereAPIKey == "" {
			errs = append(errs, errors.New("HERE_API_KEY is required for GEO_PROVIDER=here"))
		}
	case ProviderMapbox:
		if c.MapboxToken == "" {
			errs = append(errs, errors.New("MAPBOX_ACCESS_TOKEN is required for GEO_PROVIDER=mapbox"))
		}
	case ProviderHybrid:
		if c.HereAPIKey == "" || c.MapboxToken == "" {
			errs = append(errs, errors.New("GEO_PROVIDER=hybrid requires both HERE_API_KEY and MAPBOX_ACCESS_TOKEN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GEO_PROVIDER %q", c.GeoProvider))
	}

	if c.IsProduction() && c.URL == "" {
		errs = append(errs, errors.New("APP_URL is required when APP_ENV=production"))
	}
	if c.StaleThreshold <= 0 || c.MonitorInterval <= 0 || c.PromptTimeout <= 0 {
		errs = append(errs, errors.New("STALE_THRESHOLD, MONITOR_INTERVAL and PROMPT_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the bot should receive updates through a webhook.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// WebhookPath is the route Telegram posts updates to.
func (c *Config) WebhookPath() string {
	return "/bot" + c.TelegramToken
}

// WebhookURL is the public URL registered with Telegram.
func (c *Config) WebhookURL() string {
	return strings.TrimRight(c.URL, "/") + c.WebhookPath()
}

// SetupLogging configures logrus from LOG_LEVEL and APP_ENV.
func (c *Config) SetupLogging() {
	if c.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, falling back to info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
