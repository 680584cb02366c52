package app

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"officine_session"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	APIBaseURL  string        `envconfig:"API_BASE_URL" default:"http://127.0.0.1:8000/api"`
	APITimeout  time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
	APIRetryMax int           `envconfig:"API_RETRY_MAX" default:"2"`

	ProfileTTL      time.Duration `envconfig:"PROFILE_TTL" default:"5m"`
	ProfileWait     time.Duration `envconfig:"PROFILE_WAIT" default:"1500ms"`
	CounterInterval time.Duration `envconfig:"COUNTER_INTERVAL" default:"30s"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	LandingPath     string        `envconfig:"LANDING_PATH" default:"/dashboard"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	RateLimit          int      `envconfig:"RATE_LIMIT" default:"120"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("api base url must be provided")
	}
	if !strings.HasPrefix(cfg.LandingPath, "/") {
		return nil, errors.New("landing path must be absolute")
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
