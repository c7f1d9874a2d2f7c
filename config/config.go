package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	AuthModeJWT      = "jwt"
	AuthModeSupabase = "supabase"
	AuthModeOIDC     = "oidc"

	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	ImageProviderReplicate   = "replicate"
	ImageProviderPlaceholder = "placeholder"
)

type Config struct {
	Port       string `envconfig:"PORT" default:"8080"`
	AppEnv     string `envconfig:"APP_ENV" default:"development"`
	CORSOrigin string `envconfig:"CORS_ORIGIN" default:"*"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	DBURL       string `envconfig:"DB_URL"`

	Auth      AuthConfig
	Replicate ReplicateConfig
	ImageGen  ImageGenConfig
	Logger    LoggerConfig

	DefaultStyle string `envconfig:"DEFAULT_STYLE" default:"shonen/anime graphic novel style that will appeal to 10 year old boys"`
}

type AuthConfig struct {
	Mode              string        `envconfig:"AUTH_MODE" default:"jwt"`
	JWTSecret         string        `envconfig:"SUPABASE_JWT_SECRET"`
	JWTAudience       string        `envconfig:"SUPABASE_JWT_AUDIENCE" default:"authenticated"`
	SupabaseURL       string        `envconfig:"SUPABASE_URL"`
	SupabaseAnonKey   string        `envconfig:"SUPABASE_ANON_KEY"`
	OIDCIssuerURL     string        `envconfig:"OIDC_ISSUER_URL"`
	OIDCClientID      string        `envconfig:"OIDC_CLIENT_ID"`
	VerifyHTTPTimeout time.Duration `envconfig:"AUTH_HTTP_TIMEOUT" default:"10s"`
}

type ReplicateConfig struct {
	APIToken string        `envconfig:"REPLICATE_API_TOKEN"`
	Model    string        `envconfig:"REPLICATE_MODEL" default:"black-forest-labs/flux-schnell"`
	BaseURL  string        `envconfig:"REPLICATE_BASE_URL" default:"https://api.replicate.com/v1"`
	Timeout  time.Duration `envconfig:"REPLICATE_TIMEOUT" default:"120s"`
}

type ImageGenConfig struct {
	Provider string        `envconfig:"IMAGE_PROVIDER" default:"replicate"`
	Interval time.Duration `envconfig:"IMAGE_GEN_INTERVAL" default:"500ms"`
	Burst    int           `envconfig:"IMAGE_GEN_BURST" default:"1"`
}

type LoggerConfig struct {
	Level    string   `envconfig:"LOG_LEVEL" default:"info"`
	Encoding string   `envconfig:"LOG_ENCODING"`
	Output   []string `envconfig:"LOG_OUTPUT" default:"stdout"`
}

// LoadEnv reads .env (if present) and the process environment.
func LoadEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings each selected mode depends on.
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	c.Auth.Mode = strings.ToLower(c.Auth.Mode)
	c.ImageGen.Provider = strings.ToLower(c.ImageGen.Provider)

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DBURL == "" {
			return missing("DB_URL")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return missing("SUPABASE_JWT_SECRET")
		}
	case AuthModeSupabase:
		if c.Auth.SupabaseURL == "" {
			return missing("SUPABASE_URL")
		}
		if c.Auth.SupabaseAnonKey == "" {
			return missing("SUPABASE_ANON_KEY")
		}
	case AuthModeOIDC:
		if c.Auth.OIDCIssuerURL == "" {
			return missing("OIDC_ISSUER_URL")
		}
		if c.Auth.OIDCClientID == "" {
			return missing("OIDC_CLIENT_ID")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.Auth.Mode)
	}

	switch c.ImageGen.Provider {
	case ImageProviderReplicate:
		if c.Replicate.APIToken == "" {
			return missing("REPLICATE_API_TOKEN")
		}
	case ImageProviderPlaceholder:
	default:
		return fmt.Errorf("unsupported IMAGE_PROVIDER %q", c.ImageGen.Provider)
	}

	if c.ImageGen.Burst < 1 {
		c.ImageGen.Burst = 1
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func missing(key string) error {
	return fmt.Errorf("missing required environment variable: %s", key)
}
