package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultAppName     = "documan"
	defaultAppEnv      = "development"
	defaultLogLevel    = "info"
	defaultAPIBaseURL  = "https://apis.allsoft.co/api/documentManagement"
	defaultHTTPTimeout = 30 * time.Second
	defaultPort        = "5000"
	defaultOTPTTL      = 5 * time.Minute
	defaultTokenTTL    = 7 * 24 * time.Hour
	defaultCredTTL     = 7 * 24 * time.Hour

	baseURLEnvVar     = "DOCUMAN_API_BASE_URL"
	credentialDirVar  = "DOCUMAN_CREDENTIAL_DIR"
	demoLoginEnvVar   = "DOCUMAN_DEMO_LOGIN"
	httpTimeoutEnvVar = "DOCUMAN_HTTP_TIMEOUT"
	registeredListVar = "DOCUMAN_REGISTERED_MOBILES"
	tokenSecretEnvVar = "TOKEN_SECRET"
	devTokenSecret    = "documan-dev-secret"
)

// Config captures client runtime configuration loaded from environment variables.
type Config struct {
	AppName       string
	AppEnv        string
	LogLevel      string
	APIBaseURL    string
	HTTPTimeout   time.Duration
	CredentialDir string
	CredentialTTL time.Duration
	DemoLogin     bool
}

// ServerConfig captures the development stub server configuration.
type ServerConfig struct {
	AppName           string
	AppEnv            string
	LogLevel          string
	Port              string
	DatabaseURL       string
	RedisURL          string
	TokenSecret       string
	TokenTTL          time.Duration
	OTPTTL            time.Duration
	RegisteredMobiles []string
}

// Load reads client configuration from the environment. The base URL falls
// back to the hosted endpoint so a bare binary still talks to the real API.
func Load() (Config, error) {
	cfg := Config{
		AppName:       defaultAppName,
		AppEnv:        getEnv("APP_ENV", defaultAppEnv),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		APIBaseURL:    strings.TrimRight(getEnv(baseURLEnvVar, defaultAPIBaseURL), "/"),
		HTTPTimeout:   defaultHTTPTimeout,
		CredentialDir: os.Getenv(credentialDirVar),
		CredentialTTL: defaultCredTTL,
		DemoLogin:     IsDev(getEnv("APP_ENV", defaultAppEnv)),
	}

	if v := os.Getenv(httpTimeoutEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", httpTimeoutEnvVar, err)
		}
		cfg.HTTPTimeout = d
	}

	if v := os.Getenv(demoLoginEnvVar); v != "" {
		cfg.DemoLogin = isTruthy(v)
	}

	// The demo bypass must be provably absent from production builds.
	if cfg.DemoLogin && !IsDev(cfg.AppEnv) {
		return Config{}, fmt.Errorf("%s must not be enabled when APP_ENV=%s", demoLoginEnvVar, cfg.AppEnv)
	}

	return cfg, nil
}

// LoadServer reads the development stub server configuration. DATABASE_URL
// and REDIS_URL are optional in development; in-memory fallbacks apply.
func LoadServer() (ServerConfig, error) {
	cfg := ServerConfig{
		AppName:     defaultAppName + "-devserver",
		AppEnv:      getEnv("APP_ENV", defaultAppEnv),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		Port:        getEnv("PORT", defaultPort),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		TokenSecret: getEnv(tokenSecretEnvVar, devTokenSecret),
		TokenTTL:    defaultTokenTTL,
		OTPTTL:      defaultOTPTTL,
	}

	if v := os.Getenv(registeredListVar); v != "" {
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.RegisteredMobiles = append(cfg.RegisteredMobiles, m)
			}
		}
	}

	if !IsDev(cfg.AppEnv) {
		if cfg.TokenSecret == devTokenSecret {
			return ServerConfig{}, fmt.Errorf("%s must be set when APP_ENV=%s", tokenSecretEnvVar, cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return ServerConfig{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c ServerConfig) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether env names a development environment.
func IsDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
