package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	envPrefix              = "ADMIN_"
	defaultEnvFile         = ".env"
	defaultAddr            = ":8080"
	defaultBasePath        = "/admin"
	defaultEnvironment     = "development"
	defaultIdleTimeout     = 30 * time.Minute
	defaultLifetime        = 12 * time.Hour
	defaultIdentityTimeout = 10 * time.Second
	defaultSubmitWait      = 5 * time.Second
	defaultViewIdleTTL     = 30 * time.Minute
	defaultMinPassword     = 6
	defaultLocale          = "en"
	defaultLogLevel        = "info"
	defaultMetricsPath     = "/metrics"
)

// Config captures the admin console runtime configuration by concern.
type Config struct {
	Server   ServerConfig
	Session  SessionConfig
	Firebase FirebaseConfig
	Identity IdentityConfig
	Login    LoginConfig
	Log      LogConfig
}

// ServerConfig configures the HTTP listener and routing.
type ServerConfig struct {
	Addr         string `validate:"required"`
	BasePath     string `validate:"required,startswith=/"`
	LoginPath    string `validate:"omitempty,startswith=/"`
	Environment  string `validate:"required"`
	MetricsPath  string `validate:"required"`
	SecureCookie bool
}

// SessionConfig configures the signed session cookie.
type SessionConfig struct {
	HashKey     string        `validate:"required,min=32"`
	BlockKey    string        `validate:"omitempty,len=16|len=24|len=32"`
	IdleTimeout time.Duration `validate:"gt=0"`
	Lifetime    time.Duration `validate:"gt=0"`
}

// FirebaseConfig stores the project used for token verification and sign-in.
type FirebaseConfig struct {
	ProjectID       string
	APIKey          string
	CredentialsFile string
}

// IdentityConfig tunes calls to the identity provider.
type IdentityConfig struct {
	Timeout time.Duration `validate:"gt=0"`
	// Endpoint overrides the Identity Toolkit host, e.g. the auth emulator.
	Endpoint string `validate:"omitempty,url"`
}

// LoginConfig tunes the login surface.
type LoginConfig struct {
	SubmitWait        time.Duration `validate:"gt=0"`
	ViewIdleTTL       time.Duration `validate:"gt=0"`
	PasswordMinLength int           `validate:"min=1,max=128"`
	DefaultLocale     string        `validate:"required,bcp47_language_tag"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
	File  string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take
// precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load assembles the configuration from defaults, the .env file, the process
// environment and an explicit map, in increasing precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		key = envPrefix + key
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnvValues[key]
		return value, ok
	}

	cfg := Config{
		Server: ServerConfig{
			Addr:         stringWithDefault(lookup, "HTTP_ADDR", defaultAddr),
			BasePath:     stringWithDefault(lookup, "BASE_PATH", defaultBasePath),
			LoginPath:    stringWithDefault(lookup, "LOGIN_PATH", ""),
			Environment:  stringWithDefault(lookup, "ENVIRONMENT", defaultEnvironment),
			MetricsPath:  stringWithDefault(lookup, "METRICS_PATH", defaultMetricsPath),
			SecureCookie: boolWithDefault(lookup, "COOKIE_SECURE", false),
		},
		Session: SessionConfig{
			HashKey:     stringWithDefault(lookup, "SESSION_HASH_KEY", ""),
			BlockKey:    stringWithDefault(lookup, "SESSION_BLOCK_KEY", ""),
			IdleTimeout: durationWithDefault(lookup, "SESSION_IDLE_TIMEOUT", defaultIdleTimeout),
			Lifetime:    durationWithDefault(lookup, "SESSION_LIFETIME", defaultLifetime),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "FIREBASE_PROJECT_ID", ""),
			APIKey:          stringWithDefault(lookup, "FIREBASE_API_KEY", ""),
			CredentialsFile: stringWithDefault(lookup, "FIREBASE_CREDENTIALS_FILE", ""),
		},
		Identity: IdentityConfig{
			Timeout:  durationWithDefault(lookup, "IDENTITY_TIMEOUT", defaultIdentityTimeout),
			Endpoint: stringWithDefault(lookup, "IDENTITY_ENDPOINT", ""),
		},
		Login: LoginConfig{
			SubmitWait:        durationWithDefault(lookup, "LOGIN_SUBMIT_WAIT", defaultSubmitWait),
			ViewIdleTTL:       durationWithDefault(lookup, "LOGIN_VIEW_IDLE_TTL", defaultViewIdleTTL),
			PasswordMinLength: intWithDefault(lookup, "PASSWORD_MIN_LENGTH", defaultMinPassword),
			DefaultLocale:     stringWithDefault(lookup, "DEFAULT_LOCALE", defaultLocale),
		},
		Log: LogConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
			File:  stringWithDefault(lookup, "LOG_FILE", ""),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// UsesFirebase reports whether a Firebase project is configured.
func (c Config) UsesFirebase() bool {
	return strings.TrimSpace(c.Firebase.ProjectID) != ""
}

func validateConfig(cfg Config) error {
	var fields []string
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config: validate: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, strings.TrimPrefix(fe.Namespace(), "Config."))
		}
	}
	// Password sign-in goes through the Identity Toolkit, which needs the web API key.
	if cfg.UsesFirebase() && strings.TrimSpace(cfg.Firebase.APIKey) == "" {
		fields = append(fields, "Firebase.APIKey")
	}
	if len(fields) > 0 {
		sort.Strings(fields)
		return &ValidationError{fields: fields}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
