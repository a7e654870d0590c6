// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// JWT Authentication. The previous secret is optional and only used
	// to validate tokens issued before a secret rotation.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// Redis (rate limiting). Optional; the server falls back to an
	// in-memory limiter when unset.
	RedisURL string `koanf:"redis_url"`

	// Nominatim geocoding
	NominatimURL       string `koanf:"nominatim_url"`
	NominatimUserAgent string `koanf:"nominatim_user_agent"`

	// Stripe
	StripeAPIKey                string  `koanf:"stripe_api_key"`
	StripeWebhookSecret         string  `koanf:"stripe_webhook_secret"`
	StripeOnboardingReturnURL   string  `koanf:"stripe_onboarding_return_url"`
	StripeOnboardingRefreshURL  string  `koanf:"stripe_onboarding_refresh_url"`
	StripeApplicationFeePercent float64 `koanf:"stripe_application_fee_percent"` // Platform fee as percentage (e.g., 5.0 for 5%)

	// Object storage (S3-compatible)
	StorageBucketName      string `koanf:"storage_bucket_name"`
	StorageAccessKeyID     string `koanf:"storage_access_key_id"`
	StorageSecretAccessKey string `koanf:"storage_secret_access_key"`
	StorageEndpoint        string `koanf:"storage_endpoint"`
	StorageMaxUploadSizeMB int    `koanf:"storage_max_upload_size_mb"` // Default: 10MB

	// Catalog ranking
	CatalogOverFetchMultiplier int `koanf:"catalog_over_fetch_multiplier"`
	CatalogOverFetchFloor      int `koanf:"catalog_over_fetch_floor"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL               = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret                 = errors.New("JWT_SECRET is required")
	ErrMissingStripeWebhookSecret       = errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_API_KEY is set")
	ErrMissingStripeOnboardingReturnURL = errors.New("STRIPE_ONBOARDING_RETURN_URL is required when STRIPE_API_KEY is set")
	ErrMissingStripeOnboardingRefreshURL = errors.New("STRIPE_ONBOARDING_REFRESH_URL is required when STRIPE_API_KEY is set")
	ErrMissingStorageBucketName          = errors.New("STORAGE_BUCKET_NAME is required")
	ErrMissingStorageAccessKeyID         = errors.New("STORAGE_ACCESS_KEY_ID is required")
	ErrMissingStorageSecretAccessKey     = errors.New("STORAGE_SECRET_ACCESS_KEY is required")
	ErrMissingStorageEndpoint            = errors.New("STORAGE_ENDPOINT is required")
	ErrInvalidPort                       = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort                        = 8080
	DefaultEnv                         = "development"
	DefaultNominatimURL                = "https://nominatim.openstreetmap.org"
	DefaultNominatimUserAgent          = "doecerto-api/1.0"
	DefaultStorageMaxUploadSizeMB      = 10
	DefaultStripeApplicationFeePercent = 5.0 // 5% platform fee by default
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Parse port from env, collecting error if invalid
	// Try DOECERTO_PORT first, then PORT for backward compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"DOECERTO_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	// Parse max upload size from env with default
	maxUploadSize, uploadSizeErr := getEnvIntOrDefault("STORAGE_MAX_UPLOAD_SIZE_MB", k.Int("storage_max_upload_size_mb"), DefaultStorageMaxUploadSizeMB)
	if uploadSizeErr != nil {
		loadErrs = append(loadErrs, uploadSizeErr)
	}

	// Parse Stripe application fee percentage with default
	stripeFeePercent, stripeFeeErr := getEnvFloatOrDefault("STRIPE_APPLICATION_FEE_PERCENT", k.Float64("stripe_application_fee_percent"), DefaultStripeApplicationFeePercent)
	if stripeFeeErr != nil {
		loadErrs = append(loadErrs, stripeFeeErr)
	}

	// Catalog over-fetch tunables. Zero means "use the engine default".
	overFetchMult, multErr := getEnvIntOrDefault("CATALOG_OVER_FETCH_MULTIPLIER", k.Int("catalog_over_fetch_multiplier"), 0)
	if multErr != nil {
		loadErrs = append(loadErrs, multErr)
	}
	overFetchFloor, floorErr := getEnvIntOrDefault("CATALOG_OVER_FETCH_FLOOR", k.Int("catalog_over_fetch_floor"), 0)
	if floorErr != nil {
		loadErrs = append(loadErrs, floorErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                        port,
		Env:                         getEnvOrDefaultMulti([]string{"DOECERTO_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:                 getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		JWTSecret:                   getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTPreviousSecret:           getEnvOrKoanf("JWT_PREVIOUS_SECRET", k, "jwt_previous_secret"),
		RedisURL:                    getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		NominatimURL:                getEnvOrDefault("NOMINATIM_URL", k.String("nominatim_url"), DefaultNominatimURL),
		NominatimUserAgent:          getEnvOrDefault("NOMINATIM_USER_AGENT", k.String("nominatim_user_agent"), DefaultNominatimUserAgent),
		StripeAPIKey:                getEnvOrKoanf("STRIPE_API_KEY", k, "stripe_api_key"),
		StripeWebhookSecret:         getEnvOrKoanf("STRIPE_WEBHOOK_SECRET", k, "stripe_webhook_secret"),
		StripeOnboardingReturnURL:   getEnvOrKoanf("STRIPE_ONBOARDING_RETURN_URL", k, "stripe_onboarding_return_url"),
		StripeOnboardingRefreshURL:  getEnvOrKoanf("STRIPE_ONBOARDING_REFRESH_URL", k, "stripe_onboarding_refresh_url"),
		StripeApplicationFeePercent: stripeFeePercent,
		StorageBucketName:           getEnvOrKoanf("STORAGE_BUCKET_NAME", k, "storage_bucket_name"),
		StorageAccessKeyID:          getEnvOrKoanf("STORAGE_ACCESS_KEY_ID", k, "storage_access_key_id"),
		StorageSecretAccessKey:      getEnvOrKoanf("STORAGE_SECRET_ACCESS_KEY", k, "storage_secret_access_key"),
		StorageEndpoint:             getEnvOrKoanf("STORAGE_ENDPOINT", k, "storage_endpoint"),
		StorageMaxUploadSizeMB:      maxUploadSize,
		CatalogOverFetchMultiplier:  overFetchMult,
		CatalogOverFetchFloor:       overFetchFloor,
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
// Note: A value of 0 from a YAML file falls back to the default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}

	// Stripe is optional. When the API key is set, the webhook secret and
	// onboarding URLs become required.
	if c.StripeAPIKey != "" {
		if c.StripeWebhookSecret == "" {
			errs = append(errs, ErrMissingStripeWebhookSecret)
		}
		if c.StripeOnboardingReturnURL == "" {
			errs = append(errs, ErrMissingStripeOnboardingReturnURL)
		}
		if c.StripeOnboardingRefreshURL == "" {
			errs = append(errs, ErrMissingStripeOnboardingRefreshURL)
		}
	}

	// Storage configuration is optional. Only validate fields if any storage value is set.
	if c.StorageBucketName != "" || c.StorageAccessKeyID != "" || c.StorageSecretAccessKey != "" || c.StorageEndpoint != "" {
		if c.StorageBucketName == "" {
			errs = append(errs, ErrMissingStorageBucketName)
		}
		if c.StorageAccessKeyID == "" {
			errs = append(errs, ErrMissingStorageAccessKeyID)
		}
		if c.StorageSecretAccessKey == "" {
			errs = append(errs, ErrMissingStorageSecretAccessKey)
		}
		if c.StorageEndpoint == "" {
			errs = append(errs, ErrMissingStorageEndpoint)
		}
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                          fmt.Sprintf("%d", c.Port),
		"env":                           c.Env,
		"database_url":                  maskDatabaseURL(c.DatabaseURL),
		"jwt_secret":                    maskSecret(c.JWTSecret),
		"jwt_previous_secret":           maskSecret(c.JWTPreviousSecret),
		"redis_url":                     maskDatabaseURL(c.RedisURL),
		"nominatim_url":                 c.NominatimURL,
		"nominatim_user_agent":          c.NominatimUserAgent,
		"stripe_api_key":                maskStripeKey(c.StripeAPIKey),
		"stripe_webhook_secret":         maskSecret(c.StripeWebhookSecret),
		"stripe_onboarding_return_url":  c.StripeOnboardingReturnURL,
		"stripe_onboarding_refresh_url": c.StripeOnboardingRefreshURL,
		"storage_bucket_name":           c.StorageBucketName,
		"storage_access_key_id":         maskSecret(c.StorageAccessKeyID),
		"storage_secret_access_key":     maskSecret(c.StorageSecretAccessKey),
		"storage_endpoint":              c.StorageEndpoint,
		"storage_max_upload_size_mb":    fmt.Sprintf("%d", c.StorageMaxUploadSizeMB),
		"catalog_over_fetch_multiplier": fmt.Sprintf("%d", c.CatalogOverFetchMultiplier),
		"catalog_over_fetch_floor":      fmt.Sprintf("%d", c.CatalogOverFetchFloor),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskStripeKey masks a Stripe API key, preserving the prefix (sk_live_, sk_test_, etc.)
func maskStripeKey(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Stripe keys have format like sk_live_..., sk_test_..., pk_live_..., etc.
	parts := strings.SplitN(s, "_", 3)
	if len(parts) == 3 {
		return parts[0] + "_" + parts[1] + "_****"
	}

	// Fallback to generic masking
	return maskSecret(s)
}

// maskDatabaseURL masks the password in a URL of the user:password@host form.
// Supports postgres://, postgresql:// and redis:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	// Simple approach: find :// and then mask between : and @
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
