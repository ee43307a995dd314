// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Shop     ShopConfig
	Enhancer EnhancerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `validate:"required,oneof=debug info warn error"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `validate:"required,numeric"`
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 60s, enhance runs are slow)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// ShopConfig holds the storefront catalog API credentials.
type ShopConfig struct {
	// Domain is the myshopify storefront domain, e.g. "wax-trax.myshopify.com".
	Domain string `validate:"required,hostname"`
	// StorefrontToken authenticates catalog queries. A missing token is a
	// fatal auth condition at run time, not at startup, so the server can
	// boot and surface the failure per request.
	StorefrontToken string
	// APIVersion selects the storefront API version path segment.
	APIVersion string `validate:"required"`
}

// EnhancerConfig holds the enhancement pipeline tuning knobs.
type EnhancerConfig struct {
	MaxProductsPerRun  int           `validate:"gt=0,lte=50000"`
	PageSize           int           `validate:"gt=0,lte=250"`
	InitialRenderBatch int           `validate:"gt=0"`
	SteadyRenderBatch  int           `validate:"gt=0"`
	RenderConcurrency  int           `validate:"gt=0,lte=100"`
	FilterDebounce     time.Duration `validate:"gte=0"`
	PageFetchDelay     time.Duration `validate:"gte=0"`
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	shopDomain := flag.String("shop-domain", "", "Storefront domain, e.g. shop.myshopify.com")
	storefrontToken := flag.String("storefront-token", "", "Storefront API access token")
	apiVersion := flag.String("api-version", "", "Storefront API version (default: 2024-01)")

	maxProducts := flag.String("max-products", "", "Maximum products fetched per run (default: 5000)")
	pageSize := flag.String("page-size", "", "Catalog page size, capped at 250 (default: 250)")
	initialBatch := flag.String("initial-render-batch", "", "Render batch size for first paint (default: 50)")
	steadyBatch := flag.String("steady-render-batch", "", "Render batch size after first paint (default: 25)")
	renderConcurrency := flag.String("render-concurrency", "", "Concurrent card renders per batch (default: 20)")
	filterDebounce := flag.String("filter-debounce", "", "Debounce window for filter changes (default: 300ms)")
	pageFetchDelay := flag.String("page-fetch-delay", "", "Delay between catalog page fetches (default: 50ms)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Shop: ShopConfig{
			Domain:          getConfigValue(*shopDomain, "SHOP_DOMAIN", ""),
			StorefrontToken: getConfigValue(*storefrontToken, "STOREFRONT_TOKEN", ""),
			APIVersion:      getConfigValue(*apiVersion, "STOREFRONT_API_VERSION", "2024-01"),
		},
		Enhancer: EnhancerConfig{
			MaxProductsPerRun:  getIntConfigValue(*maxProducts, "MAX_PRODUCTS_PER_RUN", 5000),
			PageSize:           getIntConfigValue(*pageSize, "PAGE_SIZE", 250),
			InitialRenderBatch: getIntConfigValue(*initialBatch, "INITIAL_RENDER_BATCH", 50),
			SteadyRenderBatch:  getIntConfigValue(*steadyBatch, "STEADY_RENDER_BATCH", 25),
			RenderConcurrency:  getIntConfigValue(*renderConcurrency, "RENDER_CONCURRENCY", 20),
		},
	}

	// Parse durations.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Enhancer.FilterDebounce, err = parseDurationValue(*filterDebounce, "FILTER_DEBOUNCE", "300ms"); err != nil {
		return nil, err
	}
	if cfg.Enhancer.PageFetchDelay, err = parseDurationValue(*pageFetchDelay, "PAGE_FETCH_DELAY", "50ms"); err != nil {
		return nil, err
	}

	// The catalog API rejects page sizes over 250; clamp rather than fail.
	if cfg.Enhancer.PageSize > 250 {
		cfg.Enhancer.PageSize = 250
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("invalid %s: failed %q constraint", e.Namespace(), e.Tag())
		}
		return err
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
