package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Shop: ShopConfig{
			Domain:          "wax-trax.myshopify.com",
			StorefrontToken: "shpat_test",
			APIVersion:      "2024-01",
		},
		Enhancer: EnhancerConfig{
			MaxProductsPerRun:  5000,
			PageSize:           250,
			InitialRenderBatch: 50,
			SteadyRenderBatch:  25,
			RenderConcurrency:  20,
			FilterDebounce:     300 * time.Millisecond,
			PageFetchDelay:     50 * time.Millisecond,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad environment", func(c *Config) { c.App.Environment = "prod" }},
		{"empty environment", func(c *Config) { c.App.Environment = "" }},
		{"bad log level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"non-numeric port", func(c *Config) { c.Server.Port = "eighty" }},
		{"missing shop domain", func(c *Config) { c.Shop.Domain = "" }},
		{"zero page size", func(c *Config) { c.Enhancer.PageSize = 0 }},
		{"page size over cap", func(c *Config) { c.Enhancer.PageSize = 500 }},
		{"zero max products", func(c *Config) { c.Enhancer.MaxProductsPerRun = 0 }},
		{"zero render concurrency", func(c *Config) { c.Enhancer.RenderConcurrency = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_MissingTokenIsAllowed(t *testing.T) {
	// A missing token is surfaced per-run as an auth error, not at startup.
	cfg := validConfig()
	cfg.Shop.StorefrontToken = ""
	assert.NoError(t, cfg.Validate())
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("CRATESTACK_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "CRATESTACK_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "CRATESTACK_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "CRATESTACK_UNSET_KEY", "default"))
}

func TestGetIntConfigValue(t *testing.T) {
	t.Setenv("CRATESTACK_TEST_INT", "123")

	assert.Equal(t, 123, getIntConfigValue("", "CRATESTACK_TEST_INT", 5))
	assert.Equal(t, 5, getIntConfigValue("", "CRATESTACK_UNSET_INT", 5))

	t.Setenv("CRATESTACK_TEST_INT", "not-a-number")
	assert.Equal(t, 5, getIntConfigValue("", "CRATESTACK_TEST_INT", 5))
}

func TestParseDurationValue(t *testing.T) {
	d, err := parseDurationValue("", "CRATESTACK_UNSET_DURATION", "300ms")
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, d)

	t.Setenv("CRATESTACK_TEST_DURATION", "2s")
	d, err = parseDurationValue("", "CRATESTACK_TEST_DURATION", "300ms")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)

	t.Setenv("CRATESTACK_TEST_DURATION", "soon")
	_, err = parseDurationValue("", "CRATESTACK_TEST_DURATION", "300ms")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment line\n\nCRATESTACK_ENVFILE_A=hello\nCRATESTACK_ENVFILE_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CRATESTACK_ENVFILE_A", "")
	t.Setenv("CRATESTACK_ENVFILE_B", "")
	os.Unsetenv("CRATESTACK_ENVFILE_A")
	os.Unsetenv("CRATESTACK_ENVFILE_B")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("CRATESTACK_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("CRATESTACK_ENVFILE_B"))
}

func TestLoadEnvFile_ExistingEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CRATESTACK_ENVFILE_C=file\n"), 0o600))

	t.Setenv("CRATESTACK_ENVFILE_C", "env")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "env", os.Getenv("CRATESTACK_ENVFILE_C"))
}

func TestLoadEnvFile_BadLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT AN ASSIGNMENT\n"), 0o600))

	assert.Error(t, loadEnvFile(path))
}
