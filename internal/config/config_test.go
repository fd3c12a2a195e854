package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "/data")
	require.NoError(t, err)

	want := DefaultConfig()
	want.DataDir = "/data"
	assert.Equal(t, &want, cfg)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("", "/data")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.PageBudget)
	assert.Equal(t, StoreJSON, cfg.Store)
}

func TestLoadPartialFile(t *testing.T) {
	path := writeConfig(t, `
page_budget: 1200
store: sqlite
translation:
  target: de
  providers: [google]
  timeout: 3s
colors:
  comment: "#ff0000"
`)

	cfg, err := Load(path, "/data")
	require.NoError(t, err)

	assert.Equal(t, 1200, cfg.PageBudget)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "de", cfg.Translation.Target)
	assert.Equal(t, []string{ProviderGoogle}, cfg.Translation.Providers)
	assert.Equal(t, 3*time.Second, cfg.Translation.Timeout)
	assert.Equal(t, "#ff0000", cfg.Colors.Comment)
	assert.Equal(t, DefaultConfig().Colors.Dictionary, cfg.Colors.Dictionary)
	assert.Equal(t, DefaultConfig().Translation.RequestsPerSecond, cfg.Translation.RequestsPerSecond)
	assert.Equal(t, "/data", cfg.DataDir)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "page_budget: [oops")
	_, err := Load(path, "/data")
	assert.ErrorContains(t, err, "parse config file")
}

func TestLoadInvalidValues(t *testing.T) {
	path := writeConfig(t, `
page_budget: -5
store: postgres
`)
	_, err := Load(path, "/data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
	assert.Contains(t, err.Error(), "page_budget")
	assert.Contains(t, err.Error(), "store")
}

func TestValidateProviders(t *testing.T) {
	tests := []struct {
		name      string
		providers []string
		wantField string
	}{
		{name: "all known", providers: []string{ProviderGoogle, ProviderMyMemory}},
		{name: "unknown", providers: []string{"deepl"}, wantField: "translation.providers[0]"},
		{name: "duplicate", providers: []string{ProviderGoogle, ProviderGoogle}, wantField: "translation.providers[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Translation.Providers = tt.providers

			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.wantField, fieldErrs[0].Field)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/leaf/config.yaml", DefaultPath())
}
