package croprec

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://127.0.0.1:5000", cfg.Endpoints.BaseURL)
	assert.Equal(t, "http://127.0.0.1:5000/predict", cfg.Endpoints.PredictURL)
	assert.Equal(t, "http://127.0.0.1:5000/store-selected-crops", cfg.Endpoints.SaveURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, "croprec/"+Version, cfg.UserAgent)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestApplyDefaultsDerivesEndpointsFromBase(t *testing.T) {
	cfg := Config{Endpoints: EndpointConfig{BaseURL: "https://crops.example.org/api/"}}
	cfg.ApplyDefaults()
	assert.Equal(t, "https://crops.example.org/api", cfg.Endpoints.BaseURL)
	assert.Equal(t, "https://crops.example.org/api/predict", cfg.Endpoints.PredictURL)
	assert.Equal(t, "https://crops.example.org/api/store-selected-crops", cfg.Endpoints.SaveURL)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoints.PredictURL = "ftp://example.org/predict"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPredictURL)

	cfg = DefaultConfig()
	cfg.Endpoints.SaveURL = "/relative"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidSaveURL)

	cfg = DefaultConfig()
	cfg.Timeout = -time.Second
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidTimeout)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("endpoints:\n  base_url: http://farm.local:8080\ntimeout: 5s\ndetailed_errors: true\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv(EnvSaveURL, "http://archive.local/save")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://farm.local:8080/predict", cfg.Endpoints.PredictURL)
	assert.Equal(t, "http://archive.local/save", cfg.Endpoints.SaveURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.DetailedErrors)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsBadTimeoutEnv(t *testing.T) {
	t.Setenv(EnvTimeout, "soon")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvTimeout)
}

func TestLoadConfigRejectsInvalidURL(t *testing.T) {
	t.Setenv(EnvPredictURL, "not a url")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrInvalidPredictURL)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Endpoints = EndpointConfig{BaseURL: "http://10.0.0.2:5000"}
	cfg.Timeout = 12 * time.Second
	cfg.ApplyDefaults()
	require.NoError(t, SaveConfig(path, cfg))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
