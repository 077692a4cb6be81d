package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-curation-client/internal/config"
	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func writeSettingsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	store, err := config.LoadSettings(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	require.Equal(t, config.DefaultSettings(), store.Get())
}

func TestLoadSettings_MergesOverDefaults(t *testing.T) {
	path := writeSettingsFile(t, `{
		"serverUrl": "https://api.example.com",
		"rateLimitBypassToken": "letmein",
		"someFutureKey": true
	}`)

	store, err := config.LoadSettings(path)
	require.NoError(t, err)

	got := store.Get()
	defaults := config.DefaultSettings()
	require.Equal(t, "https://api.example.com", got.ServerURL)
	require.Equal(t, "letmein", got.RateLimitBypassToken)
	require.Equal(t, defaults.RedirectURI, got.RedirectURI)
	require.Equal(t, defaults.MinRefreshSeconds, got.MinRefreshSeconds)
	require.Equal(t, defaults.MaxRefreshMinutes, got.MaxRefreshMinutes)
}

func TestLoadSettings_EnvOverride(t *testing.T) {
	path := writeSettingsFile(t, `{"serverUrl": "https://api.example.com"}`)
	t.Setenv("CURATOR_SERVERURL", "https://override.example.com")

	store, err := config.LoadSettings(path)
	require.NoError(t, err)
	require.Equal(t, "https://override.example.com", store.Get().ServerURL)
}

func TestLoadSettings_InvalidFile(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		path := writeSettingsFile(t, `{"serverUrl": `)
		_, err := config.LoadSettings(path)
		require.Error(t, err)
	})

	t.Run("invalid url", func(t *testing.T) {
		path := writeSettingsFile(t, `{"serverUrl": "not a url"}`)
		_, err := config.LoadSettings(path)
		require.ErrorIs(t, err, cerrors.ErrInvalidSettings)
		require.Contains(t, err.Error(), "ServerURL must be an absolute http(s) URL")
	})
}

func TestSettings_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, config.DefaultSettings().Validate())
	})

	t.Run("zero refresh bounds", func(t *testing.T) {
		s := config.DefaultSettings()
		s.MinRefreshSeconds = 0
		err := s.Validate()
		require.ErrorIs(t, err, cerrors.ErrInvalidSettings)
		require.Contains(t, err.Error(), "MinRefreshSeconds must be at least 1")
	})

	t.Run("min above max", func(t *testing.T) {
		s := config.DefaultSettings()
		s.MinRefreshSeconds = 7200
		s.MaxRefreshMinutes = 1
		require.ErrorIs(t, s.Validate(), cerrors.ErrInvalidSettings)
	})
}

func TestSettingsStore_Update(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store, err := config.LoadSettings(path)
	require.NoError(t, err)

	updated, err := store.Update(func(s *config.Settings) {
		s.RateLimitBypassToken = "secret"
	})
	require.NoError(t, err)
	require.Equal(t, "secret", updated.RateLimitBypassToken)
	require.Equal(t, "secret", store.Get().RateLimitBypassToken)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Equal(t, "secret", persisted["rateLimitBypassToken"])

	reloaded, err := config.LoadSettings(path)
	require.NoError(t, err)
	require.Equal(t, store.Get(), reloaded.Get())
}

func TestSettingsStore_UpdateKeepsEnvOverridesOutOfFile(t *testing.T) {
	path := writeSettingsFile(t, `{"serverUrl": "https://persisted.example.com"}`)
	t.Setenv("CURATOR_SERVERURL", "https://transient.example.com")

	store, err := config.LoadSettings(path)
	require.NoError(t, err)

	updated, err := store.Update(func(s *config.Settings) { s.RateLimitBypassToken = "x" })
	require.NoError(t, err)
	require.Equal(t, "https://transient.example.com", updated.ServerURL)
	require.Equal(t, "https://transient.example.com", store.Get().ServerURL)
	require.Equal(t, "x", store.Get().RateLimitBypassToken)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Equal(t, "https://persisted.example.com", persisted["serverUrl"])
	require.Equal(t, "x", persisted["rateLimitBypassToken"])

	// Without the variable the persisted value comes back.
	require.NoError(t, os.Unsetenv("CURATOR_SERVERURL"))
	reloaded, err := config.LoadSettings(path)
	require.NoError(t, err)
	require.Equal(t, "https://persisted.example.com", reloaded.Get().ServerURL)
}

func TestSettingsStore_UpdateRejectsInvalid(t *testing.T) {
	store, err := config.NewSettingsStore("", config.DefaultSettings())
	require.NoError(t, err)

	_, err = store.Update(func(s *config.Settings) { s.ServerURL = "" })
	require.ErrorIs(t, err, cerrors.ErrInvalidSettings)
	require.Equal(t, config.DefaultSettings(), store.Get())
}

func TestSettingsStore_Reset(t *testing.T) {
	s := config.DefaultSettings()
	s.ServerURL = "https://api.example.com"
	store, err := config.NewSettingsStore("", s)
	require.NoError(t, err)

	reset, err := store.Reset()
	require.NoError(t, err)
	require.Equal(t, config.DefaultSettings(), reset)
}
