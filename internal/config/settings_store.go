package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/jrsteele09/go-curation-client/internal/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const settingsEnvPrefix = "CURATOR"

// SettingsReader is the read-only view handed to components that consume settings.
type SettingsReader interface {
	Get() Settings
}

// SettingsStore is the single writer of the client settings. Everything else
// receives it as a SettingsReader.
//
// The store keeps the persisted record apart from the view handed out by Get:
// CURATOR_<KEY> environment overrides apply to the view only and are never
// written back to the file.
type SettingsStore struct {
	mu        sync.RWMutex
	path      string
	useEnv    bool
	persisted Settings // File contents merged over the defaults
	current   Settings // persisted with environment overrides applied
}

var _ SettingsReader = (*SettingsStore)(nil)

func setSettingsDefaults(v *viper.Viper, s Settings) {
	v.SetDefault("serverUrl", s.ServerURL)
	v.SetDefault("rateLimitBypassToken", s.RateLimitBypassToken)
	v.SetDefault("discordApplicationId", s.DiscordApplicationID)
	v.SetDefault("redirectUri", s.RedirectURI)
	v.SetDefault("minRefreshSeconds", s.MinRefreshSeconds)
	v.SetDefault("maxRefreshMinutes", s.MaxRefreshMinutes)
}

// withEnvOverrides returns s with any CURATOR_<KEY> environment variable
// (e.g. CURATOR_SERVERURL) taking precedence.
func withEnvOverrides(s Settings) (Settings, error) {
	v := viper.New()
	setSettingsDefaults(v, s)
	v.SetEnvPrefix(settingsEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var out Settings
	if err := v.Unmarshal(&out); err != nil {
		return Settings{}, fmt.Errorf("[withEnvOverrides] unmarshal: %w", err)
	}
	return out, nil
}

// LoadSettings reads the persisted settings at path merged over DefaultSettings.
// A missing file yields the defaults. CURATOR_<KEY> environment variables
// override both in what Get returns.
func LoadSettings(path string) (*SettingsStore, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setSettingsDefaults(v, DefaultSettings())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("[LoadSettings] read %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("no settings file, using defaults")
	}

	var persisted Settings
	if err := v.Unmarshal(&persisted); err != nil {
		return nil, fmt.Errorf("[LoadSettings] unmarshal: %w", err)
	}

	current, err := withEnvOverrides(persisted)
	if err != nil {
		return nil, err
	}
	if err := current.Validate(); err != nil {
		return nil, fmt.Errorf("[LoadSettings] %s: %w", path, err)
	}

	return &SettingsStore{path: path, useEnv: true, persisted: persisted, current: current}, nil
}

// NewSettingsStore creates a store holding s that persists to path. An empty
// path keeps the settings in memory only. No environment overrides apply.
func NewSettingsStore(path string, s Settings) (*SettingsStore, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &SettingsStore{path: path, persisted: s, current: s}, nil
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies fn to a copy of the persisted record, validates and persists
// the result, and only then makes it current. The returned settings include
// environment overrides.
func (s *SettingsStore) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.persisted
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.current, err
	}

	current := next
	if s.useEnv {
		var err error
		if current, err = withEnvOverrides(next); err != nil {
			return s.current, err
		}
		if err := current.Validate(); err != nil {
			return s.current, err
		}
	}

	if err := s.persist(next); err != nil {
		return s.current, err
	}
	s.persisted = next
	s.current = current
	return current, nil
}

// Reset restores and persists the defaults.
func (s *SettingsStore) Reset() (Settings, error) {
	return s.Update(func(st *Settings) { *st = DefaultSettings() })
}

func (s *SettingsStore) persist(settings Settings) error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	return nil
}
