package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
)

// Settings is the persisted client settings record. Keys missing from the
// persisted file fall back to DefaultSettings; unknown keys are ignored.
type Settings struct {
	// ServerURL is the base URL of the curation API.
	// Example: "https://api.example.com"
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl" validate:"required,http_url"`

	// RateLimitBypassToken is an optional shared secret that exempts requests from
	// the API's rate limiting. Empty means no bypass header is sent.
	RateLimitBypassToken string `json:"rateLimitBypassToken" mapstructure:"rateLimitBypassToken"`

	// DiscordApplicationID is the OAuth client ID of the Discord application.
	DiscordApplicationID string `json:"discordApplicationId" mapstructure:"discordApplicationId"`

	// RedirectURI is where Discord sends the user back with code and state.
	// It must match the URI registered with the Discord application.
	RedirectURI string `json:"redirectUri" mapstructure:"redirectUri" validate:"required,http_url"`

	// MinRefreshSeconds is the shortest wait before an automatic token refresh.
	MinRefreshSeconds int `json:"minRefreshSeconds" mapstructure:"minRefreshSeconds" validate:"gte=1"`

	// MaxRefreshMinutes is the longest wait before an automatic token refresh.
	MaxRefreshMinutes int `json:"maxRefreshMinutes" mapstructure:"maxRefreshMinutes" validate:"gte=1"`
}

// DefaultSettings returns the values used for any key absent from the persisted record.
func DefaultSettings() Settings {
	return Settings{
		ServerURL:            "http://localhost:5000",
		RateLimitBypassToken: "",
		DiscordApplicationID: "",
		RedirectURI:          "http://localhost:3000/login",
		MinRefreshSeconds:    30,
		MaxRefreshMinutes:    60,
	}
}

func (s Settings) MinRefresh() time.Duration {
	return time.Duration(s.MinRefreshSeconds) * time.Second
}

func (s Settings) MaxRefresh() time.Duration {
	return time.Duration(s.MaxRefreshMinutes) * time.Minute
}

// Validate checks struct tags plus the refresh window ordering.
func (s Settings) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("http_url", validateHTTPURL); err != nil {
		return fmt.Errorf("failed to register http_url validator: %w", err)
	}

	if err := v.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", cerrors.ErrInvalidSettings, formatValidationErrors(err))
	}

	if s.MinRefresh() > s.MaxRefresh() {
		return fmt.Errorf("%w: minRefreshSeconds (%d) exceeds maxRefreshMinutes (%d)",
			cerrors.ErrInvalidSettings, s.MinRefreshSeconds, s.MaxRefreshMinutes)
	}
	return nil
}

// validateHTTPURL accepts absolute http and https URLs only.
func validateHTTPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "http_url":
		return fmt.Sprintf("%s must be an absolute http(s) URL", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
