package oauthflow

import (
	"crypto/subtle"
	"fmt"
	"net/url"
	"time"

	"github.com/jrsteele09/go-curation-client/internal/config"
	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DiscordEndpoint is Discord's OAuth2 authorization server.
var DiscordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

const (
	scopeIdentify = "identify"

	// DefaultStateTTL bounds how long a user may take at Discord.
	DefaultStateTTL = 15 * time.Minute
)

// ProviderError is returned by Complete when Discord redirects back with an
// error instead of a code, e.g. when the user denies access.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return "authorization failed: " + e.Code
	}
	return fmt.Sprintf("authorization failed: %s (%s)", e.Code, e.Description)
}

// Flow runs the browser half of the Discord login: it issues the authorize
// URL with a fresh state and validates the redirect that comes back.
type Flow struct {
	settings config.SettingsReader
	states   StateRepo
	endpoint oauth2.Endpoint
	ttl      time.Duration
	nowTime  func() time.Time
}

// FlowOption defines a function type to modify the Flow instance.
type FlowOption func(*Flow)

// WithEndpoint replaces the Discord endpoint (primarily for testing)
func WithEndpoint(endpoint oauth2.Endpoint) FlowOption {
	return func(f *Flow) {
		f.endpoint = endpoint
	}
}

// WithStateTTL sets how long a pending state stays valid.
func WithStateTTL(ttl time.Duration) FlowOption {
	return func(f *Flow) {
		f.ttl = ttl
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) FlowOption {
	return func(f *Flow) {
		f.nowTime = nowFunc
	}
}

func NewFlow(settings config.SettingsReader, states StateRepo, opts ...FlowOption) *Flow {
	f := &Flow{
		settings: settings,
		states:   states,
		endpoint: DiscordEndpoint,
		ttl:      DefaultStateTTL,
		nowTime:  time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flow) oauth2Config() *oauth2.Config {
	s := f.settings.Get()
	return &oauth2.Config{
		ClientID:    s.DiscordApplicationID,
		Endpoint:    f.endpoint,
		RedirectURL: s.RedirectURI,
		Scopes:      []string{scopeIdentify},
	}
}

// Begin stores a fresh state, replacing any pending one, and returns the
// URL to send the user to.
func (f *Flow) Begin() (string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", errors.Wrap(err, "[Flow.Begin] generate state")
	}
	if err := f.states.Save(PendingState{State: state, CreatedAt: f.nowTime()}); err != nil {
		return "", errors.Wrap(err, "[Flow.Begin] save state")
	}

	return f.oauth2Config().AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "none")), nil
}

// Complete validates the query of the redirect back from Discord and returns
// the authorization code. The pending state is consumed whatever the result.
func (f *Flow) Complete(query url.Values) (string, error) {
	pending, loadErr := f.states.Load()
	if err := f.states.Delete(); err != nil {
		log.Error().Err(err).Msg("failed to delete pending login state")
	}

	if providerErr := query.Get("error"); providerErr != "" {
		return "", &ProviderError{Code: providerErr, Description: query.Get("error_description")}
	}

	code, state := query.Get("code"), query.Get("state")
	if code == "" || state == "" {
		return "", cerrors.ErrMissingCallbackParams
	}

	if loadErr != nil {
		return "", errors.Wrap(loadErr, "[Flow.Complete] load state")
	}
	if subtle.ConstantTimeCompare([]byte(state), []byte(pending.State)) != 1 {
		log.Warn().Msg("login state mismatch")
		return "", cerrors.ErrStateMismatch
	}
	if f.nowTime().Sub(pending.CreatedAt) > f.ttl {
		return "", errors.Wrap(cerrors.ErrNoPendingState, "[Flow.Complete] state expired")
	}
	return code, nil
}

// CompleteURL is Complete for a full redirect URL as pasted by a user.
func (f *Flow) CompleteURL(redirect string) (string, error) {
	u, err := url.Parse(redirect)
	if err != nil {
		return "", errors.Wrap(err, "[Flow.CompleteURL] parse redirect")
	}
	return f.Complete(u.Query())
}
