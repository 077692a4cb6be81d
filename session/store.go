package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-curation-client/api"
	"github.com/jrsteele09/go-curation-client/internal/config"
	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Authenticator is the part of the API client the store needs.
type Authenticator interface {
	Login(ctx context.Context, code, redirectURI string) api.Response[api.SessionPayload]
	Refresh(ctx context.Context, siteToken string) api.Response[api.SessionPayload]
	Logout(ctx context.Context, siteToken string) api.Response[struct{}]
}

var _ Authenticator = (*api.Client)(nil)

// Listener is called with the new session, or nil when the store becomes
// anonymous. Listeners run after the operation has released the store, so
// they may start the next operation themselves.
type Listener func(current *Session)

// Store owns the client's single session and is the only writer of it and
// of its persisted record. Remote operations are single-flight: a call made
// while another is in progress returns errors.ErrOperationInProgress.
type Store struct {
	client   Authenticator
	repo     Repo
	settings config.SettingsReader
	nowTime  func() time.Time

	mu      sync.RWMutex
	current *Session
	changed bool // Set by set, listeners are notified on release

	busy atomic.Bool

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// NewStore creates the store and rehydrates the session persisted in repo.
// A missing, unreadable or empty-token record starts the store anonymous.
func NewStore(client Authenticator, repo Repo, settings config.SettingsReader, opts ...StoreOption) (*Store, error) {
	if client == nil {
		return nil, errors.New("[NewStore] client is required")
	}
	if repo == nil {
		return nil, errors.New("[NewStore] session repo is required")
	}
	if settings == nil {
		return nil, errors.New("[NewStore] settings are required")
	}

	s := &Store{
		client:    client,
		repo:      repo,
		settings:  settings,
		nowTime:   time.Now,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.rehydrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) rehydrate() error {
	record, err := s.repo.Load()
	switch {
	case errors.Is(err, cerrors.ErrNoSession):
		return nil
	case err != nil:
		log.Warn().Err(err).Msg("discarding unreadable session record")
		return errors.Wrap(s.repo.Clear(), "[Store.rehydrate] clear unreadable record")
	case record.SiteToken == "":
		log.Warn().Err(cerrors.ErrEmptySiteToken).Msg("discarding session record")
		return errors.Wrap(s.repo.Clear(), "[Store.rehydrate] clear empty-token record")
	}

	restored := record.Session()
	s.current = &restored
	log.Debug().Str("user", restored.User.ID).Time("issuedAt", restored.IssuedAt).Msg("session restored")
	return nil
}

// Current returns a copy of the session, or nil when anonymous.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.copy()
}

// Authenticated reports whether a session exists.
func (s *Store) Authenticated() bool {
	return s.Current() != nil
}

// Subscribe registers fn to be called after every session change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// Login exchanges an OAuth authorization code for a new session using the
// configured redirect URI. Success replaces any existing session with a fresh
// lineage; every other outcome leaves the store unchanged.
func (s *Store) Login(ctx context.Context, code string) (api.Response[api.SessionPayload], error) {
	if !s.acquire() {
		return nil, cerrors.ErrOperationInProgress
	}
	defer s.release()

	result := s.client.Login(ctx, code, s.settings.Get().RedirectURI)
	switch r := result.(type) {
	case api.Success[api.SessionPayload]:
		if r.Data.SiteToken == "" {
			log.Warn().Msg("login succeeded without a site token, ignoring it")
			return result, cerrors.ErrEmptySiteToken
		}
		now := s.nowTime()
		next := newSession(r.Data, now, now)
		log.Info().Str("user", next.User.ID).Str("type", string(next.OperationType)).Msg("logged in")
		return result, s.set(next)
	case api.RecognizedFailure, api.RateLimited, api.GenericFailure:
		log.Debug().Str("outcome", result.Kind().String()).Msg("login failed")
		return result, nil
	case api.Canceled:
		return result, nil
	default:
		panic(api.UnexpectedOutcome(result))
	}
}

// Refresh renews the current site token. Success keeps FirstIssuedAt and
// moves IssuedAt to now. Any failure other than Canceled means the
// credential is no longer usable and clears the session.
func (s *Store) Refresh(ctx context.Context) (api.Response[api.SessionPayload], error) {
	if !s.acquire() {
		return nil, cerrors.ErrOperationInProgress
	}
	defer s.release()

	current := s.Current()
	if current == nil {
		return nil, cerrors.ErrNoSession
	}

	result := s.client.Refresh(ctx, current.SiteToken)
	switch r := result.(type) {
	case api.Success[api.SessionPayload]:
		if r.Data.SiteToken == "" {
			log.Warn().Str("user", current.User.ID).Msg("refresh succeeded without a site token, clearing session")
			if err := s.set(nil); err != nil {
				return result, err
			}
			return result, cerrors.ErrEmptySiteToken
		}
		next := newSession(r.Data, s.nowTime(), current.FirstIssuedAt)
		log.Debug().Str("user", next.User.ID).Time("issuedAt", next.IssuedAt).Msg("session refreshed")
		return result, s.set(next)
	case api.RecognizedFailure, api.RateLimited, api.GenericFailure:
		log.Info().Str("outcome", result.Kind().String()).Str("user", current.User.ID).Msg("refresh failed, clearing session")
		return result, s.set(nil)
	case api.Canceled:
		return result, nil
	default:
		panic(api.UnexpectedOutcome(result))
	}
}

// Logout revokes the current site token. Only success clears the session; a
// failed logout keeps the local credential since the server may not have
// revoked it.
func (s *Store) Logout(ctx context.Context) (api.Response[struct{}], error) {
	if !s.acquire() {
		return nil, cerrors.ErrOperationInProgress
	}
	defer s.release()

	current := s.Current()
	if current == nil {
		return nil, cerrors.ErrNoSession
	}

	result := s.client.Logout(ctx, current.SiteToken)
	switch result.(type) {
	case api.Success[struct{}]:
		log.Info().Str("user", current.User.ID).Msg("logged out")
		return result, s.set(nil)
	case api.RecognizedFailure, api.RateLimited, api.GenericFailure:
		log.Warn().Str("outcome", result.Kind().String()).Msg("logout failed, keeping session")
		return result, nil
	case api.Canceled:
		return result, nil
	default:
		panic(api.UnexpectedOutcome(result))
	}
}

// UpdatePermissions replaces the permission bitmask of the current session
// after the server has confirmed the change. It does not contact the API and
// leaves both timestamps untouched.
func (s *Store) UpdatePermissions(permissions api.Permissions) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return cerrors.ErrNoSession
	}
	next := s.current.copy()
	next.User.Permissions = permissions
	s.current = next
	err := s.persistLocked()
	s.mu.Unlock()

	s.notify(next.copy())
	return err
}

// set replaces the in-memory session and persists it. The in-memory state
// changes even if persistence fails. Listeners run once the operation
// releases the store, so they observe it idle.
func (s *Store) set(next *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = next
	s.changed = true
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	var err error
	if s.current == nil {
		err = errors.Wrap(s.repo.Clear(), "[Store.persist] clear session")
	} else {
		err = errors.Wrap(s.repo.Save(s.current.Record()), "[Store.persist] save session")
	}
	if err != nil {
		log.Error().Err(err).Msg("session persistence failed")
	}
	return err
}

func (s *Store) notify(current *Session) {
	s.listenersMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(current.copy())
	}
}

func (s *Store) acquire() bool {
	return s.busy.CompareAndSwap(false, true)
}

func (s *Store) release() {
	s.mu.Lock()
	changed := s.changed
	s.changed = false
	current := s.current.copy()
	s.mu.Unlock()

	s.busy.Store(false)
	if changed {
		s.notify(current)
	}
}

func (s *Session) copy() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
