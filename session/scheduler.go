package session

import (
	"context"
	"time"

	"github.com/jrsteele09/go-curation-client/api"
	"github.com/jrsteele09/go-curation-client/internal/config"
	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Scheduler refreshes the store's session before its token expires.
type Scheduler struct {
	store    *Store
	settings config.SettingsReader
	nowTime  func() time.Time
	onResult func(api.Response[api.SessionPayload])
}

// SchedulerOption defines a function type to modify the Scheduler instance.
type SchedulerOption func(*Scheduler)

// WithSchedulerNowTime sets the now time function (primarily for testing)
func WithSchedulerNowTime(nowFunc func() time.Time) SchedulerOption {
	return func(sc *Scheduler) {
		sc.nowTime = nowFunc
	}
}

// WithRefreshResult registers fn to receive the outcome of every automatic
// refresh.
func WithRefreshResult(fn func(api.Response[api.SessionPayload])) SchedulerOption {
	return func(sc *Scheduler) {
		sc.onResult = fn
	}
}

func NewScheduler(store *Store, settings config.SettingsReader, opts ...SchedulerOption) *Scheduler {
	sc := &Scheduler{
		store:    store,
		settings: settings,
		nowTime:  time.Now,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// RefreshDelay is how long to wait from now before refreshing s. The refresh
// is due half way through the token lifetime, with that interval clamped to
// [minWait, maxWait]. An overdue session is refreshed immediately.
func RefreshDelay(s Session, now time.Time, minWait, maxWait time.Duration) time.Duration {
	interval := time.Duration(s.ExpiresInSeconds) * time.Second / 2
	if interval < minWait {
		interval = minWait
	}
	if interval > maxWait {
		interval = maxWait
	}

	delay := s.IssuedAt.Add(interval).Sub(now)
	if delay < 0 {
		return 0
	}
	return delay
}

// Run blocks until ctx is done, refreshing whenever the current session is
// due and re-planning whenever the session changes. It returns ctx.Err().
func (sc *Scheduler) Run(ctx context.Context) error {
	changed := make(chan struct{}, 1)
	unsubscribe := sc.store.Subscribe(func(*Session) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	var backoff time.Duration
	for {
		settings := sc.settings.Get()

		current := sc.store.Current()
		if current == nil {
			log.Debug().Msg("no session, refresh scheduler idle")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-changed:
				continue
			}
		}

		wait := RefreshDelay(*current, sc.nowTime(), settings.MinRefresh(), settings.MaxRefresh())
		if backoff > wait {
			wait = backoff
		}
		log.Debug().Dur("wait", wait).Str("user", current.User.ID).Msg("refresh scheduled")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-changed:
			timer.Stop()
			backoff = 0
			continue
		case <-timer.C:
		}

		result, err := sc.store.Refresh(ctx)
		switch {
		case errors.Is(err, cerrors.ErrOperationInProgress):
			backoff = settings.MinRefresh()
			continue
		case errors.Is(err, cerrors.ErrNoSession):
			continue
		case err != nil:
			log.Error().Err(err).Msg("automatic refresh could not persist the session")
		}
		backoff = 0

		if result != nil {
			if result.Kind() != api.KindSuccess && result.Kind() != api.KindCanceled {
				log.Warn().Str("reason", api.Message(api.OpRefresh, result)).Msg("automatic refresh failed")
			}
			if sc.onResult != nil {
				sc.onResult(result)
			}
		}
	}
}
