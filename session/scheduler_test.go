package session_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-curation-client/api"
	"github.com/jrsteele09/go-curation-client/session"
	"github.com/jrsteele09/go-curation-client/session/repofakes"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRefreshDelay(t *testing.T) {
	minWait, maxWait := 30*time.Second, time.Hour

	tests := []struct {
		name      string
		expiresIn int
		elapsed   time.Duration
		want      time.Duration
	}{
		{"half the lifetime", 3600, 0, 30 * time.Minute},
		{"partially elapsed", 3600, 10 * time.Minute, 20 * time.Minute},
		{"clamped to minimum", 10, 0, 30 * time.Second},
		{"clamped to maximum", 7 * 24 * 3600, 0, time.Hour},
		{"overdue is immediate", 60, 5 * time.Minute, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := session.Session{SiteToken: "abc", ExpiresInSeconds: tt.expiresIn, IssuedAt: t0}
			require.Equal(t, tt.want, session.RefreshDelay(s, t0.Add(tt.elapsed), minWait, maxWait))
		})
	}
}

func TestScheduler_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	refreshed := make(chan string, 4)
	auth := &fakeAuthenticator{
		renew: func(_ context.Context, siteToken string) api.Response[api.SessionPayload] {
			return succeed(siteToken+"+", api.SessionTypeRefresh)
		},
	}

	// Issued long ago, so the first refresh is due immediately and the next
	// one is at least the minimum wait away.
	repo := repofakes.NewFakeSessionRepoWith(persisted("abc", time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))
	settings := newSettings(t)
	store, err := session.NewStore(auth, repo, settings)
	require.NoError(t, err)

	scheduler := session.NewScheduler(store, settings, session.WithRefreshResult(func(r api.Response[api.SessionPayload]) {
		if s, ok := r.(api.Success[api.SessionPayload]); ok {
			refreshed <- s.Data.SiteToken
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	select {
	case token := <-refreshed:
		require.Equal(t, "abc+", token)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not refresh an overdue session")
	}
	require.Equal(t, "abc+", store.Current().SiteToken)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	require.Equal(t, []string{"refresh:abc"}, auth.Calls())
}

func TestScheduler_IdleUntilLogin(t *testing.T) {
	defer goleak.VerifyNone(t)

	auth := &fakeAuthenticator{
		login: func(context.Context, string, string) api.Response[api.SessionPayload] {
			return succeed("abc", api.SessionTypeLogin)
		},
		renew: func(context.Context, string) api.Response[api.SessionPayload] {
			return api.RecognizedFailure{Status: http.StatusUnauthorized}
		},
	}
	settings := newSettings(t)
	clock := newTestClock(time.Now().Add(-time.Hour))
	store, err := session.NewStore(auth, repofakes.NewFakeSessionRepo(), settings, session.WithNowTime(clock.Now))
	require.NoError(t, err)

	cleared := make(chan struct{})
	unsubscribe := store.Subscribe(func(current *session.Session) {
		if current == nil {
			close(cleared)
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.NewScheduler(store, settings).Run(ctx) }()

	// The login is stamped an hour in the past, so the scheduler refreshes at
	// once; the 401 clears the session and the scheduler goes idle again.
	_, err = store.Login(context.Background(), "code")
	require.NoError(t, err)

	select {
	case <-cleared:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh failure did not clear the session")
	}
	require.False(t, store.Authenticated())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
