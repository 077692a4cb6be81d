package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-curation-client/api"
	"github.com/jrsteele09/go-curation-client/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...api.ClientOption) (*api.Client, *config.SettingsStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := config.DefaultSettings()
	s.ServerURL = srv.URL
	store, err := config.NewSettingsStore("", s)
	require.NoError(t, err)

	return api.NewClient(store, opts...), store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func samplePayload(token string) api.SessionPayload {
	return api.SessionPayload{
		UserData:         api.User{ID: "u1", Username: "ferris", Permissions: api.PermissionComment | api.PermissionSubmit},
		ExpiresInSeconds: 3600,
		SiteToken:        token,
		Type:             api.SessionTypeLogin,
	}
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got api.LoginRequest
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/login", r.URL.Path)
			assert.Empty(t, r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeJSON(w, http.StatusOK, samplePayload("abc"))
		}))

		resp := client.Login(context.Background(), "code-1", "http://localhost:3000/login")
		success, ok := resp.(api.Success[api.SessionPayload])
		require.True(t, ok, "got %#v", resp)
		require.Equal(t, "abc", success.Data.SiteToken)
		require.Equal(t, 3600, success.Data.ExpiresInSeconds)
		require.Equal(t, api.LoginRequest{Code: "code-1", RedirectURI: "http://localhost:3000/login"}, got)
	})

	t.Run("declared status is recognized", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, api.ErrorBody{Message: "invalid code"})
		}))

		resp := client.Login(context.Background(), "bad", "http://localhost:3000/login")
		require.Equal(t, api.RecognizedFailure{Status: http.StatusBadRequest, Message: "invalid code"}, resp)
	})

	t.Run("undeclared status is generic", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		resp := client.Login(context.Background(), "code", "http://localhost:3000/login")
		require.Equal(t, api.GenericFailure{Status: http.StatusBadGateway, StatusText: "Bad Gateway"}, resp)
	})

	t.Run("rate limited", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "5")
			w.Header().Set("RateLimit-Limit", "10")
			w.Header().Set("RateLimit-Remaining", "0")
			w.Header().Set("RateLimit-Reset", "5")
			w.WriteHeader(http.StatusTooManyRequests)
		}))

		resp := client.Login(context.Background(), "code", "http://localhost:3000/login")
		require.Equal(t, api.RateLimited{After: 5, Limit: 10, Remaining: 0, Reset: 5}, resp)
	})

	t.Run("missing site token is malformed", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, samplePayload(""))
		}))

		resp := client.Login(context.Background(), "code", "http://localhost:3000/login")
		require.Equal(t, api.KindGenericFailure, resp.Kind())
	})

	t.Run("undecodable body is malformed", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("not json"))
		}))

		resp := client.Login(context.Background(), "code", "http://localhost:3000/login")
		require.Equal(t, api.GenericFailure{Status: http.StatusOK, StatusText: "malformed response"}, resp)
	})
}

func TestRefresh(t *testing.T) {
	t.Run("sends bearer credential", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
			p := samplePayload("def")
			p.Type = api.SessionTypeRefresh
			writeJSON(w, http.StatusOK, p)
		}))

		resp := client.Refresh(context.Background(), "abc")
		success, ok := resp.(api.Success[api.SessionPayload])
		require.True(t, ok, "got %#v", resp)
		require.Equal(t, "def", success.Data.SiteToken)
		require.Equal(t, api.SessionTypeRefresh, success.Data.Type)
	})

	t.Run("unauthorized is recognized", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		resp := client.Refresh(context.Background(), "abc")
		require.Equal(t, api.RecognizedFailure{Status: http.StatusUnauthorized}, resp)
	})

	t.Run("cancellation mid-flight", func(t *testing.T) {
		started := make(chan struct{})
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-r.Context().Done()
		}))

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()

		resp := client.Refresh(ctx, "abc")
		require.Equal(t, api.Canceled{}, resp)
	})

	t.Run("network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		s := config.DefaultSettings()
		s.ServerURL = url
		store, err := config.NewSettingsStore("", s)
		require.NoError(t, err)

		resp := api.NewClient(store).Refresh(context.Background(), "abc")
		require.Equal(t, api.GenericFailure{Status: 0, StatusText: "unknown error"}, resp)
	})
}

func TestLogout(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			writeJSON(w, http.StatusUnauthorized, api.ErrorBody{Message: "invalid token"})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, api.Success[struct{}]{Status: http.StatusOK}, client.Logout(context.Background(), "abc"))
	require.Equal(t,
		api.RecognizedFailure{Status: http.StatusUnauthorized, Message: "invalid token"},
		client.Logout(context.Background(), "zzz"),
	)
}

func TestGetUser(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		if r.URL.Path != "/users/u1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, api.User{ID: "u1", Username: "ferris"})
	}))

	resp := client.GetUser(context.Background(), "u1", "")
	success, ok := resp.(api.Success[api.User])
	require.True(t, ok, "got %#v", resp)
	require.Equal(t, "ferris", success.Data.Username)

	require.Equal(t, api.RecognizedFailure{Status: http.StatusNotFound}, client.GetUser(context.Background(), "nobody", ""))
}

func TestUpdateUserPermissions(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/users/u2/permissions", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer admin" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var body api.PermissionsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, api.User{ID: "u2", Permissions: body.Permissions})
	}))

	resp := client.UpdateUserPermissions(context.Background(), "u2", api.PermissionAudit, "admin")
	success, ok := resp.(api.Success[api.User])
	require.True(t, ok, "got %#v", resp)
	require.Equal(t, api.PermissionAudit, success.Data.Permissions)

	denied := client.UpdateUserPermissions(context.Background(), "u2", api.PermissionAudit, "user")
	require.Equal(t, api.RecognizedFailure{Status: http.StatusForbidden}, denied)
}

func TestListUsers(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer admin" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.Equal(t, "2", r.URL.Query().Get("offset"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, []api.User{{ID: "u3", Username: "crab"}})
	}))

	resp := client.ListUsers(context.Background(), 2, 1, "admin")
	success, ok := resp.(api.Success[[]api.User])
	require.True(t, ok, "got %#v", resp)
	require.Equal(t, []api.User{{ID: "u3", Username: "crab"}}, success.Data)

	require.Equal(t, api.RecognizedFailure{Status: http.StatusForbidden}, client.ListUsers(context.Background(), 2, 1, "user"))
}

func TestProbeRateLimitBypass(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("RateLimit-Bypass-Token") {
		case "good":
			w.Header().Set("RateLimit-Bypass-Response", "valid")
		case "broken":
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, api.RootResponse{Version: "1.0.0"})
	})

	client, store := newTestClient(t, handler)
	_, err := store.Update(func(s *config.Settings) { s.RateLimitBypassToken = "configured" })
	require.NoError(t, err)

	require.Equal(t, api.Success[string]{Data: "valid", Status: http.StatusOK}, client.ProbeRateLimitBypass(context.Background(), "good"))
	require.Equal(t, api.KindRecognizedFailure, client.ProbeRateLimitBypass(context.Background(), "bad").Kind())
	require.Equal(t, api.GenericFailure{Status: http.StatusServiceUnavailable, StatusText: "Service Unavailable"},
		client.ProbeRateLimitBypass(context.Background(), "broken"))
}

func TestRoot(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.RootResponse{
			Version:         "1.0.0",
			ReceivedRequest: api.ReceivedRequest{Method: r.Method, URL: r.URL.String()},
		})
	}))
	resp := client.Root(context.Background())
	success, ok := resp.(api.Success[api.RootResponse])
	require.True(t, ok, "got %#v", resp)
	require.Equal(t, "1.0.0", success.Data.Version)
	require.Equal(t, http.MethodGet, success.Data.ReceivedRequest.Method)
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := api.NewMetrics(reg)

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), api.WithMetrics(metrics))

	client.Refresh(context.Background(), "abc")
	client.Refresh(context.Background(), "abc")
	client.Logout(context.Background(), "abc")

	require.Equal(t, 2.0, testutil.ToFloat64(metrics.Responses.WithLabelValues("refresh", "recognized_failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Responses.WithLabelValues("logout", "recognized_failure")))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.Responses.WithLabelValues("refresh", "success")))
	require.Equal(t, 2, testutil.CollectAndCount(metrics.RequestDuration))
}
