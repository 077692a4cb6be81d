package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-curation-client/api"
	"github.com/jrsteele09/go-curation-client/cmd/curator/cmd"
	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
	"github.com/jrsteele09/go-curation-client/server"
	"github.com/jrsteele09/go-curation-client/server/userrepo"
	"github.com/stretchr/testify/require"
)

type cli struct {
	dataDir string
	codes   *server.StaticCodeExchanger
	users   *userrepo.InMemoryRepo
	url     string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	c := &cli{
		dataDir: t.TempDir(),
		codes:   server.NewStaticCodeExchanger(),
		users:   userrepo.NewInMemoryRepo(),
	}
	srv, err := server.New(c.users, c.codes, server.WithVersion("1.2.3"))
	require.NoError(t, err)
	httpServer := httptest.NewServer(srv)
	t.Cleanup(httpServer.Close)
	c.url = httpServer.URL

	_, err = c.run("settings", "set", "serverUrl="+c.url)
	require.NoError(t, err)
	return c
}

// run executes one CLI invocation, so every call reloads settings and the
// session from the data folder.
func (c *cli) run(args ...string) (string, error) {
	root := cmd.NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--data", c.dataDir, "--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSessionCommands(t *testing.T) {
	c := newCLI(t)
	c.codes.Register("code-1", server.DiscordIdentity{ID: "111", Username: "ferris"})

	out, err := c.run("status")
	require.NoError(t, err)
	require.Contains(t, out, c.url)
	require.Contains(t, out, "not logged in")

	out, err = c.run("login", "--code", "code-1")
	require.NoError(t, err)
	require.Equal(t, "Registered as ferris\n", out)

	out, err = c.run("status")
	require.NoError(t, err)
	require.Contains(t, out, "ferris (111)")
	require.Contains(t, out, "refresh in:")

	out, err = c.run("refresh")
	require.NoError(t, err)
	require.Contains(t, out, "Session refreshed")

	out, err = c.run("whoami", "--remote")
	require.NoError(t, err)
	require.Contains(t, out, "permissions: comment|submit")

	_, err = c.run("grant", "111", "comment|audit")
	require.EqualError(t, err, "You do not have permission to do that.")
	_, err = c.run("users")
	require.EqualError(t, err, "You do not have permission to do that.")

	out, err = c.run("logout")
	require.NoError(t, err)
	require.Equal(t, "Logged out\n", out)

	out, err = c.run("logout")
	require.NoError(t, err)
	require.Equal(t, "not logged in\n", out)

	_, err = c.run("whoami")
	require.ErrorIs(t, err, cerrors.ErrNoSession)

	_, err = c.run("refresh")
	require.ErrorIs(t, err, cerrors.ErrNoSession)
}

func TestLoginCommand_Failures(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("login")
	require.EqualError(t, err, "exactly one of --callback or --code is required")

	_, err = c.run("login", "--code", "nope")
	require.EqualError(t, err, "Discord rejected the login: invalid authorization code. Please try logging in again.")

	_, err = c.run("login-url")
	require.ErrorContains(t, err, "discordApplicationId is not set")

	_, err = c.run("settings", "set", "discordApplicationId=1234")
	require.NoError(t, err)
	out, err := c.run("login-url")
	require.NoError(t, err)
	require.Contains(t, out, "client_id=1234")
	require.Contains(t, out, "state=")

	_, err = c.run("login", "--callback", "http://localhost:3000/login?code=code-2&state=forged")
	require.ErrorIs(t, err, cerrors.ErrStateMismatch)
}

func TestGrantCommand(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, c.users.Upsert(&api.User{ID: "admin", Username: "admin", Permissions: api.PermissionAssignPermissions}))
	require.NoError(t, c.users.Upsert(&api.User{ID: "111", Username: "ferris", Permissions: api.PermissionComment}))
	c.codes.Register("admin-code", server.DiscordIdentity{ID: "admin", Username: "admin"})

	out, err := c.run("login", "--code", "admin-code")
	require.NoError(t, err)
	require.Equal(t, "Logged in as admin\n", out)

	out, err = c.run("grant", "111", "comment,audit")
	require.NoError(t, err)
	require.Equal(t, "ferris now has comment|audit\n", out)

	out, err = c.run("user", "111")
	require.NoError(t, err)
	require.Contains(t, out, "permissions: comment|audit")

	// Granting to yourself updates the local session too.
	_, err = c.run("grant", "admin", "audit|assign_permissions")
	require.NoError(t, err)
	out, err = c.run("whoami")
	require.NoError(t, err)
	require.Contains(t, out, "permissions: audit|assign_permissions")

	// Users are ordered by ID, so "111" comes before "admin".
	out, err = c.run("users", "--limit", "1")
	require.NoError(t, err)
	require.Contains(t, out, "ferris")
	require.NotContains(t, out, "admin")
	out, err = c.run("users", "--offset", "1")
	require.NoError(t, err)
	require.Contains(t, out, "admin")
	require.NotContains(t, out, "ferris")

	_, err = c.run("grant", "999", "audit")
	require.EqualError(t, err, "User not found.")
	_, err = c.run("grant", "111", "fly")
	require.EqualError(t, err, `unknown permission "fly"`)
}

func TestPingAndProbe(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("ping")
	require.NoError(t, err)
	require.Contains(t, out, "API 1.2.3 up since")

	_, err = c.run("probe")
	require.EqualError(t, err, "no bypass token given or configured")

	_, err = c.run("probe", "guess")
	require.EqualError(t, err, "The rate limit bypass token is invalid.")
}

func TestSettingsCommands(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("settings", "set", "minRefreshSeconds=45", "maxRefreshMinutes=30")
	require.NoError(t, err)
	require.Contains(t, out, `"minRefreshSeconds": 45`)

	out, err = c.run("settings", "show")
	require.NoError(t, err)
	require.Contains(t, out, `"maxRefreshMinutes": 30`)
	require.Contains(t, out, c.url)

	_, err = c.run("settings", "set", "minRefreshSeconds=soon")
	require.ErrorContains(t, err, "not a whole number")
	_, err = c.run("settings", "set", "colour=blue")
	require.ErrorContains(t, err, "expected <key>=<value>")
	_, err = c.run("settings", "set", "serverUrl=not a url")
	require.Error(t, err)

	out, err = c.run("settings", "reset")
	require.NoError(t, err)
	require.Contains(t, out, `"serverUrl": "http://localhost:5000"`)
}

func TestSettingsSet_DoesNotPersistEnvOverrides(t *testing.T) {
	c := newCLI(t)
	t.Setenv("CURATOR_SERVERURL", "https://transient.example.com")

	out, err := c.run("settings", "set", "minRefreshSeconds=45")
	require.NoError(t, err)
	require.Contains(t, out, "https://transient.example.com")

	raw, err := os.ReadFile(filepath.Join(c.dataDir, "settings.json"))
	require.NoError(t, err)
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Equal(t, c.url, persisted["serverUrl"])
	require.Equal(t, float64(45), persisted["minRefreshSeconds"])
}
