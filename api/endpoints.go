package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Operation names an endpoint for messages and metrics.
type Operation string

const (
	OpRoot                  Operation = "root"
	OpRateLimitProbe        Operation = "rate_limit_probe"
	OpLogin                 Operation = "login"
	OpRefresh               Operation = "refresh"
	OpLogout                Operation = "logout"
	OpGetUser               Operation = "get_user"
	OpUpdateUserPermissions Operation = "update_user_permissions"
	OpListUsers             Operation = "list_users"
)

// Route path constants
const (
	RouteRoot    = "/"
	RouteLogin   = "/login"
	RouteRefresh = "/refresh"
	RouteLogout  = "/logout"
	RouteUsers   = "/users/"
	RouteList    = "/users"

	// BypassAccepted is the echo value of a valid rate-limit bypass token.
	BypassAccepted = "valid"
)

func userPath(id string) string {
	return RouteUsers + url.PathEscape(id)
}

func userPermissionsPath(id string) string {
	return userPath(id) + "/permissions"
}

// Root checks the API is reachable. Recognized: 429.
func (c *Client) Root(ctx context.Context) (result Response[RootResponse]) {
	defer func(start time.Time) { c.observe(OpRoot, start, result) }(c.nowFunc())

	var root RootResponse
	resp, err := c.do(ctx, c.requestConfig(http.MethodGet, RouteRoot, nil, ""), &root)
	if err != nil {
		return classifyFailure(err)
	}
	return Success[RootResponse]{Data: root, Status: resp.StatusCode}
}

// ProbeRateLimitBypass sends token as the bypass header regardless of the
// configured one. Success carries the echoed acceptance; a 200 without it is a
// RecognizedFailure meaning the token is invalid. Recognized: 200, 429.
func (c *Client) ProbeRateLimitBypass(ctx context.Context, token string) (result Response[string]) {
	defer func(start time.Time) { c.observe(OpRateLimitProbe, start, result) }(c.nowFunc())

	base := BaseFromSettings(c.settings.Get())
	base.RateLimitBypassToken = token

	resp, err := c.do(ctx, BuildRequestConfig(base, http.MethodGet, RouteRoot, nil, ""), nil)
	if err != nil {
		return classifyFailure(err)
	}
	if resp.StatusCode != http.StatusOK {
		return GenericFailureFrom(resp)
	}

	echo := resp.Header.Get(HeaderRateLimitBypassEcho)
	if echo != BypassAccepted {
		return RecognizedFailure{Status: http.StatusOK, Message: "rate limit bypass token was not accepted"}
	}
	return Success[string]{Data: echo, Status: resp.StatusCode}
}

// Login exchanges a Discord authorization code for a session.
// Recognized: 400, 500, 501, 429.
func (c *Client) Login(ctx context.Context, code, redirectURI string) (result Response[SessionPayload]) {
	defer func(start time.Time) { c.observe(OpLogin, start, result) }(c.nowFunc())

	body := LoginRequest{Code: code, RedirectURI: redirectURI}

	var payload SessionPayload
	resp, err := c.do(ctx, c.requestConfig(http.MethodPost, RouteLogin, body, ""), &payload)
	if err != nil {
		return classifyFailure(err,
			http.StatusBadRequest,
			http.StatusInternalServerError,
			http.StatusNotImplemented,
		)
	}
	return sessionSuccess(resp, payload)
}

// Refresh renews siteToken. Recognized: 400, 401, 404, 500, 501, 429.
func (c *Client) Refresh(ctx context.Context, siteToken string) (result Response[SessionPayload]) {
	defer func(start time.Time) { c.observe(OpRefresh, start, result) }(c.nowFunc())

	var payload SessionPayload
	resp, err := c.do(ctx, c.requestConfig(http.MethodGet, RouteRefresh, nil, siteToken), &payload)
	if err != nil {
		return classifyFailure(err,
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
			http.StatusNotImplemented,
		)
	}
	return sessionSuccess(resp, payload)
}

// Logout revokes siteToken. Recognized: 400, 401, 429.
func (c *Client) Logout(ctx context.Context, siteToken string) (result Response[struct{}]) {
	defer func(start time.Time) { c.observe(OpLogout, start, result) }(c.nowFunc())

	resp, err := c.do(ctx, c.requestConfig(http.MethodGet, RouteLogout, nil, siteToken), nil)
	if err != nil {
		return classifyFailure(err,
			http.StatusBadRequest,
			http.StatusUnauthorized,
		)
	}
	return Success[struct{}]{Status: resp.StatusCode}
}

// GetUser fetches a profile. siteToken may be empty for anonymous access.
// Recognized: 401, 404, 429.
func (c *Client) GetUser(ctx context.Context, id, siteToken string) (result Response[User]) {
	defer func(start time.Time) { c.observe(OpGetUser, start, result) }(c.nowFunc())

	var user User
	resp, err := c.do(ctx, c.requestConfig(http.MethodGet, userPath(id), nil, siteToken), &user)
	if err != nil {
		return classifyFailure(err,
			http.StatusUnauthorized,
			http.StatusNotFound,
		)
	}
	return Success[User]{Data: user, Status: resp.StatusCode}
}

// UpdateUserPermissions replaces a user's permission bitmask and returns the
// updated profile. Recognized: 400, 401, 403, 404, 501, 429.
func (c *Client) UpdateUserPermissions(ctx context.Context, id string, permissions Permissions, siteToken string) (result Response[User]) {
	defer func(start time.Time) { c.observe(OpUpdateUserPermissions, start, result) }(c.nowFunc())

	body := PermissionsRequest{Permissions: permissions}

	var user User
	resp, err := c.do(ctx, c.requestConfig(http.MethodPatch, userPermissionsPath(id), body, siteToken), &user)
	if err != nil {
		return classifyFailure(err,
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusNotImplemented,
		)
	}
	return Success[User]{Data: user, Status: resp.StatusCode}
}

// ListUsers returns one page of users ordered by ID. A limit of 0 lets the
// server choose the page size. Requires the assign permissions flag.
// Recognized: 400, 401, 403, 429.
func (c *Client) ListUsers(ctx context.Context, offset, limit int, siteToken string) (result Response[[]User]) {
	defer func(start time.Time) { c.observe(OpListUsers, start, result) }(c.nowFunc())

	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var users []User
	resp, err := c.do(ctx, c.requestConfig(http.MethodGet, RouteList+"?"+query.Encode(), nil, siteToken), &users)
	if err != nil {
		return classifyFailure(err,
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
		)
	}
	return Success[[]User]{Data: users, Status: resp.StatusCode}
}

// sessionSuccess rejects a payload without a site token, so an empty-token
// session can never be built from it.
func sessionSuccess(resp *http.Response, payload SessionPayload) Response[SessionPayload] {
	if payload.SiteToken == "" {
		return GenericFailure{Status: resp.StatusCode, StatusText: "malformed response: missing site token"}
	}
	return Success[SessionPayload]{Data: payload, Status: resp.StatusCode}
}
