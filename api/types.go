package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Permissions is the user's permission bitmask as issued by the API.
type Permissions uint32

const (
	PermissionComment           Permissions = 1 << iota // Comment on submissions
	PermissionSubmit                                    // Submit images for review
	PermissionUpload                                    // Upload images directly, skipping review
	PermissionAudit                                     // Review, tag, approve and reject submissions
	PermissionAssignPermissions                         // Change other users' permissions
)

var permissionNames = []struct {
	flag Permissions
	name string
}{
	{PermissionComment, "comment"},
	{PermissionSubmit, "submit"},
	{PermissionUpload, "upload"},
	{PermissionAudit, "audit"},
	{PermissionAssignPermissions, "assign_permissions"},
}

// Has reports whether every bit of flag is set.
func (p Permissions) Has(flag Permissions) bool {
	return p&flag == flag
}

func (p Permissions) String() string {
	if p == 0 {
		return "none"
	}
	var names []string
	for _, pn := range permissionNames {
		if p.Has(pn.flag) {
			names = append(names, pn.name)
		}
	}
	return strings.Join(names, "|")
}

// ParsePermissions reads a bitmask written either as a number or as flag
// names joined by "|" or ",", e.g. "comment|audit".
func ParsePermissions(s string) (Permissions, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return Permissions(n), nil
	}
	if s == "none" {
		return 0, nil
	}

	var p Permissions
	for _, name := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		name = strings.ToLower(strings.TrimSpace(name))
		found := false
		for _, pn := range permissionNames {
			if pn.name == name {
				p |= pn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown permission %q", name)
		}
	}
	if p == 0 {
		return 0, fmt.Errorf("no permissions in %q", s)
	}
	return p, nil
}

// User is the profile the API returns for an account.
type User struct {
	ID            string      `json:"_id"`
	Type          string      `json:"type"` // Account origin, "discord"
	Username      string      `json:"username"`
	Discriminator string      `json:"discriminator,omitempty"`
	Avatar        string      `json:"avatar,omitempty"`
	Permissions   Permissions `json:"permissions"`
	Registered    time.Time   `json:"registered"`
	LastLogin     time.Time   `json:"latestLogin"`
	Submissions   int         `json:"submissions"`
	Posts         int         `json:"posts"`
	Comments      int         `json:"comments"`
}

// SessionType marks which operation produced a session payload.
type SessionType string

const (
	SessionTypeLogin    SessionType = "login"
	SessionTypeRefresh  SessionType = "refresh"
	SessionTypeRegister SessionType = "register"
)

// SessionPayload is returned by the login and refresh endpoints.
type SessionPayload struct {
	UserData         User        `json:"userData"`
	ExpiresInSeconds int         `json:"expiresInSeconds"`
	SiteToken        string      `json:"siteToken"`
	Type             SessionType `json:"type"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// PermissionsRequest is the body of PATCH /users/:id/permissions.
type PermissionsRequest struct {
	Permissions Permissions `json:"permissions"`
}

// RootResponse is the API's health and version document.
type RootResponse struct {
	StartTime       time.Time       `json:"startTime"`
	Version         string          `json:"version"`
	ReceivedRequest ReceivedRequest `json:"receivedRequest"`
}

// ReceivedRequest echoes what the API saw of the caller's request.
type ReceivedRequest struct {
	IP        string `json:"ip"`
	Method    string `json:"method"`
	URL       string `json:"url"`
	UserAgent string `json:"userAgent"`
}

// ErrorBody is the JSON shape of error responses that carry a reason.
type ErrorBody struct {
	Message string `json:"message"`
}
