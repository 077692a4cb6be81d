package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-curation-client/api"
	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
	"github.com/rs/zerolog/log"
)

var errMissingToken = errors.New("missing site token")

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorBody{Message: message})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(api.HeaderAuthorization)
	if header == "" {
		return "", errMissingToken
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

// authenticate resolves the bearer token to its claims, writing 400 for a
// missing token and 401 for an unusable one.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*SiteClaims, bool) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		log.Debug().Err(err).Msg("rejected site token")
		writeError(w, http.StatusUnauthorized, err.Error())
		return nil, false
	}
	return claims, true
}

func (s *Server) sessionPayload(user *api.User, typ api.SessionType) (api.SessionPayload, error) {
	token, expiresIn, err := s.tokens.Issue(user.ID)
	if err != nil {
		return api.SessionPayload{}, err
	}
	return api.SessionPayload{
		UserData:         *user,
		ExpiresInSeconds: expiresIn,
		SiteToken:        token,
		Type:             typ,
	}, nil
}

// RootHandler reports the server version and echoes the request.
func (s *Server) RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.RootResponse{
			StartTime: s.startTime,
			Version:   s.version,
			ReceivedRequest: api.ReceivedRequest{
				IP:        clientKey(r),
				Method:    r.Method,
				URL:       r.URL.String(),
				UserAgent: r.UserAgent(),
			},
		})
	}
}

// LoginHandler exchanges a Discord code, registering the user on first login.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Code == "" || req.RedirectURI == "" {
			writeError(w, http.StatusBadRequest, "code and redirect_uri are required")
			return
		}

		identity, err := s.codes.Exchange(r.Context(), req.Code, req.RedirectURI)
		if errors.Is(err, ErrInvalidCode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("discord code exchange failed")
			writeError(w, http.StatusInternalServerError, "failed to contact discord")
			return
		}

		now := s.nowTime()
		typ := api.SessionTypeLogin
		user, err := s.users.GetByID(identity.ID)
		if errors.Is(err, cerrors.ErrNotFound) {
			typ = api.SessionTypeRegister
			user = &api.User{
				ID:          identity.ID,
				Type:        "discord",
				Permissions: api.PermissionComment | api.PermissionSubmit,
				Registered:  now,
			}
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		user.Username = identity.Username
		user.Discriminator = identity.Discriminator
		user.Avatar = identity.Avatar
		user.LastLogin = now
		if err := s.users.Upsert(user); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		payload, err := s.sessionPayload(user, typ)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		log.Info().Str("user", user.ID).Str("type", string(typ)).Msg("user logged in")
		writeJSON(w, http.StatusOK, payload)
	}
}

// RefreshHandler swaps a valid site token for a new one and revokes the old.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.authenticate(w, r)
		if !ok {
			return
		}

		user, err := s.users.GetByID(claims.Subject)
		if errors.Is(err, cerrors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		payload, err := s.sessionPayload(user, api.SessionTypeRefresh)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.tokens.Revoke(claims)
		writeJSON(w, http.StatusOK, payload)
	}
}

// LogoutHandler revokes the caller's site token.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		s.tokens.Revoke(claims)
		log.Info().Str("user", claims.Subject).Msg("user logged out")
		w.WriteHeader(http.StatusOK)
	}
}

// GetUserHandler serves a profile. Anonymous access is allowed, but a
// credential that is sent must be valid.
func (s *Server) GetUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token, err := bearerToken(r); err == nil {
			if _, err := s.tokens.Verify(token); err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
		}

		user, err := s.users.GetByID(r.PathValue("id"))
		if errors.Is(err, cerrors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// UpdatePermissionsHandler lets a user holding the assign permission replace
// another user's permission bitmask.
func (s *Server) UpdatePermissionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		var req api.PermissionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		caller, err := s.users.GetByID(claims.Subject)
		if err != nil || !caller.Permissions.Has(api.PermissionAssignPermissions) {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		user, err := s.users.SetPermissions(r.PathValue("id"), req.Permissions)
		if errors.Is(err, cerrors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		log.Info().Str("by", caller.ID).Str("user", user.ID).Stringer("permissions", user.Permissions).Msg("permissions updated")
		writeJSON(w, http.StatusOK, user)
	}
}

// ListUsersHandler pages through all users for callers holding the assign
// permission.
func (s *Server) ListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.authenticate(w, r)
		if !ok {
			return
		}

		offset, limit, err := pageParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		caller, err := s.users.GetByID(claims.Subject)
		if err != nil || !caller.Permissions.Has(api.PermissionAssignPermissions) {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		users, err := s.users.List(offset, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func pageParams(r *http.Request) (offset, limit int, err error) {
	q := r.URL.Query()
	limit = defaultPageSize
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > maxPageSize {
			return 0, 0, errors.New("limit must be between 1 and 100")
		}
	}
	return offset, limit, nil
}
