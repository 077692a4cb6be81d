package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const siteTokenIssuer = "curation-api"

var (
	ErrInvalidToken = errors.New("invalid site token")
	ErrRevokedToken = errors.New("site token has been revoked")
)

// SiteClaims are the claims carried by a site token.
type SiteClaims struct {
	jwtlib.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 site tokens.
type TokenIssuer struct {
	key     []byte
	ttl     time.Duration
	revoked *RevokedTokenCache
	nowTime func() time.Time
}

func NewTokenIssuer(key []byte, ttl time.Duration, nowTime func() time.Time) *TokenIssuer {
	return &TokenIssuer{
		key:     key,
		ttl:     ttl,
		revoked: NewRevokedTokenCache(nowTime),
		nowTime: nowTime,
	}
}

// Issue returns a signed token for userID and its lifetime in seconds.
func (ti *TokenIssuer) Issue(userID string) (string, int, error) {
	now := ti.nowTime()
	claims := SiteClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    siteTokenIssuer,
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ti.ttl)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(ti.key)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign site token: %w", err)
	}
	return signed, int(ti.ttl / time.Second), nil
}

// Verify checks signature, expiry and revocation.
func (ti *TokenIssuer) Verify(token string) (*SiteClaims, error) {
	claims := &SiteClaims{}
	_, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		return ti.key, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(siteTokenIssuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(ti.nowTime),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if ti.revoked.IsRevoked(claims.ID) {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Revoke rejects the token identified by claims until it would have expired.
func (ti *TokenIssuer) Revoke(claims *SiteClaims) {
	ti.revoked.Add(claims.ID, claims.ExpiresAt.Time)
}

// RevokedTokenCache remembers revoked token IDs until their expiry.
type RevokedTokenCache struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
	nowTime func() time.Time
}

func NewRevokedTokenCache(nowTime func() time.Time) *RevokedTokenCache {
	return &RevokedTokenCache{
		revoked: make(map[string]time.Time),
		nowTime: nowTime,
	}
}

// Add revokes jti and drops entries that have already expired.
func (c *RevokedTokenCache) Add(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowTime()
	for id, e := range c.revoked {
		if now.After(e) {
			delete(c.revoked, id)
		}
	}
	c.revoked[jti] = exp
}

func (c *RevokedTokenCache) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}
