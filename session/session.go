package session

import (
	"time"

	"github.com/jrsteele09/go-curation-client/api"
)

// Session is the client's authenticated identity and its bearer credential.
// A Session always carries a non-empty SiteToken; the absence of a session is
// a nil *Session, never an empty one.
type Session struct {
	User             api.User
	SiteToken        string
	ExpiresInSeconds int
	IssuedAt         time.Time       // When SiteToken was set
	FirstIssuedAt    time.Time       // When the login lineage began, survives refreshes
	OperationType    api.SessionType // Informational only
}

// ExpiresAt is when the current SiteToken stops being valid.
func (s Session) ExpiresAt() time.Time {
	return s.IssuedAt.Add(time.Duration(s.ExpiresInSeconds) * time.Second)
}

// Record is the persisted form of a Session.
type Record struct {
	UserData         api.User        `json:"userData"`
	ExpiresInSeconds int             `json:"expiresInSeconds"`
	SiteToken        string          `json:"siteToken"`
	Type             api.SessionType `json:"type"`
	SetAt            time.Time       `json:"setAt"`
	FirstSetAt       time.Time       `json:"firstSetAt"`
}

// Record converts s to its persisted form.
func (s Session) Record() *Record {
	return &Record{
		UserData:         s.User,
		ExpiresInSeconds: s.ExpiresInSeconds,
		SiteToken:        s.SiteToken,
		Type:             s.OperationType,
		SetAt:            s.IssuedAt,
		FirstSetAt:       s.FirstIssuedAt,
	}
}

// Session converts a persisted record back to a Session.
func (r *Record) Session() Session {
	return Session{
		User:             r.UserData,
		SiteToken:        r.SiteToken,
		ExpiresInSeconds: r.ExpiresInSeconds,
		IssuedAt:         r.SetAt,
		FirstIssuedAt:    r.FirstSetAt,
		OperationType:    r.Type,
	}
}

func newSession(payload api.SessionPayload, issuedAt, firstIssuedAt time.Time) *Session {
	return &Session{
		User:             payload.UserData,
		SiteToken:        payload.SiteToken,
		ExpiresInSeconds: payload.ExpiresInSeconds,
		IssuedAt:         issuedAt,
		FirstIssuedAt:    firstIssuedAt,
		OperationType:    payload.Type,
	}
}
