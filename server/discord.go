package server

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidCode is returned when Discord rejects an authorization code.
var ErrInvalidCode = errors.New("invalid authorization code")

// DiscordIdentity is the profile Discord returns for an exchanged code.
type DiscordIdentity struct {
	ID            string
	Username      string
	Discriminator string
	Avatar        string
}

// CodeExchanger trades an authorization code for the Discord identity behind it.
type CodeExchanger interface {
	Exchange(ctx context.Context, code, redirectURI string) (DiscordIdentity, error)
}

// devIdentityNamespace derives stable user IDs for development codes.
var devIdentityNamespace = uuid.MustParse("6f2b9a4e-3c1d-4e8a-9b7f-2d5c8e1a0f34")

// StaticCodeExchanger serves identities registered ahead of time. With
// AcceptDevCodes, any code of the form "dev-<name>" logs in as <name>.
type StaticCodeExchanger struct {
	AcceptDevCodes bool

	mu    sync.Mutex
	codes map[string]DiscordIdentity
}

func NewStaticCodeExchanger() *StaticCodeExchanger {
	return &StaticCodeExchanger{codes: make(map[string]DiscordIdentity)}
}

// Register makes code exchangeable exactly once for identity.
func (e *StaticCodeExchanger) Register(code string, identity DiscordIdentity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes[code] = identity
}

func (e *StaticCodeExchanger) Exchange(_ context.Context, code, _ string) (DiscordIdentity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if identity, ok := e.codes[code]; ok {
		delete(e.codes, code)
		return identity, nil
	}
	if name, ok := strings.CutPrefix(code, "dev-"); ok && e.AcceptDevCodes && name != "" {
		return DevIdentity(name), nil
	}
	return DiscordIdentity{}, ErrInvalidCode
}

// DevIdentity is the identity the development code "dev-<name>" logs in as.
func DevIdentity(name string) DiscordIdentity {
	return DiscordIdentity{
		ID:       uuid.NewSHA1(devIdentityNamespace, []byte(name)).String(),
		Username: name,
	}
}
