package server

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-curation-client/server/userrepo"
	"github.com/rs/zerolog/log"
)

const (
	DefaultVersion     = "1.0.0"
	DefaultTokenTTL    = time.Hour
	DefaultRateLimit   = 100
	DefaultRateWindow  = time.Minute
	signingKeyByteSize = 32
)

// Server is a reference implementation of the curation REST API.
type Server struct {
	env         string // "DEV" lists routes at startup
	mux         *http.ServeMux
	routes      []string
	users       userrepo.Repo
	codes       CodeExchanger
	tokens      *TokenIssuer
	limiter     *RateLimiter
	bypassToken string
	dbDisabled  atomic.Bool
	version     string
	startTime   time.Time
	nowTime     func() time.Time

	signingKey []byte
	tokenTTL   time.Duration
	rateLimit  int
	rateWindow time.Duration
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithEnv sets the environment name; "DEV" logs the route table.
func WithEnv(env string) ServerOption {
	return func(s *Server) {
		s.env = env
	}
}

// WithBypassToken enables rate-limit bypass for requests carrying token.
func WithBypassToken(token string) ServerOption {
	return func(s *Server) {
		s.bypassToken = token
	}
}

// WithRateLimit allows limit requests per client per window.
func WithRateLimit(limit int, window time.Duration) ServerOption {
	return func(s *Server) {
		s.rateLimit = limit
		s.rateWindow = window
	}
}

// WithTokenTTL sets the lifetime of issued site tokens.
func WithTokenTTL(ttl time.Duration) ServerOption {
	return func(s *Server) {
		s.tokenTTL = ttl
	}
}

// WithSigningKey sets the HS256 key. A random key is generated otherwise.
func WithSigningKey(key []byte) ServerOption {
	return func(s *Server) {
		s.signingKey = key
	}
}

// WithVersion sets the version reported by GET /.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func New(users userrepo.Repo, codes CodeExchanger, opts ...ServerOption) (*Server, error) {
	if users == nil {
		return nil, fmt.Errorf("[Server New] users repo is required")
	}
	if codes == nil {
		return nil, fmt.Errorf("[Server New] code exchanger is required")
	}

	s := &Server{
		mux:        http.NewServeMux(),
		users:      users,
		codes:      codes,
		version:    DefaultVersion,
		nowTime:    time.Now,
		tokenTTL:   DefaultTokenTTL,
		rateLimit:  DefaultRateLimit,
		rateWindow: DefaultRateWindow,
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.signingKey) == 0 {
		s.signingKey = make([]byte, signingKeyByteSize)
		if _, err := rand.Read(s.signingKey); err != nil {
			return nil, fmt.Errorf("[Server New] failed to generate signing key: %w", err)
		}
	}

	s.startTime = s.nowTime()
	s.tokens = NewTokenIssuer(s.signingKey, s.tokenTTL, s.nowTime)
	s.limiter = NewRateLimiter(s.rateLimit, s.rateWindow, s.nowTime)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// SetDatabaseEnabled toggles the outage mode in which database backed
// endpoints answer 501.
func (s *Server) SetDatabaseEnabled(enabled bool) {
	s.dbDisabled.Store(!enabled)
	log.Info().Bool("enabled", enabled).Msg("database availability changed")
}

// Tokens exposes the issuer so tests and tools can mint site tokens.
func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

var methodColors = map[string]string{
	http.MethodGet:   "\033[32m",
	http.MethodPost:  "\033[34m",
	http.MethodPatch: "\033[35m",
}

const resetColor = "\033[0m"

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, _ := strings.Cut(route, " ")
		log.Info().Msgf("[%s%-7s%s] %s", methodColors[method], method, resetColor, path)
	}
}
