package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	appNameVar     = "APP_NAME"
	folderEnvVar   = "CURATOR_DATA"
	logLevelVar    = "LOG_LEVEL"
	settingsFile   = "settings.json"
	sessionFile    = "session.json"
	loginStateFile = "login_state.json"

	portVar          = "PORT"
	bypassTokenVar   = "API_RATE_LIMIT_BYPASS_TOKEN"
	signingKeyVar    = "API_SIGNING_KEY"
	adminUserVar     = "API_ADMIN_USER"
	rateLimitVar     = "API_RATE_LIMIT"
	defaultPort      = ":5000"
	defaultRateLimit = 100
)

// DataFiles locates the files the client persists inside a data folder.
type DataFiles struct {
	Settings   string
	Session    string
	LoginState string
}

func DataFilesIn(folder string) DataFiles {
	return DataFiles{
		Settings:   filepath.Join(folder, settingsFile),
		Session:    filepath.Join(folder, sessionFile),
		LoginState: filepath.Join(folder, loginStateFile),
	}
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Curator")
}

// GetDataFolder is where the settings, session and pending login state are persisted.
func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetPort is the listen address; a bare port number such as "5000" gets a leading colon.
func (EnvVars) GetPort() string {
	port := GetEnv(portVar, defaultPort)
	if !strings.Contains(port, ":") {
		port = ":" + port
	}
	return port
}

// GetRateLimitBypassToken is the secret the reference API accepts in place of rate limiting.
func (EnvVars) GetRateLimitBypassToken() string {
	return os.Getenv(bypassTokenVar)
}

// GetSigningKey is the HS256 key for site tokens. Empty means a random key per run.
func (EnvVars) GetSigningKey() string {
	return os.Getenv(signingKeyVar)
}

// GetAdminUserName seeds a user holding every permission, logged in with code "dev-<name>".
func (EnvVars) GetAdminUserName() string {
	return GetEnv(adminUserVar, "admin")
}

func (EnvVars) GetRateLimit() int {
	n, err := strconv.Atoi(os.Getenv(rateLimitVar))
	if err != nil || n <= 0 {
		return defaultRateLimit
	}
	return n
}
