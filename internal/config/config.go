package config

type Config interface {
	EnvConfig
	ServerConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

// ServerConfig configures the reference API run by cmd/fakeapi.
type ServerConfig interface {
	GetPort() string
	GetRateLimitBypassToken() string
	GetSigningKey() string
	GetAdminUserName() string
	GetRateLimit() int
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
