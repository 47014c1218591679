// Package config loads settings from the environment. Call
// LoadEnvFile(".env") before Load() to use a .env file.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds guide service settings.
type Config struct {
	// Listen address for the guide API.
	Addr string // e.g. :8480

	// Persistence. DBPath selects SQLite; RedisAddr (host:port) selects Redis
	// instead when set. Empty both = in-memory only.
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Optional preconfigured source (otherwise the API is the entry point).
	PlaylistURL    string
	ProviderServer string
	ProviderUser   string
	ProviderPass   string

	PlaylistTimeout time.Duration
	ProviderTimeout time.Duration
}

// Load reads config from environment with defaults.
func Load() *Config {
	return &Config{
		Addr:            getEnv("CHANNEL_GUIDE_ADDR", ":8480"),
		DBPath:          getEnv("CHANNEL_GUIDE_DB", "./channelguide.db"),
		RedisAddr:       os.Getenv("CHANNEL_GUIDE_REDIS_ADDR"),
		RedisPassword:   os.Getenv("CHANNEL_GUIDE_REDIS_PASSWORD"),
		RedisDB:         getEnvInt("CHANNEL_GUIDE_REDIS_DB", 0),
		PlaylistURL:     os.Getenv("CHANNEL_GUIDE_PLAYLIST_URL"),
		ProviderServer:  os.Getenv("CHANNEL_GUIDE_PROVIDER_URL"),
		ProviderUser:    os.Getenv("CHANNEL_GUIDE_PROVIDER_USER"),
		ProviderPass:    os.Getenv("CHANNEL_GUIDE_PROVIDER_PASS"),
		PlaylistTimeout: getEnvDuration("CHANNEL_GUIDE_PLAYLIST_TIMEOUT", 15*time.Second),
		ProviderTimeout: getEnvDuration("CHANNEL_GUIDE_PROVIDER_TIMEOUT", 20*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
