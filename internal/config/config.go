package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	RedisURL    string
	LogLevel    string
	LogFormat   string
	APIBaseURL  string
	AccessToken string

	// Channel
	WSURL             string
	HeartbeatIncoming time.Duration
	HeartbeatOutgoing time.Duration
	ConnectTimeout    time.Duration
	MaxErrors         int
	ReconcileInterval time.Duration

	// Reconnect policy of the application shell
	ReconnectInitial    time.Duration
	ReconnectMax        time.Duration
	ReconnectMaxRetries int

	// Optional room to open on start, 0 for none
	RoomID         int64
	CandidateLimit int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		APIBaseURL:  getEnv("CHAT_API_URL", "http://localhost:8081/api"),
		AccessToken: getEnv("CHAT_ACCESS_TOKEN", ""),

		WSURL:             getEnv("CHAT_WS_URL", "ws://localhost:8081/ws"),
		HeartbeatIncoming: getEnvDuration("HEARTBEAT_INCOMING", 10*time.Second),
		HeartbeatOutgoing: getEnvDuration("HEARTBEAT_OUTGOING", 10*time.Second),
		ConnectTimeout:    getEnvDuration("WS_CONNECT_TIMEOUT", 10*time.Second),
		MaxErrors:         getEnvInt("WS_MAX_ERRORS", 5),
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 5*time.Second),

		ReconnectInitial:    getEnvDuration("RECONNECT_INITIAL", 3*time.Second),
		ReconnectMax:        getEnvDuration("RECONNECT_MAX", time.Minute),
		ReconnectMaxRetries: getEnvInt("RECONNECT_MAX_RETRIES", 5),

		RoomID:         int64(getEnvInt("CHAT_ROOM_ID", 0)),
		CandidateLimit: getEnvInt("CANDIDATE_LIMIT", 6),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
