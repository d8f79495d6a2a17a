package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.HeartbeatIncoming)
	assert.Equal(t, 5, cfg.MaxErrors)
	assert.Equal(t, 5*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, 6, cfg.CandidateLimit)
	assert.Zero(t, cfg.RoomID)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHAT_WS_URL", "wss://chat.example.com/ws")
	t.Setenv("WS_MAX_ERRORS", "3")
	t.Setenv("RECONCILE_INTERVAL", "750ms")
	t.Setenv("CHAT_ROOM_ID", "42")

	cfg := Load()

	assert.Equal(t, "wss://chat.example.com/ws", cfg.WSURL)
	assert.Equal(t, 3, cfg.MaxErrors)
	assert.Equal(t, 750*time.Millisecond, cfg.ReconcileInterval)
	assert.Equal(t, int64(42), cfg.RoomID)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WS_MAX_ERRORS", "many")
	t.Setenv("HEARTBEAT_OUTGOING", "soon")

	cfg := Load()

	assert.Equal(t, 5, cfg.MaxErrors)
	assert.Equal(t, 10*time.Second, cfg.HeartbeatOutgoing)
}
