package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	req := require.New(t)
	t.Setenv("CONFIG_ENV", "nowhere")

	cfg, err := Load()
	req.NoError(err)
	req.NotNil(cfg)
	req.Equal("release", cfg.Mode)
	req.Equal(8080, cfg.Port)
	req.Equal(int64(32768), cfg.ReadLimit)
	req.Equal(54*time.Second, cfg.PingPeriod)
	req.Equal(3*time.Second, cfg.DirectoryTimeout)
	req.Empty(cfg.RedisAddr)
	req.Equal([]string{"stun:stun.l.google.com:19302"}, cfg.StunURLs)
}

func TestICEServers_TurnRequiresFullCredentials(t *testing.T) {
	req := require.New(t)

	cfg := &Config{
		StunURLs: []string{"stun:stun.example.org:3478"},
		TurnURL:  "turn:turn.example.org:3478",
	}
	req.Len(cfg.ICEServers(), 1)

	cfg.TurnUsername = "u"
	cfg.TurnCredential = "p"
	servers := cfg.ICEServers()
	req.Len(servers, 2)
	req.Equal([]string{"turn:turn.example.org:3478"}, servers[1].URLs)
	req.Equal("u", servers[1].Username)
	req.Equal("p", servers[1].Credential)
}
