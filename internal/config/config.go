package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	// Participant directory. Empty redis_addr falls back to the in-memory
	// directory, which is fine for a single dev process only.
	RedisAddr        string        `mapstructure:"redis_addr"`
	RedisDB          int           `mapstructure:"redis_db"`
	DirectoryTimeout time.Duration `mapstructure:"directory_timeout"`

	// ICE servers handed to clients via /api/rtc-config.
	StunURLs       []string `mapstructure:"stun_urls"`
	TurnURL        string   `mapstructure:"turn_url"`
	TurnUsername   string   `mapstructure:"turn_username"`
	TurnCredential string   `mapstructure:"turn_credential"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("directory_timeout", "3s")
	v.SetDefault("stun_urls", []string{"stun:stun.l.google.com:19302"})

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Redis: %q\n", cfg.Mode, cfg.Port, cfg.RedisAddr)
	return &cfg, nil
}

// ICEServers builds the list clients should use for their PeerConnections.
// TURN is included only when fully configured with credentials.
func (c *Config) ICEServers() []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, 2)
	if len(c.StunURLs) > 0 {
		out = append(out, webrtc.ICEServer{URLs: c.StunURLs})
	}
	if c.TurnURL != "" && c.TurnUsername != "" && c.TurnCredential != "" {
		out = append(out, webrtc.ICEServer{
			URLs:       []string{c.TurnURL},
			Username:   c.TurnUsername,
			Credential: c.TurnCredential,
		})
	}
	return out
}
