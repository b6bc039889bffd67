package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	RCON     RCONConfig     `yaml:"rcon"`
	Watch    WatchConfig    `yaml:"watch"`
	OTel     OTelConfig     `yaml:"otel"`
	Discord  DiscordConfig  `yaml:"discord"`
	Live     LiveConfig     `yaml:"live"`
	Sessions SessionsConfig `yaml:"sessions"`
	LogTail  LogTailConfig  `yaml:"logtail"`
}

type RCONConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"-"` // from env only
}

// WatchConfig selects and tunes the polling mode. "data" polls the full
// entity compound per player; "position" polls Pos/Rotation/Dimension and
// tracks AFK state.
type WatchConfig struct {
	Mode         string        `yaml:"mode"`
	PollInterval time.Duration `yaml:"poll_interval"`
	AFKTime      time.Duration `yaml:"afk_time"`
	BotPattern   string        `yaml:"bot_pattern"`
	Debug        bool          `yaml:"debug"`
}

type OTelConfig struct {
	ServiceName string `yaml:"service_name"`
}

type DiscordConfig struct {
	Enabled   bool     `yaml:"enabled"`
	BotToken  string   `yaml:"-"` // from env only
	ChannelID string   `yaml:"-"` // from env only
	Events    []string `yaml:"events"` // event types to announce, or ["all"]
}

type LiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type SessionsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LogTailConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	PodLabel  string `yaml:"pod_label"`
}

func defaultConfig() Config {
	return Config{
		RCON: RCONConfig{
			Host: "localhost",
			Port: "25575",
		},
		Watch: WatchConfig{
			Mode:         "data",
			PollInterval: time.Second,
			AFKTime:      5 * time.Minute,
			BotPattern:   "bot_",
		},
		OTel: OTelConfig{
			ServiceName: "mcwatch",
		},
		Discord: DiscordConfig{
			Enabled: true,
			Events:  []string{"all"},
		},
		Live: LiveConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Sessions: SessionsConfig{
			Enabled: true,
			Path:    "mcwatch.db",
		},
		LogTail: LogTailConfig{
			Enabled:   false,
			Namespace: "minecraft",
			PodLabel:  "app=minecraft",
		},
	}
}

func loadConfig() (Config, error) {
	cfg := defaultConfig()

	configPath := envOr("CONFIG_PATH", "/etc/mcwatch/config.yaml")
	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}
	// config file is optional — missing file is not an error

	// Env overrides (secrets + runtime values)
	cfg.RCON.Password = os.Getenv("RCON_PASSWORD")
	if v := os.Getenv("RCON_HOST"); v != "" {
		cfg.RCON.Host = v
	}
	if v := os.Getenv("RCON_PORT"); v != "" {
		cfg.RCON.Port = v
	}
	cfg.Discord.BotToken = os.Getenv("DISCORD_BOT_TOKEN")
	cfg.Discord.ChannelID = os.Getenv("DISCORD_CHANNEL_ID")

	if cfg.RCON.Password == "" {
		return cfg, fmt.Errorf("RCON_PASSWORD env is required")
	}

	if cfg.Watch.Mode != "data" && cfg.Watch.Mode != "position" {
		return cfg, fmt.Errorf("watch.mode must be %q or %q, got %q", "data", "position", cfg.Watch.Mode)
	}
	if cfg.Watch.PollInterval <= 0 {
		return cfg, fmt.Errorf("watch.poll_interval must be positive")
	}
	if cfg.Watch.AFKTime <= 0 {
		return cfg, fmt.Errorf("watch.afk_time must be positive")
	}

	if cfg.Discord.BotToken != "" && cfg.Discord.ChannelID == "" {
		return cfg, fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_BOT_TOKEN is set")
	}
	if cfg.Discord.BotToken == "" {
		cfg.Discord.Enabled = false
	}

	return cfg, nil
}

// discordEventAllowed returns whether a given event type should be announced
// on Discord.
func (c *Config) discordEventAllowed(eventType string) bool {
	if !c.Discord.Enabled {
		return false
	}
	for _, e := range c.Discord.Events {
		if e == "all" || e == eventType {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
