package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("RCON_PASSWORD", "hunter2")
	t.Setenv("RCON_HOST", "mc.example.com")
	os.Unsetenv("DISCORD_BOT_TOKEN")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.RCON.Host != "mc.example.com" || cfg.RCON.Port != "25575" {
		t.Fatalf("rcon = %+v", cfg.RCON)
	}
	if cfg.Watch.Mode != "data" || cfg.Watch.PollInterval != time.Second || cfg.Watch.AFKTime != 5*time.Minute {
		t.Fatalf("watch defaults = %+v", cfg.Watch)
	}
	if cfg.Discord.Enabled {
		t.Fatal("discord enabled without a bot token")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
watch:
  mode: position
  poll_interval: 2s
  afk_time: 90s
  bot_pattern: "carpet_*"
live:
  enabled: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("RCON_PASSWORD", "hunter2")
	os.Unsetenv("DISCORD_BOT_TOKEN")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Watch.Mode != "position" || cfg.Watch.AFKTime != 90*time.Second || cfg.Watch.BotPattern != "carpet_*" {
		t.Fatalf("watch = %+v", cfg.Watch)
	}
	if cfg.Live.Enabled {
		t.Fatal("live should be disabled by file")
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{"missing password", "", map[string]string{"RCON_PASSWORD": ""}},
		{"bad mode", "watch:\n  mode: everything\n", nil},
		{"zero interval", "watch:\n  poll_interval: 0s\n", nil},
		{"discord token without channel", "", map[string]string{"DISCORD_BOT_TOKEN": "tok"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			t.Setenv("CONFIG_PATH", path)
			t.Setenv("RCON_PASSWORD", "hunter2")
			os.Unsetenv("DISCORD_BOT_TOKEN")
			os.Unsetenv("DISCORD_CHANNEL_ID")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := loadConfig(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
