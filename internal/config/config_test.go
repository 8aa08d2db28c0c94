package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_addr: 0.0.0.0
  http_port: 9090
  poll_interval: 30s
database:
  path: /tmp/pronos-test.db
auth:
  jwt_secret: secret
  token_duration: 12h
provider:
  base_url: https://scores.example.com/v3
  api_key: abc123
  request_delay: 250ms
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddr != "0.0.0.0" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v", cfg.Server.PollInterval)
	}
	if cfg.Auth.TokenDuration != 12*time.Hour {
		t.Errorf("TokenDuration = %v", cfg.Auth.TokenDuration)
	}
	if cfg.Provider.BaseURL != "https://scores.example.com/v3" {
		t.Errorf("BaseURL = %q", cfg.Provider.BaseURL)
	}
	if cfg.Provider.RequestDelay != 250*time.Millisecond {
		t.Errorf("RequestDelay = %v", cfg.Provider.RequestDelay)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: s\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddr != "127.0.0.1" {
		t.Errorf("default ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("default HTTPPort = %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.PollInterval != 60*time.Second {
		t.Errorf("default PollInterval = %v", cfg.Server.PollInterval)
	}
	if cfg.Server.StaticDir != "" {
		t.Errorf("default StaticDir = %q, want empty", cfg.Server.StaticDir)
	}
	if cfg.Auth.TokenDuration != 24*time.Hour {
		t.Errorf("default TokenDuration = %v", cfg.Auth.TokenDuration)
	}
	if cfg.Provider.Timeout != 20*time.Second {
		t.Errorf("default provider Timeout = %v", cfg.Provider.Timeout)
	}
	if cfg.Provider.UserAgent != "pronos/1.0" {
		t.Errorf("default UserAgent = %q", cfg.Provider.UserAgent)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}
