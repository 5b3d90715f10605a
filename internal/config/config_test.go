package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{
		"server": {"host": "0.0.0.0", "port": "8080"},
		"model": {"url": "http://localhost:8081", "max_tokens": 512},
		"logging": {"level": "debug", "format": "json"}
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != "8080" {
		t.Errorf("server = %s:%s", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Model.URL != "http://localhost:8081" || cfg.Model.MaxTokens != 512 {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %s", cfg.Logging.Level)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", `
server:
  host: 127.0.0.1
  port: "9090"
model:
  url: http://localhost:8081
auth:
  enabled: true
  secret_key: testing-secret
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %s, want 9090", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.SecretKey != "testing-secret" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{"server": {"port": "8080"}}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.MaxUploadBytes != 64<<20 {
		t.Errorf("max upload bytes = %d, want default 64MiB", cfg.Server.MaxUploadBytes)
	}
	if cfg.Model.MaxTokens != 1024 {
		t.Errorf("max tokens = %d, want default 1024", cfg.Model.MaxTokens)
	}
	if cfg.WebSocket.Path != "/ws/chat" {
		t.Errorf("websocket path = %s", cfg.WebSocket.Path)
	}
	if cfg.Logging.FilePrefix != "biocadapp" {
		t.Errorf("log file prefix = %s, want biocadapp", cfg.Logging.FilePrefix)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadConfig accepted a missing file")
	}
}
