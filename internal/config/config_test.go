package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "contractd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	path := writeTempConfig(t, "# empty\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.URL() != "http://127.0.0.1:8000" {
		t.Errorf("Server.URL() = %q", cfg.Server.URL())
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q, want %q", cfg.Ollama.BaseURL, "http://localhost:11434")
	}
	if cfg.Ollama.EntityModel != "qwen2.5" {
		t.Errorf("Ollama.EntityModel = %q, want %q", cfg.Ollama.EntityModel, "qwen2.5")
	}
	if cfg.Ollama.EmbedModel != "all-minilm" {
		t.Errorf("Ollama.EmbedModel = %q, want %q", cfg.Ollama.EmbedModel, "all-minilm")
	}
	if cfg.Worker.PollInterval != 500*time.Millisecond {
		t.Errorf("Worker.PollInterval = %v, want 500ms", cfg.Worker.PollInterval)
	}
	if cfg.Worker.Concurrency != 2 {
		t.Errorf("Worker.Concurrency = %d, want 2", cfg.Worker.Concurrency)
	}
	if cfg.Blob.Backend != "local" {
		t.Errorf("Blob.Backend = %q, want local", cfg.Blob.Backend)
	}
	if cfg.Storage.UploadsDir != filepath.Join(cfg.Storage.DataDir, "uploads") {
		t.Errorf("Storage.UploadsDir = %q, want under data dir %q", cfg.Storage.UploadsDir, cfg.Storage.DataDir)
	}
	if cfg.API.UploadRate != 1.0 || cfg.API.UploadBurst != 5 {
		t.Errorf("upload limits = %v/%d", cfg.API.UploadRate, cfg.API.UploadBurst)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	path := writeTempConfig(t, "server:\n  port: 9000\napi:\n  token: file-token\n")

	t.Setenv("CONTRACTD_SERVER_PORT", "9100")
	t.Setenv("CONTRACTD_API_TOKEN", "env-token")
	t.Setenv("CONTRACTD_WORKER_POLL_INTERVAL", "2s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("API.Token = %q, want %q", cfg.API.Token, "env-token")
	}
	if cfg.Worker.PollInterval != 2*time.Second {
		t.Errorf("Worker.PollInterval = %v", cfg.Worker.PollInterval)
	}
}

// TestYAMLParsing verifies that fields are correctly read from a YAML file.
func TestYAMLParsing(t *testing.T) {
	path := writeTempConfig(t, `
server:
  host: 0.0.0.0
  port: 5000
storage:
  data_dir: /tmp/contractd-test
  uploads_dir: /tmp/contractd-uploads
blob:
  backend: minio
minio:
  endpoint: localhost:9000
  bucket: pdfs
  use_ssl: true
ollama:
  base_url: http://custom:11434
  entity_model: custom-entity
  embed_model: custom-embed
worker:
  concurrency: 4
log:
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 || cfg.Server.URL() != "http://127.0.0.1:5000" {
		t.Errorf("Server = %+v url=%s", cfg.Server, cfg.Server.URL())
	}
	if cfg.Storage.DataDir != "/tmp/contractd-test" || cfg.Storage.UploadsDir != "/tmp/contractd-uploads" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Blob.Backend != "minio" || cfg.MinIO.Endpoint != "localhost:9000" || cfg.MinIO.Bucket != "pdfs" || !cfg.MinIO.UseSSL {
		t.Errorf("MinIO = %+v", cfg.MinIO)
	}
	if cfg.MinIO.Region != "us-east-1" {
		t.Errorf("MinIO.Region = %q, want default", cfg.MinIO.Region)
	}
	if cfg.Ollama.EntityModel != "custom-entity" || cfg.Ollama.EmbedModel != "custom-embed" {
		t.Errorf("Ollama = %+v", cfg.Ollama)
	}
	if cfg.Worker.Concurrency != 4 {
		t.Errorf("Worker.Concurrency = %d", cfg.Worker.Concurrency)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown backend", "blob:\n  backend: s4\n", "unknown blob.backend"},
		{"minio without endpoint", "blob:\n  backend: minio\n", "minio.endpoint"},
		{"zero concurrency", "worker:\n  concurrency: 0\n", "worker.concurrency"},
		{"short jwt secret", "api:\n  jwt_secret: short\n", "at least 32 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestShowAll_MasksSecrets(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "api:\n  token: hunter2\n"))
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, ki := range ShowAll(cfg) {
		if ki.Key == "api.token" {
			found = true
			if ki.Value != "********" {
				t.Errorf("api.token shown as %q", ki.Value)
			}
			if ki.EnvVar != "CONTRACTD_API_TOKEN" {
				t.Errorf("EnvVar = %q", ki.EnvVar)
			}
		}
	}
	if !found {
		t.Error("api.token missing from ShowAll")
	}
}

func TestSetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "contractd.yaml")

	if err := SetKey(path, "server.port", "7000"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := SetKey(path, "ollama.entity_model", "llama3.2"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7000 || cfg.Ollama.EntityModel != "llama3.2" {
		t.Errorf("cfg = %+v %+v", cfg.Server, cfg.Ollama)
	}

	if err := SetKey(path, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := SetKey(path, "api.token", "x"); err == nil {
		t.Error("expected error for secret key")
	}
	if err := SetKey(path, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := SetKey(path, "worker.poll_interval", "soon"); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}
	NewLogger(LogConfig{Level: "debug", Format: "json"}, &buf).Debug("shown", "job_id", "j1")
	if !strings.Contains(buf.String(), `"job_id":"j1"`) {
		t.Errorf("expected JSON output, got %s", buf.String())
	}
}
