package config

import (
	"strings"
)

type keySpec struct {
	key     string
	def     any
	secret  bool
	extract func(cfg Config) any
}

// env returns the environment variable that overrides s.
func (s keySpec) env() string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(s.key, ".", "_"))
}

var specs = []keySpec{
	{key: "server.host", def: "127.0.0.1", extract: func(c Config) any { return c.Server.Host }},
	{key: "server.port", def: 8000, extract: func(c Config) any { return c.Server.Port }},
	{key: "server.max_conns", def: 64, extract: func(c Config) any { return c.Server.MaxConns }},

	{key: "storage.data_dir", def: defaultDataDir(), extract: func(c Config) any { return c.Storage.DataDir }},
	{key: "storage.uploads_dir", def: "", extract: func(c Config) any { return c.Storage.UploadsDir }},

	{key: "blob.backend", def: "local", extract: func(c Config) any { return c.Blob.Backend }},
	{key: "minio.endpoint", def: "", extract: func(c Config) any { return c.MinIO.Endpoint }},
	{key: "minio.access_key", def: "", secret: true, extract: func(c Config) any { return c.MinIO.AccessKey }},
	{key: "minio.secret_key", def: "", secret: true, extract: func(c Config) any { return c.MinIO.SecretKey }},
	{key: "minio.bucket", def: "contracts", extract: func(c Config) any { return c.MinIO.Bucket }},
	{key: "minio.region", def: "us-east-1", extract: func(c Config) any { return c.MinIO.Region }},
	{key: "minio.use_ssl", def: false, extract: func(c Config) any { return c.MinIO.UseSSL }},

	{key: "ollama.base_url", def: "http://localhost:11434", extract: func(c Config) any { return c.Ollama.BaseURL }},
	{key: "ollama.entity_model", def: "qwen2.5", extract: func(c Config) any { return c.Ollama.EntityModel }},
	{key: "ollama.embed_model", def: "all-minilm", extract: func(c Config) any { return c.Ollama.EmbedModel }},

	{key: "worker.poll_interval", def: "500ms", extract: func(c Config) any { return c.Worker.PollInterval }},
	{key: "worker.concurrency", def: 2, extract: func(c Config) any { return c.Worker.Concurrency }},

	{key: "api.token", def: "", secret: true, extract: func(c Config) any { return c.API.Token }},
	{key: "api.jwt_secret", def: "", secret: true, extract: func(c Config) any { return c.API.JWTSecret }},
	{key: "api.upload_rate", def: 1.0, extract: func(c Config) any { return c.API.UploadRate }},
	{key: "api.upload_burst", def: 5, extract: func(c Config) any { return c.API.UploadBurst }},
	{key: "api.max_upload_mb", def: 50, extract: func(c Config) any { return c.API.MaxUploadMB }},

	{key: "log.level", def: "info", extract: func(c Config) any { return c.Log.Level }},
	{key: "log.format", def: "text", extract: func(c Config) any { return c.Log.Format }},
}

func findSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}
