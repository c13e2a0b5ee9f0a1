// Package api serves the contract HTTP API and the MCP tools.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/kalambet/contractd/internal/blob"
	"github.com/kalambet/contractd/internal/export"
	"github.com/kalambet/contractd/internal/storage"
)

// DefaultMaxUploadSize bounds upload request bodies when Deps leaves it 0.
const DefaultMaxUploadSize = 50 << 20 // 50MB

type Deps struct {
	Store    *storage.Store
	Blobs    blob.Store
	Exporter *export.Service
	Auth     Auth
	Logger   *slog.Logger

	MaxUploadSize int64
	UploadRate    rate.Limit // per client IP per second; 0 disables limiting
	UploadBurst   int
}

// NewHandler returns the HTTP API. /health is never authenticated.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxUploadSize <= 0 {
		deps.MaxUploadSize = DefaultMaxUploadSize
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewService(deps.Store, deps.Logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Route("/api/v1/contracts", func(r chi.Router) {
		r.Use(BearerAuth(deps.Auth))

		upload := http.Handler(handleUpload(deps))
		if deps.UploadRate > 0 {
			upload = NewClientLimiter(deps.UploadRate, deps.UploadBurst).Middleware(upload)
		}
		r.Method(http.MethodPost, "/upload", upload)

		r.Get("/", handleListContracts(deps))
		r.Get("/export", handleExport(deps))
		r.Get("/{id}", handleGetContract(deps))
		r.Get("/{id}/status", handleContractStatus(deps))
		r.Get("/{id}/download", handleDownload(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
