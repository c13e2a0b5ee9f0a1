package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrModelUnavailable is returned when a required model cannot be used.
// It is fatal to the job that needed the model.
var ErrModelUnavailable = errors.New("model unavailable")

const releaseTimeout = 5 * time.Second

// Handle is a scoped reference to a loaded model. Callers obtain one with
// Acquire and must Release it when the strategy that needed it is done, so
// that at most one large model is resident per job at a time.
type Handle struct {
	eng   Engine
	model string

	once sync.Once
}

// Acquire verifies that model is available on eng and returns a handle to it.
// The backend loads the model lazily on first use.
func Acquire(ctx context.Context, eng Engine, model string) (*Handle, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: no model configured", ErrModelUnavailable)
	}
	if !eng.HasModel(ctx, model) {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, model)
	}
	return &Handle{eng: eng, model: model}, nil
}

// Model returns the model name the handle refers to.
func (h *Handle) Model() string { return h.model }

// Chat sends messages to the handle's model.
func (h *Handle) Chat(ctx context.Context, messages []Message, jsonSchema *Schema) (string, error) {
	return h.eng.Chat(ctx, h.model, messages, jsonSchema)
}

// Embed embeds texts with the handle's model.
func (h *Handle) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	return h.eng.Embed(ctx, h.model, texts...)
}

// Release unloads the model from the backend. It is safe to call more than
// once; only the first call has an effect. Unload failures are logged.
func (h *Handle) Release() {
	h.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := h.eng.Unload(ctx, h.model); err != nil {
			slog.Warn("engine: unloading model failed", "model", h.model, "error", err)
		}
	})
}
