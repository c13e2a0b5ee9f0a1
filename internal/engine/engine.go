// Package engine is the seam between the extraction strategies and the local
// model server. Strategies never talk to a backend directly: they Acquire a
// Handle for the one model they need and Release it when done.
package engine

import "context"

// Engine is a local inference backend.
type Engine interface {
	// Chat returns the assistant reply. A non-nil jsonSchema constrains the
	// reply to that shape.
	Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error)

	// Embed returns one vector per text, in input order.
	Embed(ctx context.Context, model string, texts ...string) ([][]float32, error)

	IsRunning(ctx context.Context) bool
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. onProgress may be nil.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error

	// Unload evicts a model from backend memory.
	Unload(ctx context.Context, model string) error
}
