package engine

import (
	"context"
	"fmt"
	"io"
)

// EnsureReady checks that the Engine is reachable and that every named model
// is available. Missing models are pulled with progress output written to w.
// Empty and duplicate names are skipped.
func EnsureReady(ctx context.Context, e Engine, w io.Writer, models ...string) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("%w: local inference engine is not running", ErrModelUnavailable)
	}

	seen := make(map[string]bool, len(models))
	for _, model := range models {
		if model == "" || seen[model] {
			continue
		}
		seen[model] = true

		if e.HasModel(ctx, model) {
			fmt.Fprintf(w, "model %s: ready\n", model)
			continue
		}

		fmt.Fprintf(w, "model %s: pulling...\n", model)
		err := e.PullModel(ctx, model, func(p PullProgress) {
			if p.Total > 0 {
				pct := float64(p.Completed) / float64(p.Total) * 100
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}

	return nil
}

// Available reports an error wrapping ErrModelUnavailable unless the engine is
// reachable and every named model is present. Unlike EnsureReady it never
// pulls.
func Available(ctx context.Context, e Engine, models ...string) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("%w: local inference engine is not running", ErrModelUnavailable)
	}
	for _, model := range models {
		if !e.HasModel(ctx, model) {
			return fmt.Errorf("%w: %s", ErrModelUnavailable, model)
		}
	}
	return nil
}
