// Package enginetest provides an in-memory engine.Engine for tests.
package enginetest

import (
	"context"
	"sync"

	"github.com/kalambet/contractd/internal/engine"
)

// Fake is a scriptable engine.Engine. Zero-value hooks return empty results.
type Fake struct {
	Down   bool
	Models []string

	// ChatFunc answers Chat calls.
	ChatFunc func(model string, messages []engine.Message) (string, error)
	// EmbedFunc answers one text of an Embed call.
	EmbedFunc func(model, text string) ([]float32, error)

	mu       sync.Mutex
	chats    int
	embeds   int
	unloaded []string
	events   []string
}

var _ engine.Engine = (*Fake)(nil)

func (f *Fake) record(event string) {
	f.events = append(f.events, event)
}

func (f *Fake) Chat(_ context.Context, model string, messages []engine.Message, _ *engine.Schema) (string, error) {
	f.mu.Lock()
	f.chats++
	f.record("chat:" + model)
	f.mu.Unlock()
	if f.ChatFunc == nil {
		return "", nil
	}
	return f.ChatFunc(model, messages)
}

func (f *Fake) Embed(_ context.Context, model string, texts ...string) ([][]float32, error) {
	f.mu.Lock()
	f.embeds++
	f.record("embed:" + model)
	f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.EmbedFunc == nil {
			out[i] = []float32{0}
			continue
		}
		v, err := f.EmbedFunc(model, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *Fake) IsRunning(context.Context) bool { return !f.Down }

func (f *Fake) HasModel(_ context.Context, name string) bool {
	if f.Down {
		return false
	}
	for _, m := range f.Models {
		if m == name {
			return true
		}
	}
	return false
}

func (f *Fake) PullModel(_ context.Context, name string, onProgress func(engine.PullProgress)) error {
	f.mu.Lock()
	f.Models = append(f.Models, name)
	f.mu.Unlock()
	if onProgress != nil {
		onProgress(engine.PullProgress{Status: "success"})
	}
	return nil
}

func (f *Fake) Unload(_ context.Context, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloaded = append(f.unloaded, model)
	f.record("unload:" + model)
	return nil
}

// ChatCalls returns how many Chat calls were made.
func (f *Fake) ChatCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chats
}

// EmbedCalls returns how many Embed calls were made.
func (f *Fake) EmbedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embeds
}

// Unloaded returns the models unloaded so far, in order.
func (f *Fake) Unloaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unloaded...)
}

// Events returns the ordered log of chat, embed and unload calls as
// "kind:model" strings.
func (f *Fake) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}
