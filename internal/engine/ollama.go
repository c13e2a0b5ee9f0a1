package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kalambet/contractd/internal/ollama"
)

// OllamaEngine runs models on an Ollama server.
type OllamaEngine struct {
	client *ollama.Client
}

var _ Engine = (*OllamaEngine)(nil)

func NewOllamaEngine(baseURL string) *OllamaEngine {
	return &OllamaEngine{client: ollama.New(baseURL)}
}

// modelError marks a 404 from Ollama, which means the model was removed
// after Acquire checked for it, as ErrModelUnavailable.
func modelError(model string, err error) error {
	var se *ollama.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %s: %v", ErrModelUnavailable, model, err)
	}
	return err
}

func (e *OllamaEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	msgs := make([]ollama.Message, len(messages))
	for i, m := range messages {
		msgs[i] = ollama.Message(m)
	}
	out, err := e.client.Chat(ctx, model, msgs, toOllamaSchema(jsonSchema))
	return out, modelError(model, err)
}

func toOllamaSchema(s *Schema) *ollama.Schema {
	if s == nil {
		return nil
	}
	out := &ollama.Schema{Type: s.Type, Required: s.Required}
	if s.Properties != nil {
		out.Properties = make(map[string]ollama.SchemaProperty, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toOllamaProperty(v)
		}
	}
	return out
}

func toOllamaProperty(p SchemaProperty) ollama.SchemaProperty {
	out := ollama.SchemaProperty{Type: p.Type, Description: p.Description}
	if p.Items != nil {
		items := toOllamaProperty(*p.Items)
		out.Items = &items
	}
	return out
}

func (e *OllamaEngine) Embed(ctx context.Context, model string, texts ...string) ([][]float32, error) {
	out, err := e.client.Embed(ctx, model, texts...)
	return out, modelError(model, err)
}

func (e *OllamaEngine) IsRunning(ctx context.Context) bool {
	return e.client.IsRunning(ctx)
}

func (e *OllamaEngine) HasModel(ctx context.Context, name string) bool {
	return e.client.HasModel(ctx, name)
}

func (e *OllamaEngine) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error {
	var cb func(ollama.PullProgress)
	if onProgress != nil {
		cb = func(p ollama.PullProgress) { onProgress(PullProgress(p)) }
	}
	return e.client.PullModel(ctx, name, cb)
}

func (e *OllamaEngine) Unload(ctx context.Context, model string) error {
	return e.client.Unload(ctx, model)
}
