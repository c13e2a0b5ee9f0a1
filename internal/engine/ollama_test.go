package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func tagsJSON(names ...string) []byte {
	type entry struct {
		Name string `json:"name"`
	}
	type resp struct {
		Models []entry `json:"models"`
	}
	r := resp{}
	for _, n := range names {
		r.Models = append(r.Models, entry{Name: n})
	}
	b, _ := json.Marshal(r)
	return b
}

func TestOllamaEngine_ChatForwardsArraySchema(t *testing.T) {
	var body struct {
		Format struct {
			Properties map[string]struct {
				Type  string `json:"type"`
				Items *struct {
					Type string `json:"type"`
				} `json:"items"`
			} `json:"properties"`
		} `json:"format"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": `{"organizations":[]}`},
		})
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	result, err := e.Chat(context.Background(), "qwen2.5", []Message{
		{Role: "user", Content: "hi"},
	}, &Schema{
		Type: "object",
		Properties: map[string]SchemaProperty{
			"organizations": {Type: "array", Items: &SchemaProperty{Type: "string"}},
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result != `{"organizations":[]}` {
		t.Errorf("got %q", result)
	}
	orgs := body.Format.Properties["organizations"]
	if orgs.Type != "array" || orgs.Items == nil || orgs.Items.Type != "string" {
		t.Errorf("schema not forwarded: %+v", orgs)
	}
}

func TestOllamaEngine_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2, 0.3}, {0.3, 0.2, 0.1}},
		})
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	vecs, err := e.Embed(context.Background(), "all-minilm", "hello", "world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 3 {
		t.Fatalf("got %v, want two 3-dim vectors", vecs)
	}
}

func TestOllamaEngine_IsRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("qwen2.5:latest"))
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	if !e.IsRunning(context.Background()) {
		t.Error("IsRunning() = false, want true")
	}
}

func TestOllamaEngine_HasModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("qwen2.5:latest", "all-minilm:latest"))
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	if !e.HasModel(context.Background(), "all-minilm") {
		t.Error("HasModel(all-minilm) = false, want true")
	}
	if e.HasModel(context.Background(), "llama3") {
		t.Error("HasModel(llama3) = true, want false")
	}
}

func TestOllamaEngine_PullModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			http.NotFound(w, r)
			return
		}
		enc := json.NewEncoder(w)
		enc.Encode(map[string]any{"status": "downloading", "total": 1000, "completed": 500})
		enc.Encode(map[string]any{"status": "downloading", "total": 1000, "completed": 1000})
		enc.Encode(map[string]any{"status": "success"})
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	var progressCount int
	err := e.PullModel(context.Background(), "all-minilm", func(p PullProgress) {
		progressCount++
	})
	if err != nil {
		t.Fatalf("PullModel: %v", err)
	}
	if progressCount != 3 {
		t.Errorf("received %d progress updates, want 3", progressCount)
	}
}

func TestOllamaEngine_Unload(t *testing.T) {
	var unloaded string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model     string `json:"model"`
			KeepAlive int    `json:"keep_alive"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if r.URL.Path == "/api/generate" && req.KeepAlive == 0 {
			unloaded = req.Model
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if err := NewOllamaEngine(srv.URL).Unload(context.Background(), "qwen2.5"); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if unloaded != "qwen2.5" {
		t.Errorf("unloaded = %q, want qwen2.5", unloaded)
	}
}

func TestOllamaEngine_MissingModelIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"qwen2.5\" not found, try pulling it first"}`))
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	_, err := e.Chat(context.Background(), "qwen2.5", []Message{{Role: "user", Content: "hi"}}, nil)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("Chat err = %v, want ErrModelUnavailable", err)
	}
	if !strings.Contains(err.Error(), "try pulling it first") {
		t.Errorf("err = %v, want server message", err)
	}

	_, err = e.Embed(context.Background(), "all-minilm", "x")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("Embed err = %v, want ErrModelUnavailable", err)
	}
}

func TestOllamaEngine_ServerErrorIsNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOllamaEngine(srv.URL).Chat(context.Background(), "qwen2.5", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrModelUnavailable) {
		t.Errorf("500 should not be classified as a missing model: %v", err)
	}
}
