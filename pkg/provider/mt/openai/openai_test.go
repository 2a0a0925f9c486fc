package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/babelcall/babelcall/pkg/provider/mt"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("New with empty apiKey succeeded")
	}
	p, err := New("sk-test", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.model != DefaultModel {
		t.Errorf("model = %q, want the default %q", p.model, DefaultModel)
	}
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  Where is the station?  "}}]}`)
	}))
	defer srv.Close()

	p, err := New("sk-test", "gpt-4o", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := p.Translate(context.Background(), mt.Request{
		SystemPrompt: "Translate Spanish to English.",
		Text:         "¿Dónde está la estación?",
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Where is the station?" {
		t.Errorf("Translate() = %q, want the trimmed content", got)
	}

	if captured["model"] != "gpt-4o" {
		t.Errorf("model = %v", captured["model"])
	}
	if temp, _ := captured["temperature"].(float64); temp != mt.Temperature {
		t.Errorf("temperature = %v, want %v", captured["temperature"], mt.Temperature)
	}
	if max, _ := captured["max_completion_tokens"].(float64); max != mt.MaxTokens {
		t.Errorf("max_completion_tokens = %v, want %v", captured["max_completion_tokens"], mt.MaxTokens)
	}
	msgs, _ := captured["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want system + user", len(msgs))
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" {
		t.Errorf("first message role = %v, want system", first["role"])
	}
}

func TestTranslateEmptyContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`)
	}))
	defer srv.Close()

	p, err := New("sk-test", "gpt-4o", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.Translate(context.Background(), mt.Request{SystemPrompt: "x", Text: "y"})
	if !errors.Is(err, mt.ErrEmptyTranslation) {
		t.Errorf("Translate() error = %v, want ErrEmptyTranslation", err)
	}
}
