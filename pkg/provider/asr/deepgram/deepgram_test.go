package deepgram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/babelcall/babelcall/pkg/provider/asr"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Error("New(\"\") succeeded, want an error")
	}
}

func TestListenURL(t *testing.T) {
	t.Parallel()

	p, err := New("key")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	u := p.listenURL("en-US")
	for _, want := range []string{
		"https://api.deepgram.com/v1/listen?",
		"model=nova-3",
		"language=en-US",
		"punctuate=true",
		"smart_format=true",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("listenURL() = %q, missing %q", u, want)
		}
	}

	p2, err := New("key", WithModel("nova-2"), WithBaseURL("http://localhost:8080/"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	u = p2.listenURL("")
	if !strings.HasPrefix(u, "http://localhost:8080/v1/listen?") {
		t.Errorf("listenURL() = %q, want the overridden base URL", u)
	}
	if !strings.Contains(u, "model=nova-2") {
		t.Errorf("listenURL() = %q, missing the overridden model", u)
	}
	if strings.Contains(u, "language=") {
		t.Errorf("listenURL() = %q, carries a language despite none set", u)
	}
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/v1/listen" {
			t.Errorf("path = %q, want /v1/listen", r.URL.Path)
		}
		if got := r.URL.Query().Get("language"); got != "es" {
			t.Errorf("language = %q, want %q", got, "es")
		}
		if got := r.Header.Get("Authorization"); got != "Token secret-key" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/ogg;codecs=opus" {
			t.Errorf("content-type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "fragment-bytes" {
			t.Errorf("body = %q", body)
		}
		io.WriteString(w, `{"results":{"channels":[{"alternatives":[{"transcript":"  dónde está la estación  "}]}]}}`)
	}))
	defer srv.Close()

	p, err := New("secret-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := p.Transcribe(context.Background(), asr.Chunk{
		Data:     []byte("fragment-bytes"),
		MIMEType: "audio/ogg;codecs=opus",
		Language: "es",
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Text != "dónde está la estación" {
		t.Errorf("Transcribe() = %q, want the trimmed transcript", got.Text)
	}
}

func TestTranscribeEmptyResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"results":{"channels":[]}}`)
	}))
	defer srv.Close()

	p, err := New("key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := p.Transcribe(context.Background(), asr.Chunk{Data: []byte("x")})
	if err != nil {
		t.Fatalf("Transcribe() error = %v, want silence to be a non-error", err)
	}
	if got.Text != "" {
		t.Errorf("Transcribe() = %q, want empty", got.Text)
	}
}

func TestTranscribeServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := New("bad-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.Transcribe(context.Background(), asr.Chunk{Data: []byte("x")})
	if err == nil {
		t.Fatal("Transcribe() succeeded on a 401")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "invalid credentials") {
		t.Errorf("error = %q, want status and body", err)
	}
}

func TestTranscribeRejectsEmptyChunk(t *testing.T) {
	t.Parallel()

	p, err := New("key")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := p.Transcribe(context.Background(), asr.Chunk{}); err == nil {
		t.Error("Transcribe() accepted an empty chunk")
	}
}
