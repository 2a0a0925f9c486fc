// Package deepgram provides a Deepgram-backed batch transcription provider
// using the prerecorded listen API. It implements the asr.Provider interface.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/babelcall/babelcall/pkg/provider/asr"
)

const (
	defaultBaseURL = "https://api.deepgram.com"
	defaultModel   = "nova-3"

	listenPath = "/v1/listen"
)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model (e.g. "nova-3").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = hc
	}
}

var _ asr.Provider = (*Provider)(nil)

// Provider implements asr.Provider backed by the Deepgram prerecorded API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// listenResponse mirrors the slice of the Deepgram response we consume.
type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe implements asr.Provider: one POST of the raw fragment bytes.
func (p *Provider) Transcribe(ctx context.Context, chunk asr.Chunk) (asr.Transcript, error) {
	if len(chunk.Data) == 0 {
		return asr.Transcript{}, errors.New("deepgram: chunk data must not be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.listenURL(chunk.Language), bytes.NewReader(chunk.Data))
	if err != nil {
		return asr.Transcript{}, fmt.Errorf("deepgram: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	if chunk.MIMEType != "" {
		req.Header.Set("Content-Type", chunk.MIMEType)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return asr.Transcript{}, fmt.Errorf("deepgram: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return asr.Transcript{}, fmt.Errorf("deepgram: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return asr.Transcript{}, fmt.Errorf("deepgram: decode response: %w", err)
	}
	return asr.Transcript{Text: strings.TrimSpace(firstTranscript(parsed))}, nil
}

// listenURL builds the listen endpoint with model, language and formatting
// parameters.
func (p *Provider) listenURL(language string) string {
	q := url.Values{}
	q.Set("model", p.model)
	if language != "" {
		q.Set("language", language)
	}
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	return p.baseURL + listenPath + "?" + q.Encode()
}

// firstTranscript extracts the first alternative of the first channel, the
// only one requested.
func firstTranscript(r listenResponse) string {
	if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return ""
	}
	return r.Results.Channels[0].Alternatives[0].Transcript
}
