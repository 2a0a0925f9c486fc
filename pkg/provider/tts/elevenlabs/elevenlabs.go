// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// per-voice text-to-speech endpoint. It implements the tts.Provider
// interface.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/babelcall/babelcall/pkg/provider/tts"
)

const (
	defaultBaseURL   = "https://api.elevenlabs.io"
	defaultModel     = "eleven_multilingual_v2"
	defaultOutputFmt = "mp3_44100_128"

	synthesizePathFmt = "/v1/text-to-speech/%s"

	// clipMIMEType is what the mp3 output formats come back as.
	clipMIMEType = "audio/mpeg"
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithOutputFormat sets the audio output format (e.g. "mp3_44100_128").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
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

// Provider implements tts.Provider backed by the ElevenLabs batch API.
type Provider struct {
	apiKey       string
	outputFormat string
	baseURL      string
	httpClient   *http.Client
}

var _ tts.Provider = (*Provider)(nil)

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		outputFormat: defaultOutputFmt,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// synthesizeRequest is the JSON payload of the text-to-speech endpoint.
type synthesizeRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id"`
	OutputFormat string `json:"output_format"`
}

// Synthesize implements tts.Provider: one POST per utterance, response body
// is the finished clip.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.Voice) (tts.Clip, error) {
	if voice.ID == "" {
		return tts.Clip{}, errors.New("elevenlabs: voice.ID must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return tts.Clip{}, errors.New("elevenlabs: text must not be empty")
	}

	model := voice.Model
	if model == "" {
		model = defaultModel
	}
	payload, err := json.Marshal(synthesizeRequest{
		Text:         text,
		ModelID:      model,
		OutputFormat: p.outputFormat,
	})
	if err != nil {
		return tts.Clip{}, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	u := p.baseURL + fmt.Sprintf(synthesizePathFmt, voice.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return tts.Clip{}, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("elevenlabs: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return tts.Clip{}, fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	if len(audio) == 0 {
		return tts.Clip{}, errors.New("elevenlabs: empty audio response")
	}
	return tts.Clip{Data: audio, MIMEType: clipMIMEType}, nil
}
