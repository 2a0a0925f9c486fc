// Package mock provides an in-memory tts.Provider for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/babelcall/babelcall/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the text passed to Synthesize.
	Text string

	// Voice is the voice passed to Synthesize.
	Voice tts.Voice
}

// Provider is a mock [tts.Provider]. Safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Synthesize. A zero value yields a small fake
	// clip so pipeline tests have bytes to play.
	Result tts.Clip

	// Err, if non-nil, is returned by Synthesize.
	Err error

	// Calls records every invocation.
	Calls []SynthesizeCall
}

var _ tts.Provider = (*Provider)(nil)

func (p *Provider) Synthesize(_ context.Context, text string, voice tts.Voice) (tts.Clip, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, SynthesizeCall{Text: text, Voice: voice})
	if p.Err != nil {
		return tts.Clip{}, p.Err
	}
	if p.Result.Data == nil {
		return tts.Clip{Data: []byte("mock-audio"), MIMEType: "audio/mpeg"}, nil
	}
	return p.Result, nil
}

// CallCount returns how many times Synthesize was called.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
