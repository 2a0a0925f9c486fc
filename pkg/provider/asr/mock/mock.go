// Package mock provides an in-memory asr.Provider for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/babelcall/babelcall/pkg/provider/asr"
)

// Provider is a mock [asr.Provider]. Results are popped from the Results
// queue; once exhausted, Result is returned. Safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// Results is an optional queue of transcripts returned by successive
	// Transcribe calls.
	Results []asr.Transcript

	// Result is returned once Results is exhausted.
	Result asr.Transcript

	// Err, if non-nil, is returned by Transcribe.
	Err error

	// RecordedChunks holds every chunk passed to Transcribe.
	RecordedChunks []asr.Chunk
}

var _ asr.Provider = (*Provider)(nil)

func (p *Provider) Transcribe(_ context.Context, chunk asr.Chunk) (asr.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RecordedChunks = append(p.RecordedChunks, chunk)
	if p.Err != nil {
		return asr.Transcript{}, p.Err
	}
	if len(p.Results) > 0 {
		r := p.Results[0]
		p.Results = p.Results[1:]
		return r, nil
	}
	return p.Result, nil
}

// CallCount returns how many times Transcribe was called.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.RecordedChunks)
}
