// Package mock provides an in-memory mt.Provider for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/babelcall/babelcall/pkg/provider/mt"
)

// Provider is a mock [mt.Provider]. Safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Translate when ResultFunc is nil.
	Result string

	// ResultFunc, if set, computes the translation from the request.
	ResultFunc func(req mt.Request) string

	// Err, if non-nil, is returned by Translate.
	Err error

	// RecordedRequests holds every request passed to Translate.
	RecordedRequests []mt.Request
}

var _ mt.Provider = (*Provider)(nil)

func (p *Provider) Translate(_ context.Context, req mt.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RecordedRequests = append(p.RecordedRequests, req)
	if p.Err != nil {
		return "", p.Err
	}
	if p.ResultFunc != nil {
		return p.ResultFunc(req), nil
	}
	return p.Result, nil
}

// CallCount returns how many times Translate was called.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.RecordedRequests)
}
