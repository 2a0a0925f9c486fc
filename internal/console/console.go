// Package console renders call and pipeline events as terminal output: one
// status line per transition plus the heard and translated text of every
// unit. It is presentation only and holds no call or pipeline state.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/babelcall/babelcall/internal/call"
	"github.com/babelcall/babelcall/internal/pipeline"
)

// Console writes session and pipeline events to a single writer. Safe for
// concurrent use; events from the session and pipeline goroutines interleave
// line by line.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a console writing to w.
func New(w io.Writer) *Console {
	return &Console{w: w}
}

var (
	_ pipeline.Observer = (*Console)(nil)
	_ call.Observer     = (*Console)(nil)
)

// StatusChanged prints the pipeline status line verbatim.
func (c *Console) StatusChanged(s pipeline.Status) {
	c.printf("status  %s", s)
}

// Heard prints what the pipeline transcribed.
func (c *Console) Heard(text string) {
	c.printf("heard   %s", text)
}

// Translated prints what is about to be spoken.
func (c *Console) Translated(text string) {
	c.printf("speaks  %s", text)
}

// StateChanged prints call lifecycle transitions.
func (c *Console) StateChanged(s call.State) {
	c.printf("call    %s", s)
}

// IdentityReady prints the local identifier and the link to share.
func (c *Console) IdentityReady(localID, shareURL string) {
	c.printf("call    your id: %s", localID)
	if shareURL != "" {
		c.printf("call    share:   %s", shareURL)
	}
}

// SessionEnded prints the end of the call, with the terminal error when one
// occurred.
func (c *Console) SessionEnded(reason error) {
	if reason != nil {
		c.printf("call    ended: %v", reason)
		return
	}
	c.printf("call    ended")
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format+"\n", args...)
}
