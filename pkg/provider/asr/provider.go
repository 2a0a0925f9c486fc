// Package asr defines the Provider interface for batch speech recognition
// backends.
//
// Unlike a streaming recognizer, a batch provider takes one complete encoded
// audio fragment (a capture window, typically a couple of seconds of ogg/opus)
// and returns its transcript in a single round trip. The translation pipeline
// calls it once per admitted fragment.
//
// Implementations must be safe for concurrent use.
package asr

import (
	"context"
	"strings"
)

// MinViableTokens is the shortest transcript worth translating. Anything
// below this is treated as silence or a recognition artifact and dropped.
const MinViableTokens = 2

// Chunk is one encoded audio fragment to transcribe.
type Chunk struct {
	// Data is the complete encoded fragment, container and all.
	Data []byte

	// MIMEType describes the encoding, e.g. "audio/ogg;codecs=opus".
	MIMEType string

	// Language is the BCP-47 tag of the expected speech (e.g. "en-US", "es").
	Language string
}

// Transcript is the recognition result for one chunk.
type Transcript struct {
	// Text is the recognized utterance, whitespace-trimmed. May be empty when
	// the fragment held no intelligible speech.
	Text string
}

// TokenCount returns the number of whitespace-separated tokens in the
// transcript.
func (t Transcript) TokenCount() int {
	return len(strings.Fields(t.Text))
}

// Viable reports whether the transcript is substantial enough to forward to
// translation.
func (t Transcript) Viable() bool {
	return t.TokenCount() >= MinViableTokens
}

// Provider is the abstraction over any batch speech recognition backend.
type Provider interface {
	// Transcribe recognizes the speech in one chunk. An empty transcript with
	// a nil error means the backend heard nothing, which is not a failure.
	Transcribe(ctx context.Context, chunk Chunk) (Transcript, error)
}
