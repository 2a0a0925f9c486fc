// Package tts defines the Provider interface for speech synthesis backends.
//
// A batch synthesizer takes one sentence-or-two of translated text and
// returns a complete encoded clip ready for playback. Voice selection (which
// voice speaks which language) lives with the caller; providers only execute
// it.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Voice selects how a synthesis request sounds.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Model is the provider-specific synthesis model (e.g.
	// "eleven_turbo_v2_5"). Empty selects the provider default.
	Model string
}

// Clip is one synthesized utterance.
type Clip struct {
	// Data is the complete encoded audio.
	Data []byte

	// MIMEType describes the encoding the provider produced, e.g.
	// "audio/mpeg".
	MIMEType string
}

// Provider is the abstraction over any speech synthesis backend.
type Provider interface {
	// Synthesize renders text in the given voice and returns the finished
	// clip.
	Synthesize(ctx context.Context, text string, voice Voice) (Clip, error)
}
