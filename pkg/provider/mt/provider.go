// Package mt defines the Provider interface for machine translation
// backends.
//
// Translation is one chat completion: a direction-specific system prompt
// setting persona and target language, and the transcript as the user
// message. The pipeline calls it once per viable transcript.
//
// Implementations must be safe for concurrent use.
package mt

import (
	"context"
	"errors"
)

// Completion parameters shared by every backend; low temperature keeps the
// translation literal, the token cap bounds cost for a few seconds of speech.
const (
	Temperature = 0.3
	MaxTokens   = 500
)

// ErrEmptyTranslation is returned when the backend produced no usable text.
var ErrEmptyTranslation = errors.New("mt: empty translation")

// Request is one translation unit.
type Request struct {
	// SystemPrompt carries the direction-specific translation instructions.
	SystemPrompt string

	// Text is the transcript to translate.
	Text string
}

// Provider is the abstraction over any translation backend.
type Provider interface {
	// Translate renders req.Text per req.SystemPrompt and returns the
	// trimmed result. An empty result is [ErrEmptyTranslation].
	Translate(ctx context.Context, req Request) (string, error)
}
