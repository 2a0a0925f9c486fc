// Package lang holds the closed two-language universe of a call and
// everything keyed by it: the complement relation between the two parties,
// BCP-47 tags for recognition, per-language synthesis voices and the
// direction-specific translation prompts.
package lang

import (
	"fmt"

	"github.com/babelcall/babelcall/pkg/provider/tts"
)

// Language is one member of the closed {en, es} pair a call translates
// between.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
)

// Parse validates a language code.
func Parse(code string) (Language, error) {
	switch Language(code) {
	case English:
		return English, nil
	case Spanish:
		return Spanish, nil
	default:
		return "", fmt.Errorf("lang: unsupported language %q", code)
	}
}

// Valid reports whether l is a member of the supported pair.
func (l Language) Valid() bool {
	return l == English || l == Spanish
}

// Complement returns the other member of the pair: the language the remote
// party speaks.
func (l Language) Complement() Language {
	if l == English {
		return Spanish
	}
	return English
}

// BCP47 returns the recognition tag the speech providers expect.
func (l Language) BCP47() string {
	if l == English {
		return "en-US"
	}
	return string(Spanish)
}

func (l Language) String() string { return string(l) }

// Per-language synthesis voices. The English voice speaks translations for
// the English-hearing party, the Spanish voice for the Spanish-hearing one.
var voices = map[Language]tts.Voice{
	English: {ID: "cgSgspJ2msm6clMCkdW9", Model: "eleven_turbo_v2_5"},
	Spanish: {ID: "iP95p4xoKVk53GoZ742B", Model: "eleven_multilingual_v2"},
}

// Voice returns the synthesis voice that speaks l.
func (l Language) Voice() tts.Voice {
	return voices[l]
}

// Direction-specific interpreter prompts. Keyed source-to-target.
var prompts = map[string]string{
	"es_to_en": "You are a real-time interpreter. Translate the following Colombian Spanish to natural conversational American English. Output only the translation.",
	"en_to_es": "You are a real-time interpreter. Translate the following English to conversational Colombian Spanish as spoken in Medellín. Use natural casual phrasing with tú. Output only the translation.",
}

// fallbackDirection is used when a direction has no dedicated prompt.
const fallbackDirection = "en_to_es"

// Prompt returns the system prompt for translating from source into target.
func Prompt(source, target Language) string {
	if p, ok := prompts[fmt.Sprintf("%s_to_%s", source, target)]; ok {
		return p
	}
	return prompts[fallbackDirection]
}
