package lang

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	if l, err := Parse("en"); err != nil || l != English {
		t.Errorf("Parse(\"en\") = %v, %v", l, err)
	}
	if l, err := Parse("es"); err != nil || l != Spanish {
		t.Errorf("Parse(\"es\") = %v, %v", l, err)
	}
	if _, err := Parse("fr"); err == nil {
		t.Error("Parse(\"fr\") succeeded, want an error")
	}
	if _, err := Parse(""); err == nil {
		t.Error("Parse(\"\") succeeded, want an error")
	}
}

func TestComplement(t *testing.T) {
	t.Parallel()

	if got := English.Complement(); got != Spanish {
		t.Errorf("English.Complement() = %v", got)
	}
	if got := Spanish.Complement(); got != English {
		t.Errorf("Spanish.Complement() = %v", got)
	}
	// The relation is an involution.
	for _, l := range []Language{English, Spanish} {
		if got := l.Complement().Complement(); got != l {
			t.Errorf("%v.Complement().Complement() = %v", l, got)
		}
	}
}

func TestBCP47(t *testing.T) {
	t.Parallel()

	if got := English.BCP47(); got != "en-US" {
		t.Errorf("English.BCP47() = %q", got)
	}
	if got := Spanish.BCP47(); got != "es" {
		t.Errorf("Spanish.BCP47() = %q", got)
	}
}

func TestVoice(t *testing.T) {
	t.Parallel()

	en := English.Voice()
	es := Spanish.Voice()
	if en.ID == "" || es.ID == "" {
		t.Fatal("voice IDs must be configured for both languages")
	}
	if en.ID == es.ID {
		t.Error("both languages share a voice")
	}
	if en.Model != "eleven_turbo_v2_5" {
		t.Errorf("English voice model = %q", en.Model)
	}
	if es.Model != "eleven_multilingual_v2" {
		t.Errorf("Spanish voice model = %q", es.Model)
	}
}

func TestPrompt(t *testing.T) {
	t.Parallel()

	esEn := Prompt(Spanish, English)
	if !strings.Contains(esEn, "Colombian Spanish") || !strings.Contains(esEn, "American English") {
		t.Errorf("Prompt(es, en) = %q", esEn)
	}
	enEs := Prompt(English, Spanish)
	if !strings.Contains(enEs, "Medellín") {
		t.Errorf("Prompt(en, es) = %q", enEs)
	}
	// Same-language directions have no dedicated prompt and fall back.
	if got := Prompt(English, English); got != enEs {
		t.Errorf("Prompt(en, en) = %q, want the fallback", got)
	}
}
