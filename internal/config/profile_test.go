package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/babelcall/babelcall/internal/config"
	"github.com/babelcall/babelcall/internal/lang"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadProfile_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()
	p, err := config.LoadProfile(filepath.Join(t.TempDir(), "profile.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != config.DefaultProfile() {
		t.Errorf("got %+v, want defaults", p)
	}
	if p.Language != lang.English {
		t.Errorf("default language: got %q, want en", p.Language)
	}
}

func TestLoadProfile_MergesOverDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "profile.json")
	// A partial file: only one key set. The rest keeps defaults.
	writeFile(t, path, `{"asr_key": "dg-key"}`)

	p, err := config.LoadProfile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ASRKey != "dg-key" {
		t.Errorf("asr_key: got %q, want dg-key", p.ASRKey)
	}
	if p.Language != lang.English {
		t.Errorf("language should keep its default, got %q", p.Language)
	}
}

func TestLoadProfile_Malformed(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "profile.json")
	writeFile(t, path, `{"asr_key": `)

	if _, err := config.LoadProfile(path); err == nil {
		t.Fatal("expected error for malformed profile, got nil")
	}
}

func TestSaveProfileRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "profile.json")

	want := config.Profile{
		ASRKey:   "dg-key",
		MTKey:    "oa-key",
		TTSKey:   "el-key",
		Language: lang.Spanish,
	}
	if err := config.SaveProfile(path, want); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	// The file carries API keys, so it must not be group or world readable.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("profile permissions = %o, want 600", perm)
	}

	got, err := config.LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if got != want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}
}

func TestProfileCheck(t *testing.T) {
	t.Parallel()

	complete := config.Profile{
		ASRKey:   "a",
		MTKey:    "b",
		TTSKey:   "c",
		Language: lang.English,
	}
	if err := complete.Check(); err != nil {
		t.Errorf("complete profile should pass, got: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(p *config.Profile)
		mention string
	}{
		{"missing asr key", func(p *config.Profile) { p.ASRKey = "" }, "asr_key"},
		{"missing mt key", func(p *config.Profile) { p.MTKey = "" }, "mt_key"},
		{"missing tts key", func(p *config.Profile) { p.TTSKey = "" }, "tts_key"},
		{"invalid language", func(p *config.Profile) { p.Language = "fr" }, "language"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := complete
			tc.mutate(&p)
			err := p.Check()
			if !errors.Is(err, config.ErrProfileIncomplete) {
				t.Fatalf("expected ErrProfileIncomplete, got: %v", err)
			}
			if !strings.Contains(err.Error(), tc.mention) {
				t.Errorf("error should mention %q, got: %v", tc.mention, err)
			}
		})
	}
}
