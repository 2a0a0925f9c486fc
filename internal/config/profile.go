package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/babelcall/babelcall/internal/lang"
)

// profileFileName is the profile's file name inside the user config dir.
const profileFileName = "babelcall/profile.json"

// ErrProfileIncomplete is returned by [Profile.Check] when a required field
// is missing. A session cannot start on an incomplete profile.
var ErrProfileIncomplete = errors.New("config: profile incomplete")

// Profile holds the per-user settings persisted between runs: the three
// provider API keys and the local language. Loaded values are merged over
// [DefaultProfile], so a partially written file keeps the remaining defaults.
type Profile struct {
	// ASRKey is the transcription provider API key.
	ASRKey string `json:"asr_key"`

	// MTKey is the translation provider API key.
	MTKey string `json:"mt_key"`

	// TTSKey is the synthesis provider API key.
	TTSKey string `json:"tts_key"`

	// Language is the language the local user speaks.
	Language lang.Language `json:"language"`
}

// DefaultProfile returns the built-in profile defaults.
func DefaultProfile() Profile {
	return Profile{Language: lang.English}
}

// Check reports whether every required field is set. Returns a
// [ErrProfileIncomplete]-wrapped error naming the first missing field.
func (p Profile) Check() error {
	switch {
	case p.ASRKey == "":
		return fmt.Errorf("%w: asr_key is not set", ErrProfileIncomplete)
	case p.MTKey == "":
		return fmt.Errorf("%w: mt_key is not set", ErrProfileIncomplete)
	case p.TTSKey == "":
		return fmt.Errorf("%w: tts_key is not set", ErrProfileIncomplete)
	case !p.Language.Valid():
		return fmt.Errorf("%w: language %q is not a supported language", ErrProfileIncomplete, p.Language)
	}
	return nil
}

// DefaultProfilePath returns the profile location inside the platform user
// config directory.
func DefaultProfilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user config dir: %w", err)
	}
	return filepath.Join(dir, filepath.FromSlash(profileFileName)), nil
}

// LoadProfile reads the profile at path and merges it over [DefaultProfile].
// A missing file yields the defaults without error; a malformed file is an
// error.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("config: read profile %q: %w", path, err)
	}

	// Unmarshal into the defaults so absent fields keep their values.
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("config: parse profile %q: %w", path, err)
	}
	return p, nil
}

// SaveProfile writes the profile to path, creating parent directories as
// needed. The file is written with user-only permissions since it carries
// API keys.
func SaveProfile(path string, p Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create profile dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode profile: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("config: write profile %q: %w", path, err)
	}
	return nil
}
