package config_test

import (
	"testing"
	"time"

	"github.com/babelcall/babelcall/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{
			ASR: config.ProviderEntry{Name: "deepgram", APIKey: "dg"},
		},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if d.ProvidersChanged {
		t.Error("expected ProvidersChanged=false for identical configs")
	}
	if d.CallChanged {
		t.Error("expected CallChanged=false for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
}

func TestDiff_ProviderNameChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Providers: config.ProvidersConfig{
			TTS: config.ProviderEntry{Name: "elevenlabs"},
		},
	}
	new := &config.Config{
		Providers: config.ProvidersConfig{
			TTS: config.ProviderEntry{Name: "coqui"},
		},
	}

	d := config.Diff(old, new)
	if !d.ProvidersChanged {
		t.Fatal("expected ProvidersChanged=true")
	}
	if len(d.ProviderChanges) != 1 {
		t.Fatalf("expected 1 provider change, got %d", len(d.ProviderChanges))
	}
	pc := d.ProviderChanges[0]
	if pc.Kind != "tts" || !pc.NameChanged || pc.NewName != "coqui" {
		t.Errorf("unexpected provider change: %+v", pc)
	}
}

func TestDiff_ProviderKeyChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Providers: config.ProvidersConfig{
			ASR: config.ProviderEntry{Name: "deepgram", APIKey: "old-key"},
		},
	}
	new := &config.Config{
		Providers: config.ProvidersConfig{
			ASR: config.ProviderEntry{Name: "deepgram", APIKey: "new-key"},
		},
	}

	d := config.Diff(old, new)
	if !d.ProvidersChanged {
		t.Fatal("expected ProvidersChanged=true")
	}
	pc := d.ProviderChanges[0]
	if pc.Kind != "asr" {
		t.Errorf("expected kind asr, got %q", pc.Kind)
	}
	if pc.NameChanged {
		t.Error("NameChanged should be false when only the key changed")
	}
}

func TestDiff_CallTuningChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Call: config.CallConfig{Window: 2 * time.Second}}
	new := &config.Config{Call: config.CallConfig{Window: 3 * time.Second}}

	d := config.Diff(old, new)
	if !d.CallChanged {
		t.Error("expected CallChanged=true")
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{
			ASR: config.ProviderEntry{Name: "deepgram"},
			MT:  config.ProviderEntry{Name: "openai"},
		},
	}
	new := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogError},
		Providers: config.ProvidersConfig{
			ASR: config.ProviderEntry{Name: "deepgram", Model: "nova-3"},
			MT:  config.ProviderEntry{Name: "ollama"},
		},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if len(d.ProviderChanges) != 2 {
		t.Errorf("expected 2 provider changes, got %d", len(d.ProviderChanges))
	}
}
