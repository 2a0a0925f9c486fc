package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ProvidersChanged is true when any provider entry changed. Provider
	// changes apply to the next session, not the one in flight.
	ProvidersChanged bool
	ProviderChanges  []ProviderDiff

	// CallChanged is true when call tuning (window, thresholds, timers)
	// changed. Applied to the next session.
	CallChanged bool
}

// ProviderDiff describes what changed for a single provider kind.
type ProviderDiff struct {
	Kind        string
	NameChanged bool
	NewName     string
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	// Providers
	pairs := []struct {
		kind     string
		old, new ProviderEntry
	}{
		{"asr", old.Providers.ASR, new.Providers.ASR},
		{"mt", old.Providers.MT, new.Providers.MT},
		{"tts", old.Providers.TTS, new.Providers.TTS},
	}
	for _, p := range pairs {
		if pd, changed := diffProvider(p.kind, p.old, p.new); changed {
			d.ProviderChanges = append(d.ProviderChanges, pd)
			d.ProvidersChanged = true
		}
	}

	// Call tuning
	if old.Call != new.Call {
		d.CallChanged = true
	}

	return d
}

// diffProvider compares two provider entries of the same kind. The Options
// map is compared by length only; option-level diffs are not tracked.
func diffProvider(kind string, old, new ProviderEntry) (ProviderDiff, bool) {
	pd := ProviderDiff{Kind: kind}
	changed := old.Name != new.Name ||
		old.APIKey != new.APIKey ||
		old.BaseURL != new.BaseURL ||
		old.Model != new.Model ||
		len(old.Options) != len(new.Options)
	if old.Name != new.Name {
		pd.NameChanged = true
		pd.NewName = new.Name
	}
	return pd, changed
}
