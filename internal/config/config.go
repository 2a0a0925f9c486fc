// Package config provides the configuration schema, loader, persisted user
// profile, and provider registry for babelcall.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// IdentityMode selects how the local signaling identity is chosen.
type IdentityMode string

const (
	// IdentityManual opens with a server-assigned random identifier that is
	// shared out-of-band.
	IdentityManual IdentityMode = "manual"

	// IdentityRoom derives a deterministic identifier from a shared room code
	// and the local language, and calls the complement automatically.
	IdentityRoom IdentityMode = "room"
)

// IsValid reports whether m is a recognised identity mode.
func (m IdentityMode) IsValid() bool {
	return m == IdentityManual || m == IdentityRoom
}

// Config is the root configuration structure for babelcall.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Call      CallConfig      `yaml:"call"`
	Signaling SignalingConfig `yaml:"signaling"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds the debug listener and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the debug listener serving /metrics,
	// /healthz and /readyz (e.g., "127.0.0.1:8080"). Empty disables it.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// CallConfig holds call-session and capture tuning.
type CallConfig struct {
	// Namespace prefixes deterministic room identifiers so unrelated
	// deployments sharing a public signaling server cannot collide.
	Namespace string `yaml:"namespace"`

	// Window is the audio capture window length. Zero means the built-in
	// default (2s).
	Window time.Duration `yaml:"window"`

	// MinBytes is the minimum fragment size forwarded to the pipeline.
	// Zero means the built-in default (50).
	MinBytes int `yaml:"min_bytes"`

	// RetryInterval is the cadence of room-mode call retries while the
	// partner is unreachable. Zero means the built-in default (5s).
	RetryInterval time.Duration `yaml:"retry_interval"`

	// RestartDelay is the pause before a full session restart after an
	// identifier collision. Zero means the built-in default (3s).
	RestartDelay time.Duration `yaml:"restart_delay"`

	// ShareBaseURL is the base URL embedded in generated share links.
	ShareBaseURL string `yaml:"share_base_url"`

	// PlaybackCommand is the external player synthesized clips are piped to.
	// Empty means the built-in default.
	PlaybackCommand string `yaml:"playback_command"`
}

// SignalingConfig holds the signaling server connection settings.
type SignalingConfig struct {
	// ServerURL is the websocket URL of the PeerJS-compatible signaling
	// server. Empty means the public default.
	ServerURL string `yaml:"server_url"`

	// Key is the server API key. Empty means the public default.
	Key string `yaml:"key"`

	// STUNServers lists STUN server URLs for ICE gathering. Empty means the
	// built-in default.
	STUNServers []string `yaml:"stun_servers"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	ASR ProviderEntry `yaml:"asr"`
	MT  ProviderEntry `yaml:"mt"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "deepgram", "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any. Empty
	// falls back to the corresponding profile key.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o", "nova-3").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}
