// Command babelcall relays a two-party video call while translating speech
// between the two parties in near real time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/babelcall/babelcall/internal/call"
	"github.com/babelcall/babelcall/internal/config"
	"github.com/babelcall/babelcall/internal/console"
	"github.com/babelcall/babelcall/internal/health"
	"github.com/babelcall/babelcall/internal/lang"
	"github.com/babelcall/babelcall/internal/observe"
	"github.com/babelcall/babelcall/internal/pipeline"
	"github.com/babelcall/babelcall/internal/playback"
	"github.com/babelcall/babelcall/internal/sharelink"
	"github.com/babelcall/babelcall/pkg/media/pion"
	"github.com/babelcall/babelcall/pkg/provider/asr"
	"github.com/babelcall/babelcall/pkg/provider/asr/deepgram"
	"github.com/babelcall/babelcall/pkg/provider/mt"
	mtanyllm "github.com/babelcall/babelcall/pkg/provider/mt/anyllm"
	mtopenai "github.com/babelcall/babelcall/pkg/provider/mt/openai"
	"github.com/babelcall/babelcall/pkg/provider/tts"
	"github.com/babelcall/babelcall/pkg/provider/tts/coqui"
	"github.com/babelcall/babelcall/pkg/provider/tts/elevenlabs"
	"github.com/babelcall/babelcall/pkg/signal/peerjs"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	profilePath := flag.String("profile", "", "path to the profile JSON (default: user config dir)")
	roomCode := flag.String("room", "", "shared room code; both parties join with the same code")
	join := flag.String("join", "", "share link or peer identifier to call immediately")
	langFlag := flag.String("lang", "", "local language override (en or es)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "babelcall: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "babelcall: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("babelcall starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Profile ───────────────────────────────────────────────────────────────
	path := *profilePath
	if path == "" {
		if path, err = config.DefaultProfilePath(); err != nil {
			slog.Error("failed to locate profile", "err", err)
			return 1
		}
	}
	profile, err := config.LoadProfile(path)
	if err != nil {
		slog.Error("failed to load profile", "path", path, "err", err)
		return 1
	}
	if err := profile.Check(); err != nil {
		fmt.Fprintf(os.Stderr, "babelcall: %v — edit %s\n", err, path)
		return 1
	}

	// ── Identity and language ─────────────────────────────────────────────────
	identity, local, err := resolveIdentity(cfg, profile, *roomCode, *join, *langFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "babelcall: %v\n", err)
		return 1
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg, profile)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Observability ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "babelcall"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// ── Config watcher: hot-reload the log level ──────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "log_level", d.NewLogLevel)
		}
		if d.ProvidersChanged || d.CallChanged {
			slog.Info("provider or call tuning changes take effect on the next call")
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, providers, identity, local)

	// ── Call wiring ───────────────────────────────────────────────────────────
	sink, err := playback.NewCmdSink(cfg.Call.PlaybackCommand, logger)
	if err != nil {
		slog.Error("failed to set up playback", "err", err)
		return 1
	}
	player, err := playback.New(playback.WithEncodedSink(sink), playback.WithLogger(logger))
	if err != nil {
		slog.Error("failed to set up playback", "err", err)
		return 1
	}

	ui := console.New(os.Stdout)

	transportFactory := pion.Factory(
		pion.WithSTUNServers(cfg.Signaling.STUNServers),
		pion.WithLogger(logger),
	)
	var signalOpts []peerjs.Option
	if cfg.Signaling.ServerURL != "" {
		signalOpts = append(signalOpts, peerjs.WithServerURL(cfg.Signaling.ServerURL))
	}
	if cfg.Signaling.Key != "" {
		signalOpts = append(signalOpts, peerjs.WithKey(cfg.Signaling.Key))
	}
	signalOpts = append(signalOpts, peerjs.WithLogger(logger))
	opener := peerjs.NewClient(transportFactory, signalOpts...)

	translator := func(ctx context.Context) call.Translator {
		return pipeline.New(ctx, providers.ASR, providers.MT, providers.TTS, player, local,
			pipeline.WithObserver(ui),
			pipeline.WithLogger(logger),
			pipeline.WithProviderNames(providers.ASRName, providers.MTName, providers.TTSName),
		)
	}

	session := call.NewSession(pion.Devices{}, opener, translator, identity, local,
		call.WithObserver(ui),
		call.WithLogger(logger),
		call.WithRetryInterval(cfg.Call.RetryInterval),
		call.WithRestartDelay(cfg.Call.RestartDelay),
		call.WithCaptureWindow(cfg.Call.Window),
		call.WithMinBytes(cfg.Call.MinBytes),
		call.WithShareBaseURL(cfg.Call.ShareBaseURL),
	)

	manager := call.NewManager()

	// ── Debug listener ────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		health.New(health.Checker{
			Name: "session",
			Check: func(context.Context) error {
				if manager.Active() == nil {
					return errors.New("no active session")
				}
				return nil
			},
		}).Register(mux)
		srv := &http.Server{
			Addr:    cfg.Server.ListenAddr,
			Handler: observe.Middleware(observe.DefaultMetrics())(mux),
		}
		g.Go(func() error {
			slog.Info("debug listener ready", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := manager.Start(ctx, session); err != nil {
		slog.Error("failed to start call session", "err", err)
		return 1
	}

	slog.Info("session running — press Ctrl+C to hang up")

	select {
	case <-session.Done():
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutting down…")
	manager.End()
	stop()
	if err := g.Wait(); err != nil {
		slog.Warn("debug listener error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}

	if err := session.Err(); err != nil {
		slog.Error("session error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Identity resolution ───────────────────────────────────────────────────────

// resolveIdentity derives the identity mode and local language from flags,
// profile and, for -join, the pasted share link. An explicit -lang wins over
// a link's language hint, which wins over the profile.
func resolveIdentity(cfg *config.Config, profile config.Profile, roomCode, join, langFlag string) (call.Identity, lang.Language, error) {
	local := profile.Language

	identity := call.Identity{
		Mode:      config.IdentityManual,
		Namespace: cfg.Call.Namespace,
	}
	switch {
	case roomCode != "" && join != "":
		return call.Identity{}, "", errors.New("-room and -join are mutually exclusive")
	case roomCode != "":
		identity.Mode = config.IdentityRoom
		identity.RoomCode = roomCode
	case join != "":
		remoteID, err := sharelink.PeerID(join)
		if err != nil {
			return call.Identity{}, "", fmt.Errorf("parse -join: %w", err)
		}
		identity.RemoteID = remoteID
		if link, err := sharelink.Parse(join); err == nil && link.Language.Valid() {
			local = link.Language
		}
	}

	if langFlag != "" {
		parsed, err := lang.Parse(langFlag)
		if err != nil {
			return call.Identity{}, "", err
		}
		local = parsed
	}
	if !local.Valid() {
		return call.Identity{}, "", fmt.Errorf("unsupported local language %q", local)
	}
	return identity, local, nil
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// providerSet holds the three pipeline providers the session needs, plus
// their resolved names for metrics labels and the startup summary.
type providerSet struct {
	ASR asr.Provider
	MT  mt.Provider
	TTS tts.Provider

	ASRName, MTName, TTSName string
}

// anyllmBackends are the chat backends served through any-llm-go. ollama is
// registered separately: it is a local server addressed via BaseURL.
var anyllmBackends = []string{
	"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── ASR ───────────────────────────────────────────────────────────────────

	reg.RegisterASR("deepgram", func(entry config.ProviderEntry) (asr.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithBaseURL(entry.BaseURL))
		}
		p, err := deepgram.New(entry.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// ── MT ────────────────────────────────────────────────────────────────────

	reg.RegisterMT("openai", func(entry config.ProviderEntry) (mt.Provider, error) {
		var opts []mtopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, mtopenai.WithBaseURL(entry.BaseURL))
		}
		p, err := mtopenai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	for _, providerName := range anyllmBackends {
		reg.RegisterMT(providerName, func(entry config.ProviderEntry) (mt.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			p, err := mtanyllm.New(providerName, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterMT("ollama", func(entry config.ProviderEntry) (mt.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		p, err := mtanyllm.New("ollama", entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		p, err := elevenlabs.New(entry.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if l := optString(entry.Options, "language"); l != "" {
			opts = append(opts, coqui.WithLanguage(l))
		}
		p, err := coqui.New(entry.BaseURL, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// buildProviders instantiates the three pipeline providers named in cfg. All
// three are required; API keys left empty in the config come from the
// profile.
func buildProviders(cfg *config.Config, reg *config.Registry, profile config.Profile) (*providerSet, error) {
	ps := &providerSet{}

	entry := withDefaults(cfg.Providers.ASR, "deepgram", profile.ASRKey)
	p, err := reg.CreateASR(entry)
	if err != nil {
		return nil, fmt.Errorf("create asr provider %q: %w", entry.Name, err)
	}
	ps.ASR = p
	ps.ASRName = entry.Name
	slog.Info("provider created", "kind", "asr", "name", entry.Name)

	entry = withDefaults(cfg.Providers.MT, "openai", profile.MTKey)
	m, err := reg.CreateMT(entry)
	if err != nil {
		return nil, fmt.Errorf("create mt provider %q: %w", entry.Name, err)
	}
	ps.MT = m
	ps.MTName = entry.Name
	slog.Info("provider created", "kind", "mt", "name", entry.Name)

	entry = withDefaults(cfg.Providers.TTS, "elevenlabs", profile.TTSKey)
	t, err := reg.CreateTTS(entry)
	if err != nil {
		return nil, fmt.Errorf("create tts provider %q: %w", entry.Name, err)
	}
	ps.TTS = t
	ps.TTSName = entry.Name
	slog.Info("provider created", "kind", "tts", "name", entry.Name)

	return ps, nil
}

// withDefaults fills in the default provider name and the profile API key.
func withDefaults(entry config.ProviderEntry, defaultName, profileKey string) config.ProviderEntry {
	if entry.Name == "" {
		entry.Name = defaultName
	}
	if entry.APIKey == "" {
		entry.APIKey = profileKey
	}
	return entry
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, providers *providerSet, identity call.Identity, local lang.Language) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        babelcall — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printValue("Mode", string(identity.Mode))
	printValue("Language", local.String())
	printProvider("ASR", providers.ASRName, cfg.Providers.ASR.Model)
	printProvider("MT", providers.MTName, cfg.Providers.MT.Model)
	printProvider("TTS", providers.TTSName, cfg.Providers.TTS.Model)
	if cfg.Signaling.ServerURL != "" {
		printValue("Signaling", cfg.Signaling.ServerURL)
	}
	if cfg.Server.ListenAddr != "" {
		printValue("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if model != "" {
		value = name + " / " + model
	}
	printValue(kind, value)
}

func printValue(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger builds the default logger with a mutable level so the config
// watcher can adjust verbosity at runtime.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
