// Package pipeline runs the per-unit translation cascade: transcribe the
// remote party's speech, translate it, synthesize it in the local language,
// and play it back.
//
// The pipeline is single-flight. A gate admits at most one unit at a time;
// [Pipeline.TryProcess] reports whether the unit was admitted so the
// segmenter can keep accumulating while a unit is in flight. Provider
// failures are never fatal to the call: the unit is abandoned, the failure is
// surfaced as a status transition, and the gate reopens for the next unit.
package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/babelcall/babelcall/internal/lang"
	"github.com/babelcall/babelcall/internal/observe"
	"github.com/babelcall/babelcall/pkg/media"
	"github.com/babelcall/babelcall/pkg/provider/asr"
	"github.com/babelcall/babelcall/pkg/provider/mt"
	"github.com/babelcall/babelcall/pkg/provider/tts"
)

// Status is one observable pipeline state, shown verbatim to the user.
type Status string

const (
	StatusSteady            Status = "Connected ✓"
	StatusTranscribing      Status = "Transcribing..."
	StatusTranslating       Status = "Translating..."
	StatusSpeaking          Status = "Speaking..."
	StatusTranslationFailed Status = "⚠ Translation failed"
	StatusAudioFailed       Status = "⚠ Audio failed"
)

// Observer receives pipeline events for presentation. Implementations must
// not block; updates are last-write-wins.
type Observer interface {
	// StatusChanged reports a pipeline status transition.
	StatusChanged(s Status)

	// Heard reports the transcript of the captured speech, in the source
	// language.
	Heard(text string)

	// Translated reports the translation about to be spoken, in the target
	// language.
	Translated(text string)
}

// NopObserver is an [Observer] that discards all events.
type NopObserver struct{}

func (NopObserver) StatusChanged(Status) {}
func (NopObserver) Heard(string)         {}
func (NopObserver) Translated(string)    {}

// Player renders a synthesized clip and blocks until playback completes.
type Player interface {
	Play(ctx context.Context, clip tts.Clip) error
}

// Pipeline is the single-flight translation cascade for one call direction:
// it transcribes speech in the source language and speaks the complement.
type Pipeline struct {
	asr    asr.Provider
	mt     mt.Provider
	tts    tts.Provider
	player Player

	// source is the transcription language, target its complement.
	source lang.Language
	target lang.Language

	observer Observer
	metrics  *observe.Metrics
	log      *slog.Logger

	asrName string
	mtName  string
	ttsName string

	busy   atomic.Bool
	closed atomic.Bool

	// ctx bounds provider calls for units admitted by TryProcess.
	ctx context.Context
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithObserver sets the event observer. Defaults to [NopObserver].
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithProviderNames sets the provider names recorded in metrics. Defaults to
// the kind names.
func WithProviderNames(asrName, mtName, ttsName string) Option {
	return func(p *Pipeline) {
		p.asrName = asrName
		p.mtName = mtName
		p.ttsName = ttsName
	}
}

// New creates a Pipeline transcribing source-language speech and speaking
// the complement. Provider calls of admitted units are bounded by ctx; an
// in-flight unit runs to completion even after [Pipeline.Close].
func New(ctx context.Context, a asr.Provider, m mt.Provider, t tts.Provider, player Player, source lang.Language, opts ...Option) *Pipeline {
	p := &Pipeline{
		asr:      a,
		mt:       m,
		tts:      t,
		player:   player,
		source:   source,
		target:   source.Complement(),
		observer: NopObserver{},
		log:      slog.Default(),
		asrName:  "asr",
		mtName:   "mt",
		ttsName:  "tts",
		ctx:      ctx,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// TryProcess admits the unit into the cascade if the pipeline is free.
// Returns false, leaving the unit with the caller, when a unit is already in
// flight or the pipeline is closed. On admission the unit is processed on its
// own goroutine and the gate reopens when the cascade finishes, whatever the
// outcome.
func (p *Pipeline) TryProcess(chunk media.AudioChunk) bool {
	if p.closed.Load() {
		return false
	}
	if !p.busy.CompareAndSwap(false, true) {
		p.metrics.RecordUnitDropped(p.ctx, "busy")
		return false
	}
	go func() {
		defer p.busy.Store(false)
		p.run(chunk)
	}()
	return true
}

// Close stops admitting new units. An in-flight unit is not aborted; its
// playback simply lands after the call ended and its result is discarded by
// the closed output path.
func (p *Pipeline) Close() {
	p.closed.Store(true)
}

// Busy reports whether a unit is currently in flight.
func (p *Pipeline) Busy() bool {
	return p.busy.Load()
}

// run executes the four-stage cascade for one admitted unit.
func (p *Pipeline) run(chunk media.AudioChunk) {
	ctx, span := observe.StartSpan(p.ctx, "pipeline.unit")
	defer span.End()

	log := p.log
	if cid := observe.CorrelationID(ctx); cid != "" {
		log = log.With("trace_id", cid)
	}
	unitStart := time.Now()

	// Stage 1: transcribe.
	p.observer.StatusChanged(StatusTranscribing)
	start := time.Now()
	transcript, err := p.asr.Transcribe(ctx, asr.Chunk{
		Data:     chunk.Data,
		MIMEType: chunk.MIMEType,
		Language: p.source.BCP47(),
	})
	p.metrics.ASRDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordProviderError(ctx, p.asrName, "asr")
		p.metrics.RecordProviderRequest(ctx, p.asrName, "asr", "error")
		log.Warn("transcription failed", "err", err)
		p.observer.StatusChanged(StatusSteady)
		return
	}
	p.metrics.RecordProviderRequest(ctx, p.asrName, "asr", "ok")
	if !transcript.Viable() {
		p.metrics.RecordUnitDropped(ctx, "short_transcript")
		p.observer.StatusChanged(StatusSteady)
		return
	}
	p.observer.Heard(transcript.Text)

	// Stage 2: translate.
	p.observer.StatusChanged(StatusTranslating)
	start = time.Now()
	translation, err := p.mt.Translate(ctx, mt.Request{
		SystemPrompt: lang.Prompt(p.source, p.target),
		Text:         transcript.Text,
	})
	p.metrics.MTDuration.Record(ctx, time.Since(start).Seconds())
	if err == nil && translation == "" {
		err = mt.ErrEmptyTranslation
	}
	if err != nil {
		p.metrics.RecordProviderError(ctx, p.mtName, "mt")
		p.metrics.RecordProviderRequest(ctx, p.mtName, "mt", "error")
		log.Warn("translation failed", "err", err)
		p.observer.StatusChanged(StatusTranslationFailed)
		return
	}
	p.metrics.RecordProviderRequest(ctx, p.mtName, "mt", "ok")
	p.observer.Translated(translation)

	// Stage 3: synthesize.
	p.observer.StatusChanged(StatusSpeaking)
	start = time.Now()
	clip, err := p.tts.Synthesize(ctx, translation, p.target.Voice())
	p.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordProviderError(ctx, p.ttsName, "tts")
		p.metrics.RecordProviderRequest(ctx, p.ttsName, "tts", "error")
		log.Warn("synthesis failed", "err", err)
		p.observer.StatusChanged(StatusAudioFailed)
		return
	}
	p.metrics.RecordProviderRequest(ctx, p.ttsName, "tts", "ok")

	// Stage 4: play. Playback errors are logged and swallowed so the cascade
	// resolves either way.
	if err := p.player.Play(ctx, clip); err != nil {
		log.Warn("playback failed", "err", err)
	}

	p.metrics.UnitDuration.Record(ctx, time.Since(unitStart).Seconds())
	p.observer.StatusChanged(StatusSteady)
}
