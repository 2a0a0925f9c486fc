// Package call implements the call-session state machine: media acquisition,
// signaling identity, dialing with retry, auto-answer, and teardown.
//
// A [Session] owns every resource of one call (local stream, signaling peer,
// call handle, segmenter, translation pipeline) and is driven by a single
// dispatch goroutine. External callbacks and timers post events into the
// machine; the transition table in events.go decides what each event means in
// the state it arrives in. Error handling follows the signaling taxonomy: a
// peer that does not exist yet is redialed on a fixed interval, an identity
// collision restarts the whole session with a fresh identity after a delay,
// media denial and unclassified signaling errors are terminal.
package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/babelcall/babelcall/internal/config"
	"github.com/babelcall/babelcall/internal/lang"
	"github.com/babelcall/babelcall/internal/observe"
	"github.com/babelcall/babelcall/internal/segment"
	"github.com/babelcall/babelcall/internal/sharelink"
	"github.com/babelcall/babelcall/pkg/media"
	"github.com/babelcall/babelcall/pkg/signal"
)

const (
	// DefaultRetryInterval is how long a room-mode session waits before
	// redialing a partner identity that does not exist yet.
	DefaultRetryInterval = 5 * time.Second

	// DefaultRestartDelay is how long the session waits after an identifier
	// collision before restarting with a fresh identity.
	DefaultRestartDelay = 3 * time.Second
)

// Translator consumes captured audio units. *pipeline.Pipeline satisfies it.
type Translator interface {
	// TryProcess offers a unit; false means the unit stays with the caller.
	TryProcess(chunk media.AudioChunk) bool

	// Close stops admitting units. An in-flight unit runs to completion and
	// its result is discarded by the closed outputs.
	Close()
}

// TranslatorFactory builds the unit consumer for one connected call. ctx
// bounds the provider calls of every unit the consumer admits.
type TranslatorFactory func(ctx context.Context) Translator

// Identity selects how the session claims its signaling identifier and whom
// it calls.
type Identity struct {
	// Mode is manual (server-assigned random identifier) or room
	// (deterministic identifier derived from RoomCode).
	Mode config.IdentityMode

	// Namespace prefixes room identifiers. Empty means
	// [signal.DefaultNamespace].
	Namespace string

	// RoomCode is the shared room code. Room mode only.
	RoomCode string

	// RemoteID, when set in manual mode, triggers an immediate outgoing call
	// once the identity is open.
	RemoteID string
}

// Observer receives session lifecycle events for presentation.
// Implementations must not block.
type Observer interface {
	// StateChanged reports a lifecycle transition.
	StateChanged(s State)

	// IdentityReady reports the confirmed local identifier and the share link
	// that encodes it.
	IdentityReady(localID, shareURL string)

	// SessionEnded reports teardown. reason is nil for a normal hang-up and
	// the terminal error otherwise.
	SessionEnded(reason error)
}

// NopObserver is an [Observer] that discards all events.
type NopObserver struct{}

func (NopObserver) StateChanged(State)           {}
func (NopObserver) IdentityReady(string, string) {}
func (NopObserver) SessionEnded(error)           {}

// Option configures a [Session].
type Option func(*Session)

// WithObserver sets the event observer. Defaults to [NopObserver].
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithRetryInterval sets the redial interval for an unavailable partner.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.retryInterval = d
		}
	}
}

// WithRestartDelay sets the pause before restarting after an identifier
// collision.
func WithRestartDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.restartDelay = d
		}
	}
}

// WithCaptureWindow sets the segmenter window duration.
func WithCaptureWindow(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithMinBytes sets the segmenter silence threshold.
func WithMinBytes(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.minBytes = n
		}
	}
}

// WithShareBaseURL sets the base URL share links are built on.
func WithShareBaseURL(u string) Option {
	return func(s *Session) { s.shareBase = u }
}

// Session is one live or pending call. All lifecycle state is owned by the
// dispatch goroutine; the exported surface posts events and reads snapshots.
type Session struct {
	devices    media.Devices
	opener     signal.Opener
	translator TranslatorFactory
	identity   Identity
	local      lang.Language

	observer Observer
	metrics  *observe.Metrics
	log      *slog.Logger

	retryInterval time.Duration
	restartDelay  time.Duration
	window        time.Duration
	minBytes      int
	shareBase     string

	events  chan event
	done    chan struct{}
	started atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	stateMu   sync.Mutex
	state     State
	endReason error

	// Everything below is touched only on the dispatch goroutine.
	gen        int
	localMedia media.Stream
	peer       signal.Peer
	call       signal.Call
	recorder   media.Recorder
	seg        *segment.Segmenter
	unit       Translator
	dialTarget string
	connected  bool
	stopped    bool
}

// NewSession creates a session for one call attempt. Nothing happens until
// [Session.Start].
func NewSession(devices media.Devices, opener signal.Opener, translator TranslatorFactory, identity Identity, local lang.Language, opts ...Option) *Session {
	s := &Session{
		devices:       devices,
		opener:        opener,
		translator:    translator,
		identity:      identity,
		local:         local,
		observer:      NopObserver{},
		log:           slog.Default(),
		retryInterval: DefaultRetryInterval,
		restartDelay:  DefaultRestartDelay,
		window:        segment.DefaultWindow,
		minBytes:      segment.DefaultMinBytes,
		events:        make(chan event, 32),
		done:          make(chan struct{}),
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Start launches the dispatch goroutine and begins media acquisition. The
// session ends when the call ends, a terminal error occurs, or ctx is
// cancelled. A session runs at most once.
func (s *Session) Start(ctx context.Context) error {
	if !s.identity.Mode.IsValid() {
		return fmt.Errorf("call: unknown identity mode %q", s.identity.Mode)
	}
	if s.identity.Mode == config.IdentityRoom && s.identity.RoomCode == "" {
		return errors.New("call: room mode requires a room code")
	}
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("call: session already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	go s.loop()
	s.post(event{kind: evStart})
	return nil
}

// Hangup requests a normal end of the call. Safe to call at any time.
func (s *Session) Hangup() {
	s.post(event{kind: evHangup})
}

// Done is closed once the session has fully torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Err returns the terminal error, nil for a normal end. Valid after Done.
func (s *Session) Err() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.endReason
}

// post hands an event to the dispatch goroutine. Events arriving after the
// loop stopped are dropped.
func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
		s.log.Debug("dropping event after session end", "event", string(ev.kind))
	}
}

func (s *Session) loop() {
	defer close(s.done)
	defer s.cancel()
	for {
		select {
		case <-s.ctx.Done():
			if !s.stopped {
				s.finish(nil)
			}
			return
		case ev := <-s.events:
			s.dispatch(ev)
			if s.stopped {
				return
			}
		}
	}
}

// dispatch routes one event through the transition table. Pairs the table
// does not know are ignored: a late callback from a torn-down call must not
// disturb the current state.
func (s *Session) dispatch(ev event) {
	if handlers, ok := transitions[s.State()]; ok {
		if h, ok := handlers[ev.kind]; ok {
			h(s, ev)
			return
		}
	}
	s.log.Debug("ignoring event", "state", string(s.State()), "event", string(ev.kind))
}

func (s *Session) setState(next State) {
	s.stateMu.Lock()
	prev := s.state
	s.state = next
	s.stateMu.Unlock()
	if prev != next {
		s.log.Debug("session state changed", "from", string(prev), "to", string(next))
		s.observer.StateChanged(next)
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (s *Session) handleStart(event) {
	s.setState(StateAcquiringMedia)
	go func() {
		stream, err := s.devices.AcquireMedia(s.ctx, media.Constraints{Audio: true, Video: true})
		if err != nil {
			s.post(event{kind: evMediaFailed, err: err})
			return
		}
		s.post(event{kind: evMediaReady, stream: stream})
	}()
}

func (s *Session) handleMediaReady(ev event) {
	s.localMedia = ev.stream
	s.setState(StateEstablishingIdentity)
	requested := ""
	if s.identity.Mode == config.IdentityRoom {
		requested = signal.RoomID(s.identity.Namespace, s.identity.RoomCode, s.local.String())
	}
	go func() {
		peer, err := s.opener.Open(s.ctx, requested)
		if err != nil {
			s.post(event{kind: evIdentityFailed, err: err})
			return
		}
		s.post(event{kind: evIdentityReady, peer: peer})
	}()
}

func (s *Session) handleMediaFailed(ev event) {
	s.finish(fmt.Errorf("call: acquire media: %w", ev.err))
}

func (s *Session) handleIdentityReady(ev event) {
	s.peer = ev.peer
	s.peer.OnCall(func(ic signal.IncomingCall) {
		s.post(event{kind: evIncoming, incoming: ic})
	})
	s.peer.OnError(func(se *signal.Error) {
		s.post(event{kind: evSignalError, err: se})
	})

	if url, err := sharelink.Build(s.shareBase, s.peer.ID(), s.local); err == nil {
		s.observer.IdentityReady(s.peer.ID(), url)
	} else {
		s.observer.IdentityReady(s.peer.ID(), "")
	}

	switch {
	case s.identity.Mode == config.IdentityRoom:
		s.setState(StateWaitingForPartner)
		s.dial(signal.RoomID(s.identity.Namespace, s.identity.RoomCode, s.local.Complement().String()))
	case s.identity.RemoteID != "":
		s.setState(StateCalling)
		s.dial(s.identity.RemoteID)
	default:
		s.setState(StateSharing)
	}
}

func (s *Session) handleIdentityFailed(ev event) {
	if signal.IsIDTaken(ev.err) {
		s.restartAfterCollision()
		return
	}
	s.finish(fmt.Errorf("call: open identity: %w", ev.err))
}

// dial places an outgoing call off the dispatch goroutine. The handle comes
// back as an event; server-reported failures arrive via the peer error
// callback.
func (s *Session) dial(remoteID string) {
	s.dialTarget = remoteID
	peer, local := s.peer, s.localMedia
	go func() {
		c, err := peer.Call(s.ctx, remoteID, local)
		if err != nil {
			s.post(event{kind: evSignalError, err: err})
			return
		}
		s.post(event{kind: evCallPlaced, call: c})
	}()
}

func (s *Session) handleCallPlaced(ev event) {
	if s.call != nil {
		// An incoming call won the race; drop the outgoing attempt.
		if err := ev.call.Close(); err != nil {
			s.log.Debug("failed to close superseded outgoing call", "err", err)
		}
		return
	}
	s.attachCall(ev.call)
}

// attachCall adopts a call handle and routes its callbacks into the machine.
func (s *Session) attachCall(c signal.Call) {
	s.call = c
	c.OnStream(func(st media.Stream) {
		s.post(event{kind: evRemoteStream, call: c, stream: st})
	})
	c.OnClose(func() {
		s.post(event{kind: evCallClosed, call: c})
	})
}

func (s *Session) handleIncoming(ev event) {
	if s.call != nil {
		s.log.Info("rejecting incoming call while another is active", "from", ev.incoming.PeerID())
		if err := ev.incoming.Reject(); err != nil {
			s.log.Debug("failed to reject incoming call", "err", err)
		}
		return
	}
	c, err := ev.incoming.Answer(s.localMedia)
	if err != nil {
		s.log.Warn("failed to answer incoming call", "from", ev.incoming.PeerID(), "err", err)
		return
	}
	s.log.Info("answered incoming call", "from", ev.incoming.PeerID())
	s.attachCall(c)
	s.setState(StateAnswering)
}

func (s *Session) handleRemoteStream(ev event) {
	if ev.call != s.call {
		return
	}
	s.gen++ // connecting invalidates pending retry timers
	s.setState(StateConnected)
	s.connected = true
	s.metrics.ActiveCalls.Add(s.ctx, 1)
	s.log.Info("call connected", "remote", ev.call.PeerID())
	s.startTranslation(ev.stream)
}

// startTranslation wires segmenter and translator onto the remote audio
// track. A stream without audio is non-fatal: the call stays up, translation
// never activates.
func (s *Session) startTranslation(remote media.Stream) {
	tracks := remote.AudioTracks()
	if len(tracks) == 0 {
		s.log.Warn("remote stream has no audio track, translation disabled")
		return
	}
	rec, err := s.call.NewRecorder(tracks[0])
	if err != nil {
		s.log.Warn("failed to open recorder on remote track", "err", err)
		return
	}
	s.recorder = rec
	s.unit = s.translator(s.ctx)
	s.seg = segment.New(rec, s.unit.TryProcess,
		segment.WithWindow(s.window),
		segment.WithMinBytes(s.minBytes),
		segment.WithLogger(s.log),
	)
	if err := s.seg.Start(s.ctx); err != nil {
		s.log.Warn("failed to start capture", "err", err)
	}
}

func (s *Session) handleCallClosed(ev event) {
	if ev.call != s.call {
		return
	}
	s.log.Info("call closed", "remote", ev.call.PeerID())
	s.finish(nil)
}

func (s *Session) handleSignalError(ev event) {
	switch {
	case signal.IsPeerUnavailable(ev.err):
		if s.connected {
			return
		}
		s.log.Debug("partner not available yet, scheduling redial", "target", s.dialTarget)
		if s.call != nil {
			if err := s.call.Close(); err != nil {
				s.log.Debug("failed to close stale call handle", "err", err)
			}
			s.call = nil
		}
		s.scheduleTick(evRetryTick, s.retryInterval)
	case signal.IsIDTaken(ev.err):
		s.restartAfterCollision()
	default:
		s.finish(fmt.Errorf("call: signaling: %w", ev.err))
	}
}

func (s *Session) handleRetryTick(ev event) {
	if ev.gen != s.gen || s.call != nil || s.dialTarget == "" {
		return
	}
	s.dial(s.dialTarget)
}

// restartAfterCollision tears everything down and starts over with a fresh
// identity once the server has had time to release the old one.
func (s *Session) restartAfterCollision() {
	s.log.Warn("signaling identifier already taken, restarting session", "delay", s.restartDelay)
	s.teardown()
	s.setState(StateIdle)
	s.scheduleTick(evRestartTick, s.restartDelay)
}

func (s *Session) handleRestartTick(ev event) {
	if ev.gen != s.gen {
		return
	}
	s.handleStart(ev)
}

func (s *Session) handleHangup(event) {
	s.finish(nil)
}

// scheduleTick posts a tick event after d, stamped with the current timer
// generation so a tick from a superseded schedule is ignored.
func (s *Session) scheduleTick(kind eventKind, d time.Duration) {
	gen := s.gen
	time.AfterFunc(d, func() {
		s.post(event{kind: kind, gen: gen})
	})
}

// finish tears the session down and stops the dispatch loop. reason nil is a
// normal end.
func (s *Session) finish(reason error) {
	s.setState(StateEnded)
	s.teardown()
	s.stateMu.Lock()
	s.endReason = reason
	s.stateMu.Unlock()
	if reason != nil {
		s.log.Error("session ended with error", "err", reason)
	}
	s.observer.SessionEnded(reason)
	s.setState(StateIdle)
	s.stopped = true
}

// teardown releases owned resources in reverse acquisition order and
// invalidates pending timers.
func (s *Session) teardown() {
	s.gen++
	if s.seg != nil {
		s.seg.Stop()
		s.seg = nil
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			s.log.Debug("failed to close recorder", "err", err)
		}
		s.recorder = nil
	}
	if s.unit != nil {
		s.unit.Close()
		s.unit = nil
	}
	if s.call != nil {
		if err := s.call.Close(); err != nil {
			s.log.Debug("failed to close call", "err", err)
		}
		s.call = nil
	}
	if s.peer != nil {
		if err := s.peer.Destroy(); err != nil {
			s.log.Debug("failed to destroy signaling identity", "err", err)
		}
		s.peer = nil
	}
	if s.localMedia != nil {
		s.localMedia.Close()
		s.localMedia = nil
	}
	if s.connected {
		s.metrics.ActiveCalls.Add(context.Background(), -1)
		s.connected = false
	}
	s.dialTarget = ""
}
