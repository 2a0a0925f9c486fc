// Package mock provides in-memory implementations of the media interfaces
// for use in unit tests: [media.Devices], [media.Stream], [media.Track],
// [media.Recorder], [media.Sink], [media.EncodedSink] and
// [media.PeerTransport].
//
// All mocks are safe for concurrent use. They record method calls so tests
// can assert on ordering and arguments, and expose exported fields the test
// sets to control return values.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/babelcall/babelcall/pkg/media"
)

// ─── Track / Stream ───────────────────────────────────────────────────────────

// Track is a mock [media.Track].
type Track struct {
	mu sync.Mutex

	// TrackID is returned by ID. Defaults to "mock-track".
	TrackID string

	// TrackKind is returned by Kind. Defaults to [media.TrackAudio].
	TrackKind media.TrackKind

	// CallCountStop records how many times Stop was called.
	CallCountStop int
}

func (t *Track) ID() string {
	if t.TrackID == "" {
		return "mock-track"
	}
	return t.TrackID
}

func (t *Track) Kind() media.TrackKind {
	if t.TrackKind == "" {
		return media.TrackAudio
	}
	return t.TrackKind
}

func (t *Track) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CallCountStop++
}

// Stopped reports whether Stop has been called at least once.
func (t *Track) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.CallCountStop > 0
}

// Stream is a mock [media.Stream] built from explicit track lists.
type Stream struct {
	mu sync.Mutex

	// Audio and Video are the tracks returned by AudioTracks and VideoTracks.
	Audio []media.Track
	Video []media.Track

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// NewStream returns a stream with one mock audio track and one mock video
// track, the common case in tests.
func NewStream() *Stream {
	return &Stream{
		Audio: []media.Track{&Track{TrackID: "audio-0", TrackKind: media.TrackAudio}},
		Video: []media.Track{&Track{TrackID: "video-0", TrackKind: media.TrackVideo}},
	}
}

func (s *Stream) AudioTracks() []media.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Audio
}

func (s *Stream) VideoTracks() []media.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Video
}

func (s *Stream) Close() {
	s.mu.Lock()
	tracks := make([]media.Track, 0, len(s.Audio)+len(s.Video))
	tracks = append(tracks, s.Audio...)
	tracks = append(tracks, s.Video...)
	s.CallCountClose++
	s.mu.Unlock()
	for _, t := range tracks {
		t.Stop()
	}
}

// Closed reports whether Close has been called at least once.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountClose > 0
}

// ─── Devices ──────────────────────────────────────────────────────────────────

// Devices is a mock [media.Devices].
type Devices struct {
	mu sync.Mutex

	// AcquireResult is returned by AcquireMedia when AcquireErr is nil.
	// Defaults to [NewStream] if left nil.
	AcquireResult media.Stream

	// AcquireErr, if non-nil, is returned by AcquireMedia.
	AcquireErr error

	// CallCountAcquire records how many times AcquireMedia was called.
	CallCountAcquire int

	// RecordedConstraints holds the constraints passed to each call.
	RecordedConstraints []media.Constraints
}

func (d *Devices) AcquireMedia(_ context.Context, c media.Constraints) (media.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountAcquire++
	d.RecordedConstraints = append(d.RecordedConstraints, c)
	if d.AcquireErr != nil {
		return nil, d.AcquireErr
	}
	if d.AcquireResult == nil {
		d.AcquireResult = NewStream()
	}
	return d.AcquireResult, nil
}

// ─── Recorder ─────────────────────────────────────────────────────────────────

// RecorderEvent is one entry in a [Recorder]'s event log.
type RecorderEvent string

const (
	EventStart RecorderEvent = "start"
	EventStop  RecorderEvent = "stop"
)

// Recorder is a mock [media.Recorder]. Each Stop pops the next fragment from
// Fragments (an empty slice once exhausted) and every Start/Stop is appended
// to Events so tests can assert that capture never pauses.
type Recorder struct {
	mu sync.Mutex

	// Fragments is the queue of byte fragments returned by successive Stops.
	Fragments [][]byte

	// MIME is returned by MIMEType. Defaults to "audio/ogg;codecs=opus".
	MIME string

	// StartErr, if non-nil, is returned by Start.
	StartErr error

	// Events is the ordered log of Start/Stop calls.
	Events []RecorderEvent

	recording bool
	closed    bool
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("mock recorder: closed")
	}
	if r.StartErr != nil {
		return r.StartErr
	}
	if r.recording {
		return errors.New("mock recorder: already recording")
	}
	r.recording = true
	r.Events = append(r.Events, EventStart)
	return nil
}

func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil, errors.New("mock recorder: not recording")
	}
	r.recording = false
	r.Events = append(r.Events, EventStop)
	if len(r.Fragments) == 0 {
		return nil, nil
	}
	frag := r.Fragments[0]
	r.Fragments = r.Fragments[1:]
	return frag, nil
}

func (r *Recorder) MIMEType() string {
	if r.MIME == "" {
		return "audio/ogg;codecs=opus"
	}
	return r.MIME
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.recording = false
	return nil
}

// EventLog returns a copy of the Start/Stop log.
func (r *Recorder) EventLog() []RecorderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecorderEvent, len(r.Events))
	copy(out, r.Events)
	return out
}

// ─── Sinks ────────────────────────────────────────────────────────────────────

// Sink is a mock [media.Sink] that collects written PCM.
type Sink struct {
	mu sync.Mutex

	// WriteErr, if non-nil, is returned by Write.
	WriteErr error

	// FlushErr, if non-nil, is returned by Flush.
	FlushErr error

	// Written accumulates all PCM bytes passed to Write.
	Written []byte

	// CallCountFlush records how many times Flush was called.
	CallCountFlush int
}

func (s *Sink) Write(_ context.Context, pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.Written = append(s.Written, pcm...)
	return nil
}

func (s *Sink) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountFlush++
	return s.FlushErr
}

func (s *Sink) Close() error { return nil }

// EncodedSink is a mock [media.EncodedSink] that records every clip played.
type EncodedSink struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned by Play.
	PlayErr error

	// Played records the (data, mime) pairs passed to Play.
	Played []media.AudioChunk
}

func (s *EncodedSink) Play(_ context.Context, data []byte, mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Played = append(s.Played, media.AudioChunk{Data: data, MIMEType: mimeType})
	return s.PlayErr
}

// PlayCount returns how many clips were played.
func (s *EncodedSink) PlayCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Played)
}

// ─── PeerTransport ────────────────────────────────────────────────────────────

// Transport is a mock [media.PeerTransport].
type Transport struct {
	mu sync.Mutex

	// OfferSDP and AnswerSDP are returned by CreateOffer and CreateAnswer.
	OfferSDP  string
	AnswerSDP string

	// NewRecorderResult is returned by NewRecorder. Defaults to a fresh
	// [Recorder] if left nil.
	NewRecorderResult media.Recorder

	// AttachedLocal holds the streams passed to AttachLocal.
	AttachedLocal []media.Stream

	// RemoteCandidates holds candidates passed to AddICECandidate.
	RemoteCandidates []string

	// CallCountClose records how many times Close was called.
	CallCountClose int

	onRemote func(media.Stream)
	onICE    func(string)
}

func (t *Transport) AttachLocal(s media.Stream) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.AttachedLocal = append(t.AttachedLocal, s)
	return nil
}

func (t *Transport) CreateOffer(_ context.Context) (string, error) {
	if t.OfferSDP == "" {
		return "v=0 mock-offer", nil
	}
	return t.OfferSDP, nil
}

func (t *Transport) CreateAnswer(_ context.Context, _ string) (string, error) {
	if t.AnswerSDP == "" {
		return "v=0 mock-answer", nil
	}
	return t.AnswerSDP, nil
}

func (t *Transport) AcceptAnswer(_ context.Context, _ string) error { return nil }

func (t *Transport) AddICECandidate(candidate string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.RemoteCandidates = append(t.RemoteCandidates, candidate)
	return nil
}

func (t *Transport) OnICECandidate(cb func(string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onICE = cb
}

func (t *Transport) OnRemoteStream(cb func(media.Stream)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRemote = cb
}

func (t *Transport) NewRecorder(_ media.Track) (media.Recorder, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.NewRecorderResult != nil {
		return t.NewRecorderResult, nil
	}
	return &Recorder{}, nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CallCountClose++
	return nil
}

// EmitRemoteStream invokes the registered remote-stream callback, simulating
// remote track arrival.
func (t *Transport) EmitRemoteStream(s media.Stream) {
	t.mu.Lock()
	cb := t.onRemote
	t.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// EmitICECandidate invokes the registered local-candidate callback.
func (t *Transport) EmitICECandidate(candidate string) {
	t.mu.Lock()
	cb := t.onICE
	t.mu.Unlock()
	if cb != nil {
		cb(candidate)
	}
}

// Compile-time interface checks.
var (
	_ media.Track         = (*Track)(nil)
	_ media.Stream        = (*Stream)(nil)
	_ media.Devices       = (*Devices)(nil)
	_ media.Recorder      = (*Recorder)(nil)
	_ media.Sink          = (*Sink)(nil)
	_ media.EncodedSink   = (*EncodedSink)(nil)
	_ media.PeerTransport = (*Transport)(nil)
)
