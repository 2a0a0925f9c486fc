// Package pion backs the media abstractions with pion/webrtc: a
// [media.PeerTransport] over a real peer connection, local sample tracks the
// application feeds with encoded audio and video, and an ogg/opus recorder
// over remote audio tracks.
package pion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pion/webrtc/v3"

	"github.com/babelcall/babelcall/pkg/media"
)

// DefaultSTUNServer is used when no ICE servers are configured.
const DefaultSTUNServer = "stun:stun.l.google.com:19302"

type config struct {
	stunServers []string
	log         *slog.Logger
}

// Option configures transports created by [NewTransport] or [Factory].
type Option func(*config)

// WithSTUNServers sets the STUN server URLs for ICE gathering. An empty list
// restricts gathering to host candidates.
func WithSTUNServers(urls []string) Option {
	return func(c *config) { c.stunServers = urls }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.log = l }
}

// Factory returns a [media.TransportFactory] producing one fresh transport
// per call attempt.
func Factory(opts ...Option) media.TransportFactory {
	return func() (media.PeerTransport, error) {
		return NewTransport(opts...)
	}
}

// Transport is a [media.PeerTransport] over a pion peer connection.
type Transport struct {
	pc  *webrtc.PeerConnection
	log *slog.Logger

	mu         sync.Mutex
	onICE      func(string)
	onRemote   func(media.Stream)
	remote     *remoteStream
	announced  bool
	localAudio bool
	localVideo bool
	closed     bool
}

var _ media.PeerTransport = (*Transport)(nil)

// NewTransport builds a peer connection with the default codecs registered.
func NewTransport(opts ...Option) (*Transport, error) {
	cfg := config{
		stunServers: []string{DefaultSTUNServer},
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	engine := &webrtc.MediaEngine{}
	if err := engine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("pion: register codecs: %w", err)
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(engine))
	var pcConfig webrtc.Configuration
	if len(cfg.stunServers) > 0 {
		pcConfig.ICEServers = []webrtc.ICEServer{{URLs: cfg.stunServers}}
	}
	pc, err := api.NewPeerConnection(pcConfig)
	if err != nil {
		return nil, fmt.Errorf("pion: create peer connection: %w", err)
	}

	t := &Transport{pc: pc, log: cfg.log}
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return // gathering finished
		}
		t.mu.Lock()
		cb := t.onICE
		t.mu.Unlock()
		if cb != nil {
			cb(c.ToJSON().Candidate)
		}
	})
	pc.OnTrack(t.handleTrack)
	return t, nil
}

// AttachLocal adds every pion-backed track of s to the peer connection.
// Tracks from other implementations are skipped with a log line so tests can
// pass plain mocks through.
func (t *Transport) AttachLocal(s media.Stream) error {
	tracks := append(s.AudioTracks(), s.VideoTracks()...)
	for _, tr := range tracks {
		lt, ok := tr.(rtpTrack)
		if !ok {
			t.log.Debug("skipping local track without an rtp backing", "track_id", tr.ID())
			continue
		}
		if _, err := t.pc.AddTrack(lt.pionTrack()); err != nil {
			return fmt.Errorf("pion: add local track %s: %w", tr.ID(), err)
		}
		t.mu.Lock()
		switch tr.Kind() {
		case media.TrackAudio:
			t.localAudio = true
		case media.TrackVideo:
			t.localVideo = true
		}
		t.mu.Unlock()
	}
	return nil
}

// CreateOffer produces the local description with ICE candidates gathered,
// so the single SDP blob is enough even without trickle.
func (t *Transport) CreateOffer(ctx context.Context) (string, error) {
	if err := t.ensureReceivers(); err != nil {
		return "", err
	}
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("pion: create offer: %w", err)
	}
	return t.settleLocalDescription(ctx, offer)
}

// CreateAnswer applies the remote offer and produces the local answer.
func (t *Transport) CreateAnswer(ctx context.Context, remoteOffer string) (string, error) {
	desc := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: remoteOffer}
	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return "", fmt.Errorf("pion: apply remote offer: %w", err)
	}
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("pion: create answer: %w", err)
	}
	return t.settleLocalDescription(ctx, answer)
}

// AcceptAnswer applies the remote answer to an offer placed earlier.
func (t *Transport) AcceptAnswer(_ context.Context, remoteAnswer string) error {
	desc := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: remoteAnswer}
	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("pion: apply remote answer: %w", err)
	}
	return nil
}

func (t *Transport) AddICECandidate(candidate string) error {
	err := t.pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: candidate})
	if err != nil {
		return fmt.Errorf("pion: add ice candidate: %w", err)
	}
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

// NewRecorder opens an ogg/opus recorder over a remote audio track owned by
// this transport.
func (t *Transport) NewRecorder(track media.Track) (media.Recorder, error) {
	rt, ok := track.(*remoteTrack)
	if !ok {
		return nil, fmt.Errorf("pion: track %s is not a remote track of this transport", track.ID())
	}
	if rt.Kind() != media.TrackAudio {
		return nil, fmt.Errorf("pion: track %s is not an audio track", track.ID())
	}
	return newTrackRecorder(rt, t.log), nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	remote := t.remote
	t.mu.Unlock()

	if remote != nil {
		remote.Close()
	}
	return t.pc.Close()
}

// ensureReceivers adds receive-only transceivers for kinds the local stream
// does not carry, so the offer still asks the remote side for its media.
func (t *Transport) ensureReceivers() error {
	t.mu.Lock()
	needAudio, needVideo := !t.localAudio, !t.localVideo
	t.mu.Unlock()

	init := webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}
	if needAudio {
		if _, err := t.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, init); err != nil {
			return fmt.Errorf("pion: add audio receiver: %w", err)
		}
	}
	if needVideo {
		if _, err := t.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, init); err != nil {
			return fmt.Errorf("pion: add video receiver: %w", err)
		}
	}
	return nil
}

// settleLocalDescription applies desc and waits for ICE gathering so the
// returned SDP carries the candidates.
func (t *Transport) settleLocalDescription(ctx context.Context, desc webrtc.SessionDescription) (string, error) {
	gathered := webrtc.GatheringCompletePromise(t.pc)
	if err := t.pc.SetLocalDescription(desc); err != nil {
		return "", fmt.Errorf("pion: set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return "", fmt.Errorf("pion: ice gathering: %w", ctx.Err())
	}
	local := t.pc.LocalDescription()
	if local == nil {
		return "", fmt.Errorf("pion: no local description after gathering")
	}
	return local.SDP, nil
}

func (t *Transport) handleTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	rt := newRemoteTrack(track)

	// Track ordering is not guaranteed, so the stream is announced once its
	// audio track is in, or on the first track when the remote offers none.
	ready := track.Kind() == webrtc.RTPCodecTypeAudio || !t.remoteOffersAudio()

	t.mu.Lock()
	if t.remote == nil {
		t.remote = &remoteStream{}
	}
	t.remote.add(rt)
	announce := ready && !t.announced
	if announce {
		t.announced = true
	}
	cb := t.onRemote
	stream := t.remote
	t.mu.Unlock()

	t.log.Debug("remote track arrived", "track_id", track.ID(), "kind", track.Kind().String())
	if announce && cb != nil {
		cb(stream)
	}
}

// remoteOffersAudio reports whether the remote description negotiated an
// audio section.
func (t *Transport) remoteOffersAudio() bool {
	desc := t.pc.RemoteDescription()
	return desc != nil && strings.Contains(desc.SDP, "m=audio")
}
