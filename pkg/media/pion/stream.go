package pion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	pionmedia "github.com/pion/webrtc/v3/pkg/media"

	"github.com/babelcall/babelcall/pkg/media"
)

// remoteStream collects the remote party's tracks as they arrive. Track
// queries reflect the live state, so a video track negotiated after the
// announcement still shows up.
type remoteStream struct {
	mu    sync.Mutex
	audio []media.Track
	video []media.Track
}

var _ media.Stream = (*remoteStream)(nil)

func (s *remoteStream) add(t *remoteTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Kind() == media.TrackAudio {
		s.audio = append(s.audio, t)
		return
	}
	s.video = append(s.video, t)
}

func (s *remoteStream) AudioTracks() []media.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]media.Track, len(s.audio))
	copy(out, s.audio)
	return out
}

func (s *remoteStream) VideoTracks() []media.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]media.Track, len(s.video))
	copy(out, s.video)
	return out
}

func (s *remoteStream) Close() {
	for _, t := range append(s.AudioTracks(), s.VideoTracks()...) {
		t.Stop()
	}
}

// remoteTrack adapts a [webrtc.TrackRemote] to [media.Track].
type remoteTrack struct {
	remote *webrtc.TrackRemote

	stopOnce sync.Once
	done     chan struct{}
}

var _ media.Track = (*remoteTrack)(nil)

func newRemoteTrack(t *webrtc.TrackRemote) *remoteTrack {
	return &remoteTrack{remote: t, done: make(chan struct{})}
}

func (t *remoteTrack) ID() string { return t.remote.ID() }

func (t *remoteTrack) Kind() media.TrackKind {
	if t.remote.Kind() == webrtc.RTPCodecTypeVideo {
		return media.TrackVideo
	}
	return media.TrackAudio
}

// Stop marks the track stopped; recorders over it wind down. The RTP stream
// itself dies with the peer connection.
func (t *remoteTrack) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
}

// LocalTrack is a sample-fed local track. The application's capture side
// pushes encoded frames through [LocalTrack.WriteSample]; the peer connection
// packetizes and sends them.
type LocalTrack struct {
	track *webrtc.TrackLocalStaticSample
	kind  media.TrackKind

	mu      sync.Mutex
	stopped bool
}

var _ media.Track = (*LocalTrack)(nil)

// rtpTrack is implemented by local tracks that carry a pion track, which is
// what [Transport.AttachLocal] feeds to the peer connection.
type rtpTrack interface {
	media.Track
	pionTrack() webrtc.TrackLocal
}

func (t *LocalTrack) pionTrack() webrtc.TrackLocal { return t.track }

func (t *LocalTrack) ID() string { return t.track.ID() }

func (t *LocalTrack) Kind() media.TrackKind { return t.kind }

func (t *LocalTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// WriteSample sends one encoded frame lasting d. Writes after Stop are
// dropped silently.
func (t *LocalTrack) WriteSample(data []byte, d time.Duration) error {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		return nil
	}
	if err := t.track.WriteSample(pionmedia.Sample{Data: data, Duration: d}); err != nil {
		return fmt.Errorf("pion: write sample: %w", err)
	}
	return nil
}

// localStream is the [media.Stream] returned by [Devices.AcquireMedia].
type localStream struct {
	audio []media.Track
	video []media.Track
}

var _ media.Stream = (*localStream)(nil)

func (s *localStream) AudioTracks() []media.Track { return s.audio }
func (s *localStream) VideoTracks() []media.Track { return s.video }

func (s *localStream) Close() {
	for _, t := range append(s.audio, s.video...) {
		t.Stop()
	}
}

// Devices satisfies [media.Devices] with sample-fed opus and VP8 local
// tracks. It is the integration point for platform capture: the application
// acquires a stream here and feeds its tracks via [LocalTrack.WriteSample].
type Devices struct{}

var _ media.Devices = (*Devices)(nil)

func (Devices) AcquireMedia(_ context.Context, c media.Constraints) (media.Stream, error) {
	s := &localStream{}
	if c.Audio {
		tl, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			"audio", "babelcall",
		)
		if err != nil {
			return nil, fmt.Errorf("pion: create local audio track: %w", err)
		}
		s.audio = append(s.audio, &LocalTrack{track: tl, kind: media.TrackAudio})
	}
	if c.Video {
		tl, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
			"video", "babelcall",
		)
		if err != nil {
			return nil, fmt.Errorf("pion: create local video track: %w", err)
		}
		s.video = append(s.video, &LocalTrack{track: tl, kind: media.TrackVideo})
	}
	return s, nil
}
