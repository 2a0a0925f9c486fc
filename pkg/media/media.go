// Package media defines the interfaces and types for media capture, transport
// and playback within babelcall.
//
// The package models the boundary to the platform's media layer:
//
//   - [Devices] — acquires the local camera/microphone stream.
//   - [Stream] and [Track] — a live media stream and its constituent tracks.
//   - [Recorder] — bounded-window capture of one audio track into encoded bytes.
//   - [PeerTransport] — the peer connection carrying media between two parties.
//   - [Sink] / [EncodedSink] — audio output paths for synthesized speech.
//
// Implementations are provided by backend-specific adapter packages (e.g.
// media/pion for WebRTC). The interfaces are intentionally narrow so the call
// session and pipeline stay decoupled from transport details.
package media

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by [Devices.AcquireMedia] when the platform
// refuses access to the camera or microphone. The call session treats this as
// terminal: the session ends and no retry is attempted.
var ErrPermissionDenied = errors.New("media: permission denied")

// ErrNoAudioTrack is returned when an operation needs an audio track and the
// stream has none. Segmentation never starts in that case; the condition is
// non-fatal for the call itself.
var ErrNoAudioTrack = errors.New("media: stream has no audio track")

// TrackKind distinguishes audio from video tracks.
type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)

// Track is one live media track within a [Stream].
type Track interface {
	// ID uniquely identifies the track within its stream.
	ID() string

	// Kind reports whether the track carries audio or video.
	Kind() TrackKind

	// Stop ends the track and releases the underlying capture or transport
	// resource. Stopping a stopped track is a no-op.
	Stop()
}

// Stream is a live collection of media tracks, local or remote.
type Stream interface {
	// AudioTracks returns the stream's audio tracks. May be empty.
	AudioTracks() []Track

	// VideoTracks returns the stream's video tracks. May be empty.
	VideoTracks() []Track

	// Close stops every track in the stream. Closing twice is a no-op.
	Close()
}

// Constraints selects which device kinds [Devices.AcquireMedia] should open.
type Constraints struct {
	Audio bool
	Video bool
}

// Devices is the entry point to local capture hardware. It is the boundary to
// platform camera/microphone acquisition; babelcall only consumes the
// resulting [Stream].
type Devices interface {
	// AcquireMedia opens the requested devices and returns a live local stream.
	// Returns [ErrPermissionDenied] when access is refused.
	AcquireMedia(ctx context.Context, c Constraints) (Stream, error)
}

// AudioChunk is one bounded-duration captured audio segment: opaque encoded
// bytes plus their container MIME type. Chunks are ephemeral — they live only
// until the pipeline consumes them, and ownership transfers on hand-off.
type AudioChunk struct {
	Data     []byte
	MIMEType string
}

// Recorder captures a single audio track in bounded windows.
//
// The contract mirrors platform media recorders: Start opens a recording
// window, Stop closes it and returns the bytes captured since Start. The
// recorder must support an immediate Start after Stop so the caller can keep
// capture gapless while the previous window's data is still being consumed.
type Recorder interface {
	// Start opens a new recording window. Calling Start while a window is
	// already open returns an error.
	Start() error

	// Stop closes the current window and returns the bytes captured since the
	// matching Start. Returns an error if no window is open.
	Stop() ([]byte, error)

	// MIMEType reports the container type of the recorded data
	// (e.g. "audio/ogg;codecs=opus").
	MIMEType() string

	// Close releases the recorder. After Close, Start returns an error.
	Close() error
}

// RecorderFactory builds a [Recorder] over an audio track. The call session
// injects this so the segmenter never touches transport specifics.
type RecorderFactory func(track Track) (Recorder, error)

// Sink plays raw PCM audio to the local output device. It is the low-latency
// playback path used after decoding a synthesized clip.
type Sink interface {
	// Write queues a PCM fragment for playback. Sample format is fixed at
	// construction of the concrete sink. May block when the device buffer is full.
	Write(ctx context.Context, pcm []byte) error

	// Flush blocks until all queued audio has been played.
	Flush(ctx context.Context) error

	// Close stops playback and releases the device.
	Close() error
}

// EncodedSink plays an encoded audio clip without the caller decoding it —
// the generic fallback path for platforms whose output layer accepts
// container formats directly.
type EncodedSink interface {
	// Play renders the clip and blocks until playback ends or ctx is cancelled.
	Play(ctx context.Context, data []byte, mimeType string) error
}
