package media

import "context"

// PeerTransport abstracts the peer connection that carries media between the
// two call parties. The signaling layer exchanges the opaque SDP and ICE
// strings; the transport owns the media plane.
//
// This decouples signaling from the WebRTC dependency and allows testing
// without a real peer connection; media/pion provides the production
// implementation and media/mock the test double.
type PeerTransport interface {
	// AttachLocal adds the local stream's tracks so the remote party receives
	// them. Must be called before CreateOffer or CreateAnswer.
	AttachLocal(s Stream) error

	// CreateOffer produces the local SDP offer for an outgoing call.
	CreateOffer(ctx context.Context) (sdp string, err error)

	// CreateAnswer consumes the remote offer and produces the local SDP answer
	// for an incoming call.
	CreateAnswer(ctx context.Context, remoteOffer string) (sdp string, err error)

	// AcceptAnswer applies the remote party's SDP answer to an outgoing call.
	AcceptAnswer(ctx context.Context, remoteAnswer string) error

	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(candidate string) error

	// OnICECandidate registers cb for locally gathered ICE candidates. Only one
	// callback may be registered; subsequent calls replace it.
	OnICECandidate(cb func(candidate string))

	// OnRemoteStream registers cb to receive the remote media stream once its
	// tracks arrive. Only one callback may be registered; subsequent calls
	// replace it. The callback runs on an internal goroutine.
	OnRemoteStream(cb func(Stream))

	// NewRecorder opens a bounded-window recorder over a remote audio track
	// owned by this transport.
	NewRecorder(track Track) (Recorder, error)

	// Close tears down the peer connection. Safe to call more than once.
	Close() error
}

// TransportFactory creates a fresh [PeerTransport] for one call attempt.
// Each incoming or outgoing call gets its own transport.
type TransportFactory func() (PeerTransport, error)
