// Package signal defines the interfaces and error taxonomy for the
// peer-to-peer signaling layer.
//
// A [Peer] is one open signaling identity: it can place calls to other
// identities, receives incoming calls, and reports peer-level errors. A
// [Call] is one media call in either direction. Implementations wrap a
// concrete signaling protocol (signal/peerjs speaks the PeerJS wire
// protocol); the call session consumes only these interfaces.
//
// Errors carry a classification the session state machine branches on:
// a peer that is not reachable yet is retried, a taken identifier forces a
// full session restart, everything else is terminal for the session.
package signal

import (
	"context"
	"errors"
	"fmt"

	"github.com/babelcall/babelcall/pkg/media"
)

// ErrorType classifies peer-level signaling failures.
type ErrorType string

const (
	// ErrorPeerUnavailable means the dialed identity does not (yet) exist.
	// Recoverable: the session retries on a fixed interval while waiting.
	ErrorPeerUnavailable ErrorType = "peer-unavailable"

	// ErrorIDTaken means the requested identity is already in use, typically
	// after a fast reconnect. Recoverable by restarting the whole session with
	// a fresh identity.
	ErrorIDTaken ErrorType = "unavailable-id"

	// ErrorNetwork covers transport-level failures (socket closed, dial failed).
	ErrorNetwork ErrorType = "network"

	// ErrorServer covers everything else the signaling server reports.
	// Terminal: reported verbatim, no retry.
	ErrorServer ErrorType = "server-error"
)

// Error is a classified signaling failure.
type Error struct {
	Type    ErrorType
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("signal: %s", e.Type)
	}
	return fmt.Sprintf("signal: %s: %s", e.Type, e.Message)
}

// IsPeerUnavailable reports whether err is a recoverable peer-unavailable
// signaling error.
func IsPeerUnavailable(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == ErrorPeerUnavailable
}

// IsIDTaken reports whether err is an identifier-collision signaling error.
func IsIDTaken(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == ErrorIDTaken
}

// Call is one media call, outgoing or answered. Callbacks may each be
// registered once; subsequent registrations replace the previous one and
// callbacks run on the implementation's internal goroutine.
type Call interface {
	// PeerID is the remote party's signaling identifier.
	PeerID() string

	// OnStream registers cb for the arrival of the remote media stream.
	OnStream(cb func(media.Stream))

	// OnClose registers cb for remote or local call termination. It fires at
	// most once.
	OnClose(cb func())

	// NewRecorder opens a bounded-window recorder over a remote audio track
	// delivered by this call.
	NewRecorder(track media.Track) (media.Recorder, error)

	// Close hangs up and releases the call's transport. Safe to call more
	// than once.
	Close() error
}

// IncomingCall is a not-yet-answered call from a remote peer.
type IncomingCall interface {
	// PeerID is the caller's signaling identifier.
	PeerID() string

	// Answer accepts the call with the local media stream and returns the
	// live [Call].
	Answer(local media.Stream) (Call, error)

	// Reject declines and closes the call immediately.
	Reject() error
}

// Peer is one open signaling identity.
//
// Implementations must be safe for concurrent use.
type Peer interface {
	// ID returns the identity the signaling server confirmed.
	ID() string

	// Call places an outgoing call to remoteID, offering the local stream.
	// The returned [Call] is live immediately; failures that the server
	// reports asynchronously (such as the remote identity not existing)
	// arrive via the [Peer.OnError] callback, mirroring the wire protocol.
	Call(ctx context.Context, remoteID string, local media.Stream) (Call, error)

	// OnCall registers cb for incoming calls. Only one callback may be
	// registered; subsequent calls replace it.
	OnCall(cb func(IncomingCall))

	// OnError registers cb for peer-level errors (classified via [Error]).
	// Only one callback may be registered; subsequent calls replace it.
	OnError(cb func(*Error))

	// Destroy closes the identity and every call owned by it. The identifier
	// becomes free for reuse after the server notices the disconnect. Safe to
	// call more than once.
	Destroy() error
}

// Opener opens signaling identities. requestedID selects the identity to
// claim; an empty string lets the server assign a random one (manual mode).
// Open blocks until the server confirms the identity or rejects it.
type Opener interface {
	Open(ctx context.Context, requestedID string) (Peer, error)
}
