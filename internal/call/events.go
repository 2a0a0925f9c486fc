package call

import (
	"github.com/babelcall/babelcall/pkg/media"
	"github.com/babelcall/babelcall/pkg/signal"
)

// eventKind names one input to the session state machine. Every external
// stimulus, including timer expiry, enters the machine as an event so all
// state mutation happens on the dispatch goroutine.
type eventKind string

const (
	evStart          eventKind = "start"
	evMediaReady     eventKind = "media-ready"
	evMediaFailed    eventKind = "media-failed"
	evIdentityReady  eventKind = "identity-ready"
	evIdentityFailed eventKind = "identity-failed"
	evCallPlaced     eventKind = "call-placed"
	evIncoming       eventKind = "incoming-call"
	evRemoteStream   eventKind = "remote-stream"
	evCallClosed     eventKind = "call-closed"
	evSignalError    eventKind = "signal-error"
	evRetryTick      eventKind = "retry-tick"
	evRestartTick    eventKind = "restart-tick"
	evHangup         eventKind = "hangup"
)

// event is one stimulus plus its payload. Only the fields the kind needs are
// set; gen carries the timer generation token for tick events.
type event struct {
	kind eventKind
	gen  int

	err      error
	peer     signal.Peer
	call     signal.Call
	incoming signal.IncomingCall
	stream   media.Stream
}

type handler func(*Session, event)

// transitions is the dispatch table: the handler for an event depends on the
// state it arrives in, and pairs absent from the table are ignored. This is
// the only place lifecycle legality is encoded.
var transitions = map[State]map[eventKind]handler{
	StateIdle: {
		evStart:       (*Session).handleStart,
		evRestartTick: (*Session).handleRestartTick,
	},
	StateAcquiringMedia: {
		evMediaReady:  (*Session).handleMediaReady,
		evMediaFailed: (*Session).handleMediaFailed,
		evHangup:      (*Session).handleHangup,
	},
	StateEstablishingIdentity: {
		evIdentityReady:  (*Session).handleIdentityReady,
		evIdentityFailed: (*Session).handleIdentityFailed,
		evHangup:         (*Session).handleHangup,
	},
	StateSharing: {
		evIncoming:    (*Session).handleIncoming,
		evSignalError: (*Session).handleSignalError,
		evHangup:      (*Session).handleHangup,
	},
	StateWaitingForPartner: {
		evCallPlaced:   (*Session).handleCallPlaced,
		evIncoming:     (*Session).handleIncoming,
		evRemoteStream: (*Session).handleRemoteStream,
		evCallClosed:   (*Session).handleCallClosed,
		evSignalError:  (*Session).handleSignalError,
		evRetryTick:    (*Session).handleRetryTick,
		evHangup:       (*Session).handleHangup,
	},
	StateCalling: {
		evCallPlaced:   (*Session).handleCallPlaced,
		evIncoming:     (*Session).handleIncoming,
		evRemoteStream: (*Session).handleRemoteStream,
		evCallClosed:   (*Session).handleCallClosed,
		evSignalError:  (*Session).handleSignalError,
		evRetryTick:    (*Session).handleRetryTick,
		evHangup:       (*Session).handleHangup,
	},
	StateAnswering: {
		evCallPlaced:   (*Session).handleCallPlaced,
		evIncoming:     (*Session).handleIncoming,
		evRemoteStream: (*Session).handleRemoteStream,
		evCallClosed:   (*Session).handleCallClosed,
		evSignalError:  (*Session).handleSignalError,
		evHangup:       (*Session).handleHangup,
	},
	StateConnected: {
		evCallPlaced:  (*Session).handleCallPlaced,
		evIncoming:    (*Session).handleIncoming,
		evCallClosed:  (*Session).handleCallClosed,
		evSignalError: (*Session).handleSignalError,
		evHangup:      (*Session).handleHangup,
	},
}
