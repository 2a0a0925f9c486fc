package call

// State is one lifecycle phase of a call session.
type State string

const (
	// StateIdle is the rest state before start and after teardown.
	StateIdle State = "idle"

	// StateAcquiringMedia covers camera/microphone acquisition.
	StateAcquiringMedia State = "acquiring-media"

	// StateEstablishingIdentity covers opening the signaling identity.
	StateEstablishingIdentity State = "establishing-identity"

	// StateSharing means the manual-mode identity is open and waiting for the
	// user to share it out-of-band.
	StateSharing State = "sharing"

	// StateWaitingForPartner means the room-mode session is dialing the
	// partner's deterministic identity, retrying while it does not exist yet.
	StateWaitingForPartner State = "waiting-for-partner"

	// StateCalling means an outgoing call has been placed to an explicit
	// remote identifier.
	StateCalling State = "calling"

	// StateAnswering means an incoming call was auto-answered and the remote
	// stream has not arrived yet.
	StateAnswering State = "answering"

	// StateConnected means the remote media stream is live and translation is
	// active.
	StateConnected State = "connected"

	// StateEnded is the transient teardown phase before returning to
	// [StateIdle].
	StateEnded State = "ended"
)

// Active reports whether the session holds resources in state s.
func (s State) Active() bool {
	return s != StateIdle && s != StateEnded
}

func (s State) String() string { return string(s) }
