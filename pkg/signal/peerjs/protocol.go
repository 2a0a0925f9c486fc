package peerjs

import (
	"encoding/json"
	"strings"

	"github.com/babelcall/babelcall/pkg/signal"
)

// Server and client message types of the PeerJS wire protocol.
const (
	msgOpen      = "OPEN"
	msgError     = "ERROR"
	msgIDTaken   = "ID-TAKEN"
	msgOffer     = "OFFER"
	msgAnswer    = "ANSWER"
	msgCandidate = "CANDIDATE"
	msgLeave     = "LEAVE"
	msgExpire    = "EXPIRE"
	msgHeartbeat = "HEARTBEAT"
)

// message is one frame of the PeerJS signaling protocol. src and dst are
// peer identifiers; the payload shape depends on the message type.
type message struct {
	Type    string  `json:"type"`
	Src     string  `json:"src,omitempty"`
	Dst     string  `json:"dst,omitempty"`
	Payload payload `json:"payload,omitempty"`
}

// payload is the union of all payload shapes used by the message types above.
type payload struct {
	// Msg carries the human-readable text of ERROR / ID-TAKEN frames.
	Msg string `json:"msg,omitempty"`

	// SDP carries the session description of OFFER / ANSWER frames.
	SDP *sessionDescription `json:"sdp,omitempty"`

	// Type distinguishes media calls from data connections. Always "media" here.
	Type string `json:"type,omitempty"`

	// ConnectionID correlates all frames belonging to one call.
	ConnectionID string `json:"connectionId,omitempty"`

	// Candidate carries ICE candidates of CANDIDATE frames.
	Candidate *iceCandidate `json:"candidate,omitempty"`
}

type sessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type iceCandidate struct {
	Candidate string `json:"candidate"`
}

// connectionMedia is the payload.Type value for media calls.
const connectionMedia = "media"

// parseMessage decodes a raw signaling frame. Returns false for frames that
// should be ignored (malformed or missing a type).
func parseMessage(data []byte) (message, bool) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		return message{}, false
	}
	if m.Type == "" {
		return message{}, false
	}
	return m, true
}

// peerUnavailablePrefix is how PeerServer words the ERROR frame for a dialed
// identity that does not exist.
const peerUnavailablePrefix = "Could not connect to peer"

// classifyError maps a server ERROR / ID-TAKEN frame onto the signal error
// taxonomy.
func classifyError(msgType, text string) *signal.Error {
	switch {
	case msgType == msgIDTaken:
		return &signal.Error{Type: signal.ErrorIDTaken, Message: text}
	case strings.HasPrefix(text, peerUnavailablePrefix):
		return &signal.Error{Type: signal.ErrorPeerUnavailable, Message: text}
	default:
		return &signal.Error{Type: signal.ErrorServer, Message: text}
	}
}
