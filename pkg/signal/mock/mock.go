// Package mock provides in-memory implementations of the signaling
// interfaces for use in unit tests: [signal.Opener], [signal.Peer],
// [signal.Call] and [signal.IncomingCall].
//
// All mocks are safe for concurrent use. They record method calls so tests
// can assert on ordering and arguments, expose exported fields the test sets
// to control return values, and offer Emit helpers that drive the registered
// callbacks the way a real signaling server would.
package mock

import (
	"context"
	"sync"

	"github.com/babelcall/babelcall/pkg/media"
	mediamock "github.com/babelcall/babelcall/pkg/media/mock"
	"github.com/babelcall/babelcall/pkg/signal"
)

// ─── Opener ───────────────────────────────────────────────────────────────────

// Opener is a mock [signal.Opener].
type Opener struct {
	mu sync.Mutex

	// Result is returned by Open when Err is nil. Defaults to a fresh [Peer]
	// if left nil.
	Result signal.Peer

	// Err, if non-nil, is returned by Open.
	Err error

	// RecordedIDs holds the requested identifiers passed to each Open call.
	RecordedIDs []string
}

func (o *Opener) Open(_ context.Context, requestedID string) (signal.Peer, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.RecordedIDs = append(o.RecordedIDs, requestedID)
	if o.Err != nil {
		return nil, o.Err
	}
	if o.Result == nil {
		o.Result = &Peer{PeerID: requestedID}
	}
	return o.Result, nil
}

// CallCount returns how many identities were opened.
func (o *Opener) CallCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.RecordedIDs)
}

// ─── Peer ─────────────────────────────────────────────────────────────────────

// Peer is a mock [signal.Peer]. Each Call pops the next handle from Calls (a
// fresh [Call] once exhausted) so tests can pre-seed distinct handles for
// successive dial attempts.
type Peer struct {
	mu sync.Mutex

	// PeerID is returned by ID. Defaults to "mock-peer".
	PeerID string

	// Calls is the queue of call handles returned by successive Call
	// invocations.
	Calls []*Call

	// CallErr, if non-nil, is returned by Call.
	CallErr error

	// CallGate, when non-nil, blocks every Call until the channel is closed
	// so tests can control when a dial resolves.
	CallGate chan struct{}

	// RecordedDials holds the remote identifiers passed to each Call.
	RecordedDials []string

	// CallCountDestroy records how many times Destroy was called.
	CallCountDestroy int

	onCall  func(signal.IncomingCall)
	onError func(*signal.Error)
}

func (p *Peer) ID() string {
	if p.PeerID == "" {
		return "mock-peer"
	}
	return p.PeerID
}

func (p *Peer) Call(_ context.Context, remoteID string, _ media.Stream) (signal.Call, error) {
	p.mu.Lock()
	p.RecordedDials = append(p.RecordedDials, remoteID)
	gate := p.CallGate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CallErr != nil {
		return nil, p.CallErr
	}
	if len(p.Calls) == 0 {
		return &Call{RemoteID: remoteID}, nil
	}
	c := p.Calls[0]
	p.Calls = p.Calls[1:]
	if c.RemoteID == "" {
		c.RemoteID = remoteID
	}
	return c, nil
}

func (p *Peer) OnCall(cb func(signal.IncomingCall)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCall = cb
}

func (p *Peer) OnError(cb func(*signal.Error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = cb
}

func (p *Peer) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountDestroy++
	return nil
}

// DialCount returns how many outgoing calls were placed.
func (p *Peer) DialCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.RecordedDials)
}

// Destroyed reports whether Destroy has been called at least once.
func (p *Peer) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CallCountDestroy > 0
}

// EmitIncoming invokes the registered incoming-call callback.
func (p *Peer) EmitIncoming(ic signal.IncomingCall) {
	p.mu.Lock()
	cb := p.onCall
	p.mu.Unlock()
	if cb != nil {
		cb(ic)
	}
}

// EmitError invokes the registered error callback.
func (p *Peer) EmitError(se *signal.Error) {
	p.mu.Lock()
	cb := p.onError
	p.mu.Unlock()
	if cb != nil {
		cb(se)
	}
}

// ─── Call ─────────────────────────────────────────────────────────────────────

// Call is a mock [signal.Call].
type Call struct {
	mu sync.Mutex

	// RemoteID is returned by PeerID. Defaults to "mock-remote".
	RemoteID string

	// Recorder is returned by NewRecorder when RecorderErr is nil. Defaults
	// to a fresh [mediamock.Recorder] if left nil.
	Recorder media.Recorder

	// RecorderErr, if non-nil, is returned by NewRecorder.
	RecorderErr error

	// RecordedTracks holds the tracks passed to NewRecorder.
	RecordedTracks []media.Track

	// CallCountClose records how many times Close was called.
	CallCountClose int

	onStream func(media.Stream)
	onClose  func()
}

func (c *Call) PeerID() string {
	if c.RemoteID == "" {
		return "mock-remote"
	}
	return c.RemoteID
}

func (c *Call) OnStream(cb func(media.Stream)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStream = cb
}

func (c *Call) OnClose(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = cb
}

func (c *Call) NewRecorder(track media.Track) (media.Recorder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RecordedTracks = append(c.RecordedTracks, track)
	if c.RecorderErr != nil {
		return nil, c.RecorderErr
	}
	if c.Recorder == nil {
		c.Recorder = &mediamock.Recorder{}
	}
	return c.Recorder, nil
}

func (c *Call) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountClose++
	return nil
}

// Closed reports whether Close has been called at least once.
func (c *Call) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCountClose > 0
}

// EmitStream invokes the registered remote-stream callback, simulating remote
// track arrival.
func (c *Call) EmitStream(s media.Stream) {
	c.mu.Lock()
	cb := c.onStream
	c.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// EmitClose invokes the registered close callback, simulating the remote
// party hanging up.
func (c *Call) EmitClose() {
	c.mu.Lock()
	cb := c.onClose
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// ─── IncomingCall ─────────────────────────────────────────────────────────────

// IncomingCall is a mock [signal.IncomingCall].
type IncomingCall struct {
	mu sync.Mutex

	// RemoteID is returned by PeerID. Defaults to "mock-caller".
	RemoteID string

	// AnswerResult is returned by Answer when AnswerErr is nil. Defaults to a
	// fresh [Call] if left nil.
	AnswerResult signal.Call

	// AnswerErr, if non-nil, is returned by Answer.
	AnswerErr error

	// AnsweredWith holds the local streams passed to Answer.
	AnsweredWith []media.Stream

	// CallCountReject records how many times Reject was called.
	CallCountReject int
}

func (ic *IncomingCall) PeerID() string {
	if ic.RemoteID == "" {
		return "mock-caller"
	}
	return ic.RemoteID
}

func (ic *IncomingCall) Answer(local media.Stream) (signal.Call, error) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.AnsweredWith = append(ic.AnsweredWith, local)
	if ic.AnswerErr != nil {
		return nil, ic.AnswerErr
	}
	if ic.AnswerResult == nil {
		ic.AnswerResult = &Call{RemoteID: ic.PeerID()}
	}
	return ic.AnswerResult, nil
}

func (ic *IncomingCall) Reject() error {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.CallCountReject++
	return nil
}

// Rejected reports whether Reject has been called at least once.
func (ic *IncomingCall) Rejected() bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.CallCountReject > 0
}

// Compile-time interface checks.
var (
	_ signal.Opener       = (*Opener)(nil)
	_ signal.Peer         = (*Peer)(nil)
	_ signal.Call         = (*Call)(nil)
	_ signal.IncomingCall = (*IncomingCall)(nil)
)
