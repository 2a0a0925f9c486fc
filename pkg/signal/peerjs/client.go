// Package peerjs implements the signal interfaces over the PeerJS wire
// protocol: JSON frames exchanged with a PeerServer instance over a
// websocket, with SDP and ICE handled by a media.PeerTransport.
package peerjs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/babelcall/babelcall/pkg/media"
	"github.com/babelcall/babelcall/pkg/signal"
)

const (
	// DefaultServerURL is the public PeerJS cloud server.
	DefaultServerURL = "wss://0.peerjs.com"

	// DefaultKey is the API key of the public cloud server.
	DefaultKey = "peerjs"

	defaultHeartbeat = 5 * time.Second
)

// Client opens signaling identities against a PeerServer. It implements
// [signal.Opener]; every opened identity shares the client's configuration
// but owns its own websocket.
type Client struct {
	serverURL string
	key       string
	heartbeat time.Duration
	httpc     *http.Client
	factory   media.TransportFactory
	log       *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithServerURL sets the PeerServer base URL, e.g. "wss://peers.example.com".
func WithServerURL(u string) Option {
	return func(c *Client) { c.serverURL = u }
}

// WithKey sets the PeerServer API key.
func WithKey(k string) Option {
	return func(c *Client) { c.key = k }
}

// WithHeartbeatInterval sets how often the client pings the server to keep
// the identity registered.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Client) { c.heartbeat = d }
}

// WithHTTPClient sets the HTTP client used for identity retrieval and the
// websocket dial.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client that builds a fresh transport per call via
// factory.
func NewClient(factory media.TransportFactory, opts ...Option) *Client {
	c := &Client{
		serverURL: DefaultServerURL,
		key:       DefaultKey,
		heartbeat: defaultHeartbeat,
		httpc:     http.DefaultClient,
		factory:   factory,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open claims requestedID on the server, or a server-assigned identity when
// requestedID is empty. It blocks until the server confirms the identity,
// rejects it, or ctx expires.
func (c *Client) Open(ctx context.Context, requestedID string) (signal.Peer, error) {
	id := requestedID
	if id == "" {
		assigned, err := c.retrieveID(ctx)
		if err != nil {
			return nil, err
		}
		id = assigned
	}

	wsURL := fmt.Sprintf("%s/peerjs?key=%s&id=%s&token=%s", c.serverURL, c.key, id, uuid.NewString())
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPClient: c.httpc})
	if err != nil {
		return nil, &signal.Error{Type: signal.ErrorNetwork, Message: fmt.Sprintf("dial %s: %v", c.serverURL, err)}
	}

	p := &peer{
		id:      id,
		conn:    conn,
		factory: c.factory,
		log:     c.log.With("peer_id", id),
		calls:   make(map[string]*call),
		pending: make(map[string]*incomingCall),
		done:    make(chan struct{}),
	}

	// The first frame settles the identity claim before any goroutines start.
	if err := p.awaitOpen(ctx); err != nil {
		conn.Close(websocket.StatusNormalClosure, "open failed")
		return nil, err
	}

	go p.readLoop()
	go p.heartbeatLoop(c.heartbeat)
	return p, nil
}

// retrieveID asks the server's identity endpoint for a fresh identifier.
func (c *Client) retrieveID(ctx context.Context) (string, error) {
	u := fmt.Sprintf("%s/%s/id?ts=%d", httpBaseURL(c.serverURL), c.key, time.Now().UnixMilli())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("peerjs: build id request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &signal.Error{Type: signal.ErrorNetwork, Message: fmt.Sprintf("retrieve id: %v", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &signal.Error{Type: signal.ErrorServer, Message: fmt.Sprintf("retrieve id: status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", &signal.Error{Type: signal.ErrorNetwork, Message: fmt.Sprintf("retrieve id: %v", err)}
	}
	return string(body), nil
}

// httpBaseURL converts a websocket base URL to its HTTP counterpart.
func httpBaseURL(wsURL string) string {
	switch {
	case len(wsURL) >= 6 && wsURL[:6] == "wss://":
		return "https://" + wsURL[6:]
	case len(wsURL) >= 5 && wsURL[:5] == "ws://":
		return "http://" + wsURL[5:]
	default:
		return wsURL
	}
}

// peer is one registered signaling identity. It implements [signal.Peer].
type peer struct {
	id      string
	conn    *websocket.Conn
	factory media.TransportFactory
	log     *slog.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	calls     map[string]*call         // keyed by connection ID
	pending   map[string]*incomingCall // offers not yet answered or rejected
	onCall    func(signal.IncomingCall)
	onError   func(*signal.Error)
	destroyed bool

	done chan struct{}
}

var _ signal.Peer = (*peer)(nil)

func (p *peer) ID() string { return p.id }

func (p *peer) OnCall(cb func(signal.IncomingCall)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCall = cb
}

func (p *peer) OnError(cb func(*signal.Error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = cb
}

// Call places an outgoing media call. The offer is sent before Call returns;
// the answer, remote stream and any peer-unavailable error arrive
// asynchronously.
func (p *peer) Call(ctx context.Context, remoteID string, local media.Stream) (signal.Call, error) {
	t, err := p.factory()
	if err != nil {
		return nil, fmt.Errorf("peerjs: create transport: %w", err)
	}
	c := &call{
		peer:      p,
		remoteID:  remoteID,
		connID:    "mc_" + uuid.NewString(),
		transport: t,
	}
	if err := p.startCall(ctx, c, local, func() (message, error) {
		offer, err := t.CreateOffer(ctx)
		if err != nil {
			return message{}, fmt.Errorf("peerjs: create offer: %w", err)
		}
		return message{
			Type: msgOffer,
			Dst:  remoteID,
			Payload: payload{
				SDP:          &sessionDescription{Type: "offer", SDP: offer},
				Type:         connectionMedia,
				ConnectionID: c.connID,
			},
		}, nil
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// startCall wires the transport callbacks, registers the call and sends the
// SDP frame produced by describe. Shared between the offer and answer sides.
func (p *peer) startCall(ctx context.Context, c *call, local media.Stream, describe func() (message, error)) error {
	if err := c.transport.AttachLocal(local); err != nil {
		c.transport.Close()
		return fmt.Errorf("peerjs: attach local stream: %w", err)
	}
	c.transport.OnRemoteStream(c.handleStream)
	c.transport.OnICECandidate(func(cand string) {
		msg := message{
			Type: msgCandidate,
			Dst:  c.remoteID,
			Payload: payload{
				Candidate:    &iceCandidate{Candidate: cand},
				ConnectionID: c.connID,
			},
		}
		if err := p.send(context.Background(), msg); err != nil {
			p.log.Debug("failed to send ICE candidate", "error", err)
		}
	})

	msg, err := describe()
	if err != nil {
		c.transport.Close()
		return err
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		c.transport.Close()
		return &signal.Error{Type: signal.ErrorNetwork, Message: "peer destroyed"}
	}
	p.calls[c.connID] = c
	p.mu.Unlock()

	if err := p.send(ctx, msg); err != nil {
		p.dropCall(c.connID)
		c.transport.Close()
		return err
	}
	return nil
}

// Destroy closes every call and the websocket. The server frees the identity
// once it notices the disconnect.
func (p *peer) Destroy() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil
	}
	p.destroyed = true
	calls := make([]*call, 0, len(p.calls))
	for _, c := range p.calls {
		calls = append(calls, c)
	}
	p.mu.Unlock()

	for _, c := range calls {
		c.Close()
	}
	close(p.done)
	return p.conn.Close(websocket.StatusNormalClosure, "peer destroyed")
}

// awaitOpen reads frames until the server confirms or rejects the identity.
func (p *peer) awaitOpen(ctx context.Context) error {
	for {
		_, data, err := p.conn.Read(ctx)
		if err != nil {
			return &signal.Error{Type: signal.ErrorNetwork, Message: fmt.Sprintf("await open: %v", err)}
		}
		m, ok := parseMessage(data)
		if !ok {
			continue
		}
		switch m.Type {
		case msgOpen:
			return nil
		case msgIDTaken, msgError:
			return classifyError(m.Type, m.Payload.Msg)
		}
	}
}

func (p *peer) readLoop() {
	for {
		_, data, err := p.conn.Read(context.Background())
		if err != nil {
			p.mu.Lock()
			destroyed := p.destroyed
			p.mu.Unlock()
			if !destroyed {
				p.emitError(&signal.Error{Type: signal.ErrorNetwork, Message: fmt.Sprintf("read: %v", err)})
			}
			return
		}
		m, ok := parseMessage(data)
		if !ok {
			p.log.Debug("ignoring malformed signaling frame")
			continue
		}
		p.handleMessage(m)
	}
}

func (p *peer) handleMessage(m message) {
	switch m.Type {
	case msgError, msgIDTaken:
		p.emitError(classifyError(m.Type, m.Payload.Msg))
	case msgOffer:
		p.handleOffer(m)
	case msgAnswer:
		p.handleAnswer(m)
	case msgCandidate:
		p.handleCandidate(m)
	case msgLeave:
		p.handleLeave(m.Src, m.Payload.ConnectionID)
	case msgExpire:
		p.emitError(&signal.Error{Type: signal.ErrorPeerUnavailable, Message: fmt.Sprintf("offer to %s expired", m.Src)})
	}
}

func (p *peer) handleOffer(m message) {
	if m.Payload.Type != connectionMedia || m.Payload.SDP == nil || m.Payload.ConnectionID == "" {
		return
	}
	ic := &incomingCall{
		peer:     p,
		remoteID: m.Src,
		connID:   m.Payload.ConnectionID,
		offer:    m.Payload.SDP.SDP,
	}
	p.mu.Lock()
	p.pending[ic.connID] = ic
	cb := p.onCall
	p.mu.Unlock()
	if cb == nil {
		p.log.Warn("incoming call with no handler registered", "remote_id", m.Src)
		return
	}
	// Answering negotiates SDP and can take a while; keep the read loop free
	// so candidate frames arriving meanwhile are buffered.
	go cb(ic)
}

func (p *peer) handleAnswer(m message) {
	p.mu.Lock()
	c := p.calls[m.Payload.ConnectionID]
	p.mu.Unlock()
	if c == nil || m.Payload.SDP == nil {
		return
	}
	if err := c.transport.AcceptAnswer(context.Background(), m.Payload.SDP.SDP); err != nil {
		p.log.Error("failed to accept answer", "remote_id", m.Src, "error", err)
		c.Close()
	}
}

func (p *peer) handleCandidate(m message) {
	if m.Payload.Candidate == nil {
		return
	}
	p.mu.Lock()
	c := p.calls[m.Payload.ConnectionID]
	ic := p.pending[m.Payload.ConnectionID]
	if c == nil && ic != nil {
		// Candidates can outrun Answer; replayed once the transport exists.
		ic.earlyCandidates = append(ic.earlyCandidates, m.Payload.Candidate.Candidate)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	if c == nil {
		return
	}
	if err := c.transport.AddICECandidate(m.Payload.Candidate.Candidate); err != nil {
		p.log.Debug("failed to add ICE candidate", "error", err)
	}
}

// handleLeave closes the named connection, or every call with the departed
// peer when the frame carries no connection id. Reject and Close both scope
// their LEAVE to one connection, so a hangup of one call must not tear down
// another call with the same peer.
func (p *peer) handleLeave(remoteID, connID string) {
	p.mu.Lock()
	var closing []*call
	if connID != "" {
		if c := p.calls[connID]; c != nil && c.remoteID == remoteID {
			closing = append(closing, c)
		}
		if ic := p.pending[connID]; ic != nil && ic.remoteID == remoteID {
			delete(p.pending, connID)
		}
	} else {
		for _, c := range p.calls {
			if c.remoteID == remoteID {
				closing = append(closing, c)
			}
		}
		for id, ic := range p.pending {
			if ic.remoteID == remoteID {
				delete(p.pending, id)
			}
		}
	}
	p.mu.Unlock()
	for _, c := range closing {
		c.terminate(false)
	}
}

func (p *peer) heartbeatLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-t.C:
			if err := p.send(context.Background(), message{Type: msgHeartbeat}); err != nil {
				return
			}
		}
	}
}

func (p *peer) send(ctx context.Context, m message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("peerjs: marshal %s frame: %w", m.Type, err)
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return &signal.Error{Type: signal.ErrorNetwork, Message: fmt.Sprintf("send %s: %v", m.Type, err)}
	}
	return nil
}

func (p *peer) emitError(se *signal.Error) {
	p.mu.Lock()
	cb := p.onError
	p.mu.Unlock()
	if cb != nil {
		cb(se)
		return
	}
	p.log.Warn("unhandled signaling error", "type", string(se.Type), "message", se.Message)
}

func (p *peer) dropCall(connID string) {
	p.mu.Lock()
	delete(p.calls, connID)
	p.mu.Unlock()
}

// call is one live media call. It implements [signal.Call].
type call struct {
	peer      *peer
	remoteID  string
	connID    string
	transport media.PeerTransport

	mu       sync.Mutex
	onStream func(media.Stream)
	onClose  func()
	stream   media.Stream
	closed   bool
}

var _ signal.Call = (*call)(nil)

func (c *call) PeerID() string { return c.remoteID }

func (c *call) OnStream(cb func(media.Stream)) {
	c.mu.Lock()
	s := c.stream
	c.onStream = cb
	c.mu.Unlock()
	if s != nil && cb != nil {
		cb(s)
	}
}

func (c *call) OnClose(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = cb
}

func (c *call) NewRecorder(track media.Track) (media.Recorder, error) {
	return c.transport.NewRecorder(track)
}

func (c *call) handleStream(s media.Stream) {
	c.mu.Lock()
	c.stream = s
	cb := c.onStream
	c.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// Close hangs up: notifies the remote peer, releases the transport and fires
// the close callback at most once.
func (c *call) Close() error {
	return c.terminate(true)
}

func (c *call) terminate(notifyRemote bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cb := c.onClose
	c.mu.Unlock()

	c.peer.dropCall(c.connID)
	if notifyRemote {
		msg := message{Type: msgLeave, Dst: c.remoteID, Payload: payload{ConnectionID: c.connID}}
		if err := c.peer.send(context.Background(), msg); err != nil {
			c.peer.log.Debug("failed to send leave", "error", err)
		}
	}
	err := c.transport.Close()
	if cb != nil {
		cb()
	}
	return err
}

// incomingCall is an offer that has not been answered or rejected yet. It
// implements [signal.IncomingCall].
type incomingCall struct {
	peer     *peer
	remoteID string
	connID   string
	offer    string

	// earlyCandidates buffers CANDIDATE frames that arrived before Answer.
	// Guarded by peer.mu.
	earlyCandidates []string
}

var _ signal.IncomingCall = (*incomingCall)(nil)

func (ic *incomingCall) PeerID() string { return ic.remoteID }

// Answer accepts the offer with the local stream and returns the live call.
func (ic *incomingCall) Answer(local media.Stream) (signal.Call, error) {
	p := ic.peer
	t, err := p.factory()
	if err != nil {
		ic.unregister()
		return nil, fmt.Errorf("peerjs: create transport: %w", err)
	}
	c := &call{
		peer:      p,
		remoteID:  ic.remoteID,
		connID:    ic.connID,
		transport: t,
	}
	ctx := context.Background()
	if err := p.startCall(ctx, c, local, func() (message, error) {
		answer, err := t.CreateAnswer(ctx, ic.offer)
		if err != nil {
			return message{}, fmt.Errorf("peerjs: create answer: %w", err)
		}
		return message{
			Type: msgAnswer,
			Dst:  ic.remoteID,
			Payload: payload{
				SDP:          &sessionDescription{Type: "answer", SDP: answer},
				Type:         connectionMedia,
				ConnectionID: ic.connID,
			},
		}, nil
	}); err != nil {
		ic.unregister()
		return nil, err
	}

	p.mu.Lock()
	delete(p.pending, ic.connID)
	early := ic.earlyCandidates
	ic.earlyCandidates = nil
	p.mu.Unlock()
	for _, cand := range early {
		if err := t.AddICECandidate(cand); err != nil {
			p.log.Debug("failed to add buffered ICE candidate", "error", err)
		}
	}
	return c, nil
}

// Reject declines the offer and tells the caller to hang up.
func (ic *incomingCall) Reject() error {
	ic.unregister()
	msg := message{Type: msgLeave, Dst: ic.remoteID, Payload: payload{ConnectionID: ic.connID}}
	return ic.peer.send(context.Background(), msg)
}

func (ic *incomingCall) unregister() {
	ic.peer.mu.Lock()
	delete(ic.peer.pending, ic.connID)
	ic.peer.mu.Unlock()
}
