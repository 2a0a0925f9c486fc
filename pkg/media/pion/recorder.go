package pion

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"

	"github.com/babelcall/babelcall/pkg/media"
)

// RecorderMIMEType is the container every captured fragment is packaged in.
const RecorderMIMEType = "audio/ogg;codecs=opus"

const (
	opusClockRate = 48000
	opusChannels  = 2
)

// trackRecorder packages a remote opus track into self-contained ogg
// fragments. One read loop drains RTP continuously; Start opens a fresh ogg
// container over an in-memory buffer and Stop seals and returns it, so
// capture can restart instantly with no gap.
type trackRecorder struct {
	track *remoteTrack
	log   *slog.Logger

	mu     sync.Mutex
	buf    *bytes.Buffer
	ogg    *oggwriter.OggWriter
	closed bool
}

var _ media.Recorder = (*trackRecorder)(nil)

func newTrackRecorder(rt *remoteTrack, log *slog.Logger) *trackRecorder {
	r := &trackRecorder{track: rt, log: log}
	go r.readLoop()
	return r
}

// readLoop drains the track for the recorder's whole life. Packets read
// outside a recording window are discarded, matching the always-on capture
// model.
func (r *trackRecorder) readLoop() {
	for {
		select {
		case <-r.track.done:
			return
		default:
		}
		pkt, _, err := r.track.remote.ReadRTP()
		if err != nil {
			return
		}
		r.writePacket(pkt)
	}
}

func (r *trackRecorder) writePacket(pkt *rtp.Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ogg == nil {
		return
	}
	if err := r.ogg.WriteRTP(pkt); err != nil {
		r.log.Debug("failed to write rtp packet to ogg container", "err", err)
	}
}

// Start opens a new recording window.
func (r *trackRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("pion: recorder closed")
	}
	if r.ogg != nil {
		return errors.New("pion: recorder already recording")
	}

	clockRate := uint32(opusClockRate)
	channels := uint16(opusChannels)
	if codec := r.track.remote.Codec(); codec.ClockRate != 0 {
		clockRate = codec.ClockRate
		if codec.Channels != 0 {
			channels = codec.Channels
		}
	}

	buf := &bytes.Buffer{}
	ogg, err := oggwriter.NewWith(buf, clockRate, channels)
	if err != nil {
		return fmt.Errorf("pion: open ogg container: %w", err)
	}
	r.buf = buf
	r.ogg = ogg
	return nil
}

// Stop seals the current window and returns its bytes.
func (r *trackRecorder) Stop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ogg == nil {
		return nil, errors.New("pion: recorder not recording")
	}
	if err := r.ogg.Close(); err != nil {
		r.log.Debug("failed to close ogg container", "err", err)
	}
	data := r.buf.Bytes()
	r.ogg = nil
	r.buf = nil
	return data, nil
}

func (r *trackRecorder) MIMEType() string { return RecorderMIMEType }

// Close discards any open window and stops the underlying track, which winds
// down the read loop.
func (r *trackRecorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.ogg != nil {
		r.ogg.Close()
		r.ogg = nil
		r.buf = nil
	}
	r.mu.Unlock()
	r.track.Stop()
	return nil
}
