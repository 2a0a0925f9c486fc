package pion

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/babelcall/babelcall/pkg/media"
	"github.com/babelcall/babelcall/pkg/media/mock"
)

func TestDevicesAcquireMedia(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		constraints media.Constraints
		wantAudio   int
		wantVideo   int
	}{
		{
			name:        "audio and video",
			constraints: media.Constraints{Audio: true, Video: true},
			wantAudio:   1,
			wantVideo:   1,
		},
		{
			name:        "audio only",
			constraints: media.Constraints{Audio: true},
			wantAudio:   1,
		},
		{
			name: "nothing requested",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := Devices{}.AcquireMedia(context.Background(), tt.constraints)
			if err != nil {
				t.Fatalf("AcquireMedia() error = %v", err)
			}
			defer s.Close()

			if got := len(s.AudioTracks()); got != tt.wantAudio {
				t.Errorf("audio tracks = %d, want %d", got, tt.wantAudio)
			}
			if got := len(s.VideoTracks()); got != tt.wantVideo {
				t.Errorf("video tracks = %d, want %d", got, tt.wantVideo)
			}
			for _, tr := range s.AudioTracks() {
				if tr.Kind() != media.TrackAudio {
					t.Errorf("audio track kind = %q", tr.Kind())
				}
			}
		})
	}
}

func TestLocalTrackWriteAfterStop(t *testing.T) {
	t.Parallel()

	s, err := Devices{}.AcquireMedia(context.Background(), media.Constraints{Audio: true})
	if err != nil {
		t.Fatalf("AcquireMedia() error = %v", err)
	}
	lt := s.AudioTracks()[0].(*LocalTrack)
	lt.Stop()
	if err := lt.WriteSample([]byte{0x01}, 20*time.Millisecond); err != nil {
		t.Errorf("WriteSample() after Stop error = %v, want a silent drop", err)
	}
}

func TestTransportOfferAnswer(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	caller, err := NewTransport(WithSTUNServers(nil))
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}
	defer caller.Close()

	local, err := Devices{}.AcquireMedia(ctx, media.Constraints{Audio: true, Video: true})
	if err != nil {
		t.Fatalf("AcquireMedia() error = %v", err)
	}
	if err := caller.AttachLocal(local); err != nil {
		t.Fatalf("AttachLocal() error = %v", err)
	}

	offer, err := caller.CreateOffer(ctx)
	if err != nil {
		t.Fatalf("CreateOffer() error = %v", err)
	}
	if !strings.Contains(offer, "v=0") {
		t.Errorf("offer is not an SDP blob: %.40q", offer)
	}
	if !strings.Contains(offer, "m=audio") || !strings.Contains(offer, "m=video") {
		t.Errorf("offer misses a media section:\n%s", offer)
	}

	callee, err := NewTransport(WithSTUNServers(nil))
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}
	defer callee.Close()

	answer, err := callee.CreateAnswer(ctx, offer)
	if err != nil {
		t.Fatalf("CreateAnswer() error = %v", err)
	}
	if !strings.Contains(answer, "v=0") {
		t.Errorf("answer is not an SDP blob: %.40q", answer)
	}
	if err := caller.AcceptAnswer(ctx, answer); err != nil {
		t.Fatalf("AcceptAnswer() error = %v", err)
	}

	// Closing twice is a no-op.
	if err := caller.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := caller.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestOfferWithoutLocalTracksStillRequestsMedia(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	tr, err := NewTransport(WithSTUNServers(nil))
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}
	defer tr.Close()

	offer, err := tr.CreateOffer(ctx)
	if err != nil {
		t.Fatalf("CreateOffer() error = %v", err)
	}
	if !strings.Contains(offer, "m=audio") {
		t.Error("receive-only offer has no audio section")
	}
}

func TestNewRecorderRejectsForeignTracks(t *testing.T) {
	t.Parallel()

	tr, err := NewTransport(WithSTUNServers(nil))
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}
	defer tr.Close()

	if _, err := tr.NewRecorder(&mock.Track{}); err == nil {
		t.Error("NewRecorder() accepted a track from another implementation")
	}
}

func TestRecorderCloseStopsTrack(t *testing.T) {
	t.Parallel()

	rt := &remoteTrack{done: make(chan struct{})}
	r := &trackRecorder{track: rt, log: slog.Default()}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case <-rt.done:
	default:
		t.Error("closing the recorder did not stop its track")
	}

	if err := r.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := r.Start(); err == nil {
		t.Error("Start() succeeded on a closed recorder")
	}
}
