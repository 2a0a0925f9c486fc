package playback

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/babelcall/babelcall/pkg/media/mock"
	"github.com/babelcall/babelcall/pkg/provider/tts"
)

func TestNewRequiresASink(t *testing.T) {
	t.Parallel()

	if _, err := New(); err == nil {
		t.Fatal("New() with no sinks should fail")
	}
	if _, err := New(WithSink(&mock.Sink{})); err != nil {
		t.Fatalf("New(WithSink): %v", err)
	}
	if _, err := New(WithEncodedSink(&mock.EncodedSink{})); err != nil {
		t.Fatalf("New(WithEncodedSink): %v", err)
	}
}

func TestPlayEmptyClip(t *testing.T) {
	t.Parallel()

	p, err := New(WithEncodedSink(&mock.EncodedSink{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Play(context.Background(), tts.Clip{}); err == nil {
		t.Fatal("Play with empty clip should fail")
	}
}

func TestPlayRoutesToEncodedSink(t *testing.T) {
	t.Parallel()

	sink := &mock.EncodedSink{}
	p, err := New(WithEncodedSink(sink))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clip := tts.Clip{Data: []byte("wav-bytes"), MIMEType: "audio/wav"}
	if err := p.Play(context.Background(), clip); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if sink.PlayCount() != 1 {
		t.Fatalf("PlayCount = %d, want 1", sink.PlayCount())
	}
	if got := sink.Played[0].MIMEType; got != "audio/wav" {
		t.Errorf("played MIME = %q, want audio/wav", got)
	}
	if string(sink.Played[0].Data) != "wav-bytes" {
		t.Errorf("played data = %q, want wav-bytes", sink.Played[0].Data)
	}
}

func TestPlayMPEGFallsBackToEncodedSink(t *testing.T) {
	t.Parallel()

	// No PCM sink configured: even MP3 clips go to the encoded sink.
	sink := &mock.EncodedSink{}
	p, err := New(WithEncodedSink(sink))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clip := tts.Clip{Data: []byte("mp3-bytes"), MIMEType: "audio/mpeg"}
	if err := p.Play(context.Background(), clip); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if sink.PlayCount() != 1 {
		t.Fatalf("PlayCount = %d, want 1", sink.PlayCount())
	}
}

func TestPlayNoRouteForClip(t *testing.T) {
	t.Parallel()

	// PCM sink only: a non-MPEG clip has nowhere to go.
	p, err := New(WithSink(&mock.Sink{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clip := tts.Clip{Data: []byte("wav-bytes"), MIMEType: "audio/wav"}
	err = p.Play(context.Background(), clip)
	if !errors.Is(err, ErrNoOutput) {
		t.Fatalf("Play error = %v, want ErrNoOutput", err)
	}
}

func TestPlayDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	p, err := New(WithSink(&mock.Sink{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clip := tts.Clip{Data: []byte("definitely not mpeg frames"), MIMEType: "audio/mpeg"}
	err = p.Play(context.Background(), clip)
	if err == nil {
		t.Fatal("Play with garbage MP3 should fail")
	}
	if !strings.Contains(err.Error(), "decode clip") {
		t.Errorf("error = %v, want decode clip failure", err)
	}
}

func TestIsMPEG(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mime string
		want bool
	}{
		{"audio/mpeg", true},
		{"audio/mpeg; codecs=mp3", true},
		{"audio/wav", false},
		{"audio/ogg;codecs=opus", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := isMPEG(tc.mime); got != tc.want {
			t.Errorf("isMPEG(%q) = %v, want %v", tc.mime, got, tc.want)
		}
	}
}
