// Package playback renders synthesized speech clips to the local audio
// output.
//
// Two paths exist. The decode path handles MP3 clips: frames are decoded to
// PCM with go-mp3 and written into a [media.Sink], and Play returns once the
// sink has flushed. The raw path hands any other container straight to a
// [media.EncodedSink]. A [Player] is configured with one or both; clips it
// cannot route are reported as errors. Clip bytes are transient and are not
// retained after Play returns.
package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/babelcall/babelcall/pkg/media"
	"github.com/babelcall/babelcall/pkg/provider/tts"
)

// mpegMIMEType is the container type routed through the decode path.
const mpegMIMEType = "audio/mpeg"

// decodeBufSize is the PCM chunk size written to the sink per iteration.
const decodeBufSize = 8192

// ErrNoOutput is returned by Play when no configured output can handle the
// clip's container type.
var ErrNoOutput = errors.New("playback: no output for clip")

// Player routes synthesized clips to the local audio output.
type Player struct {
	sink    media.Sink
	encoded media.EncodedSink
	log     *slog.Logger
}

// Option configures a [Player].
type Option func(*Player)

// WithSink sets the PCM sink used by the MP3 decode path.
func WithSink(s media.Sink) Option {
	return func(p *Player) { p.sink = s }
}

// WithEncodedSink sets the fallback sink for clips the decode path does not
// handle.
func WithEncodedSink(s media.EncodedSink) Option {
	return func(p *Player) { p.encoded = s }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(p *Player) { p.log = l }
}

// New creates a Player. At least one sink option must be provided.
func New(opts ...Option) (*Player, error) {
	p := &Player{log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink == nil && p.encoded == nil {
		return nil, errors.New("playback: at least one sink is required")
	}
	return p, nil
}

// Play renders the clip and blocks until playback finishes or ctx is
// cancelled. MP3 clips go through the decode path when a PCM sink is
// configured; everything else falls back to the encoded sink. Returns
// [ErrNoOutput] when neither path applies.
func (p *Player) Play(ctx context.Context, clip tts.Clip) error {
	if len(clip.Data) == 0 {
		return errors.New("playback: empty clip")
	}

	if p.sink != nil && isMPEG(clip.MIMEType) {
		return p.playDecoded(ctx, clip.Data)
	}
	if p.encoded != nil {
		return p.encoded.Play(ctx, clip.Data, clip.MIMEType)
	}
	return fmt.Errorf("%w: %s", ErrNoOutput, clip.MIMEType)
}

// playDecoded decodes the MP3 clip and streams PCM into the sink, then waits
// for the sink to drain.
func (p *Player) playDecoded(ctx context.Context, data []byte) error {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("playback: decode clip: %w", err)
	}
	p.log.Debug("decoding clip", "bytes", len(data), "sample_rate", dec.SampleRate())

	buf := make([]byte, decodeBufSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := dec.Read(buf)
		if n > 0 {
			if werr := p.sink.Write(ctx, buf[:n]); werr != nil {
				return fmt.Errorf("playback: write pcm: %w", werr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("playback: decode clip: %w", err)
		}
	}

	if err := p.sink.Flush(ctx); err != nil {
		return fmt.Errorf("playback: flush: %w", err)
	}
	return nil
}

// isMPEG reports whether the MIME type names an MPEG audio container,
// ignoring parameters like codec suffixes.
func isMPEG(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.TrimSpace(base) == mpegMIMEType
}
