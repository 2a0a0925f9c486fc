// Package segment chops a live audio track into fixed-duration capture
// windows and hands the resulting fragments to the translation pipeline.
//
// The cycle on every window boundary is strict: stop the current window,
// immediately start the next one, then deal with the completed fragment —
// capture never pauses while providers are working. Fragments at or below a
// minimum byte threshold are discarded as silence. Fragments the pipeline is
// too busy to take concatenate in a pending buffer and go out as one unit at
// the next boundary where it is free, so speech is never dropped while
// capture is alive.
package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/babelcall/babelcall/pkg/media"
)

const (
	// DefaultWindow keeps fragments around two seconds: long enough to hold a
	// phrase, short enough to keep the conversation moving.
	DefaultWindow = 2 * time.Second

	// DefaultMinBytes is the silence threshold. Container headers alone stay
	// under it.
	DefaultMinBytes = 50
)

// DeliverFunc receives one completed unit. It reports whether the unit was
// accepted; a rejected unit stays in the pending buffer and is offered again,
// grown, at the next window boundary. Accepting transfers ownership of the
// chunk's bytes.
type DeliverFunc func(chunk media.AudioChunk) bool

// Option configures a [Segmenter].
type Option func(*Segmenter)

// WithWindow sets the capture window duration.
func WithWindow(d time.Duration) Option {
	return func(s *Segmenter) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithMinBytes sets the silence threshold; fragments of at most n bytes are
// discarded.
func WithMinBytes(n int) Option {
	return func(s *Segmenter) { s.minBytes = n }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Segmenter) { s.log = l }
}

// Segmenter drives one recorder through the windowed capture loop.
type Segmenter struct {
	rec      media.Recorder
	deliver  DeliverFunc
	window   time.Duration
	minBytes int
	log      *slog.Logger

	mu      sync.Mutex
	pending []byte
	gen     int
	cancel  context.CancelFunc
}

// New creates a segmenter over rec delivering to deliver.
func New(rec media.Recorder, deliver DeliverFunc, opts ...Option) *Segmenter {
	s := &Segmenter{
		rec:      rec,
		deliver:  deliver,
		window:   DefaultWindow,
		minBytes: DefaultMinBytes,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the first capture window and launches the loop. The loop stops
// when ctx is cancelled or [Segmenter.Stop] is called.
func (s *Segmenter) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return errors.New("segment: already running")
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.rec.Start(); err != nil {
		s.Stop()
		return fmt.Errorf("segment: open first window: %w", err)
	}
	go s.loop(ctx, gen)
	return nil
}

// Stop tears the loop down and discards the pending buffer. The recorder's
// open window is stopped; closing the recorder stays with its owner. Safe to
// call more than once.
func (s *Segmenter) Stop() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.cancel = nil
	s.gen++
	s.pending = nil
	s.mu.Unlock()

	if _, err := s.rec.Stop(); err != nil {
		s.log.Debug("failed to stop final capture window", "err", err)
	}
}

func (s *Segmenter) loop(ctx context.Context, gen int) {
	ticker := time.NewTicker(s.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// A timer that fires during teardown must not touch the recorder.
		if !s.currentGeneration(gen) {
			return
		}
		s.cycle(gen)
	}
}

func (s *Segmenter) currentGeneration(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// cycle runs one window boundary: stop, restart, then hand off.
func (s *Segmenter) cycle(gen int) {
	data, err := s.rec.Stop()
	if err != nil {
		// The window is lost but capture must not halt; the next one still
		// opens below.
		s.log.Warn("failed to close capture window", "err", err)
	}
	if err := s.rec.Start(); err != nil {
		s.log.Error("failed to open next capture window", "err", err)
	}
	s.handleFragment(data, gen)
}

func (s *Segmenter) handleFragment(data []byte, gen int) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if len(data) > s.minBytes {
		s.pending = append(s.pending, data...)
	} else if len(data) > 0 {
		s.log.Debug("discarding fragment below silence threshold", "bytes", len(data))
	}
	unit := s.pending
	s.mu.Unlock()

	if len(unit) == 0 {
		return
	}
	accepted := s.deliver(media.AudioChunk{Data: unit, MIMEType: s.rec.MIMEType()})
	if !accepted {
		return
	}
	s.mu.Lock()
	if gen == s.gen {
		s.pending = nil
	}
	s.mu.Unlock()
}
