package call

import (
	"context"
	"errors"
	"testing"

	"github.com/babelcall/babelcall/internal/config"
	"github.com/babelcall/babelcall/internal/lang"
	mediamock "github.com/babelcall/babelcall/pkg/media/mock"
	sigmock "github.com/babelcall/babelcall/pkg/signal/mock"
)

func manualSession(t *testing.T, obs Observer) *Session {
	t.Helper()
	devices := &mediamock.Devices{}
	opener := &sigmock.Opener{Result: &sigmock.Peer{PeerID: "abc123"}}
	return NewSession(devices, opener, newCountingFactory().new,
		Identity{Mode: config.IdentityManual}, lang.English,
		WithObserver(obs), WithMetrics(testMetrics(t)))
}

func TestManagerAllowsOneLiveSession(t *testing.T) {
	t.Parallel()

	m := NewManager()
	obs := newRecordingObserver()
	first := manualSession(t, obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Start(ctx, first); err != nil {
		t.Fatalf("Start: %v", err)
	}
	obs.waitFor(t, StateSharing)

	if err := m.Start(ctx, manualSession(t, NopObserver{})); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Start = %v, want ErrSessionActive", err)
	}
	if m.Active() != first {
		t.Error("Active() does not return the live session")
	}

	m.End()
	if m.Active() != nil {
		t.Error("Active() is non-nil after End")
	}

	obs2 := newRecordingObserver()
	if err := m.Start(ctx, manualSession(t, obs2)); err != nil {
		t.Fatalf("Start after End: %v", err)
	}
	obs2.waitFor(t, StateSharing)
	m.End()
}

func TestManagerActiveIsNilBeforeStart(t *testing.T) {
	t.Parallel()

	if got := NewManager().Active(); got != nil {
		t.Errorf("Active() = %v, want nil", got)
	}
}

func TestManagerEndWithoutSessionIsANoOp(t *testing.T) {
	t.Parallel()

	NewManager().End()
}
