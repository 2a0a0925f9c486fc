package console_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/babelcall/babelcall/internal/call"
	"github.com/babelcall/babelcall/internal/console"
	"github.com/babelcall/babelcall/internal/pipeline"
)

func TestPipelineEventsAreRendered(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := console.New(&buf)

	c.StatusChanged(pipeline.StatusTranscribing)
	c.Heard("hello how are you")
	c.Translated("hola cómo estás")
	c.StatusChanged(pipeline.StatusSteady)

	out := buf.String()
	for _, want := range []string{
		string(pipeline.StatusTranscribing),
		"hello how are you",
		"hola cómo estás",
		string(pipeline.StatusSteady),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSessionEventsAreRendered(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := console.New(&buf)

	c.StateChanged(call.StateWaitingForPartner)
	c.IdentityReady("abc123", "?lang=es&room=abc123")
	c.SessionEnded(nil)

	out := buf.String()
	for _, want := range []string{
		string(call.StateWaitingForPartner),
		"your id: abc123",
		"?lang=es&room=abc123",
		"ended",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSessionEndedWithError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := console.New(&buf)

	c.SessionEnded(errors.New("signaling: boom"))
	if !strings.Contains(buf.String(), "signaling: boom") {
		t.Errorf("output missing the terminal error:\n%s", buf.String())
	}
}

func TestIdentityWithoutShareURL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := console.New(&buf)

	c.IdentityReady("abc123", "")
	if strings.Contains(buf.String(), "share") {
		t.Errorf("output advertises an empty share link:\n%s", buf.String())
	}
}
