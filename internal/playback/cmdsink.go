package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/babelcall/babelcall/pkg/media"
)

// DefaultPlayerCommand is the external player clips are piped to when none is
// configured.
const DefaultPlayerCommand = "mpg123 -q -"

// CmdSink is a [media.EncodedSink] that pipes encoded clips into an external
// player command, one process per clip. It is the playback path for headless
// hosts without a native audio output library.
type CmdSink struct {
	argv []string
	log  *slog.Logger
}

var _ media.EncodedSink = (*CmdSink)(nil)

// NewCmdSink creates a sink running command for every clip. Empty command
// selects [DefaultPlayerCommand]. The command is split on whitespace; the
// clip bytes arrive on its stdin.
func NewCmdSink(command string, log *slog.Logger) (*CmdSink, error) {
	if command == "" {
		command = DefaultPlayerCommand
	}
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, errors.New("playback: blank player command")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CmdSink{argv: argv, log: log}, nil
}

// Play runs the player command and blocks until it exits or ctx is
// cancelled.
func (s *CmdSink) Play(ctx context.Context, data []byte, mimeType string) error {
	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	s.log.Debug("piping clip to player", "command", s.argv[0], "bytes", len(data), "mime_type", mimeType)
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("playback: player %s: %w: %s", s.argv[0], err, msg)
		}
		return fmt.Errorf("playback: player %s: %w", s.argv[0], err)
	}
	return nil
}
