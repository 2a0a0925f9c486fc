// Package sharelink builds and parses the shareable call links exchanged
// out-of-band between the two parties.
//
// A link carries the sharer's peer identifier in ?room= and the language the
// recipient should speak in ?lang= (the complement of the sharer's). Parsing
// is forgiving: pasted input may be a full URL or a bare identifier, and
// unknown parameters are ignored.
package sharelink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/babelcall/babelcall/internal/lang"
)

const (
	paramRoom = "room"
	paramLang = "lang"
	paramCode = "code"
)

// ErrEmptyInput is returned by Parse and PeerID when the input is blank.
var ErrEmptyInput = errors.New("sharelink: empty input")

// Link is the decoded contents of a share link.
type Link struct {
	// PeerID is the sharer's peer identifier, from ?room=.
	PeerID string

	// Language is the language the recipient should speak, from ?lang=.
	// Zero when the link carries no valid language.
	Language lang.Language

	// RoomCode is a deterministic room code, from ?code=.
	RoomCode string
}

// Build constructs a share link on the given base URL, embedding the local
// peer identifier and telling the recipient to speak the complement of the
// local language.
func Build(base, peerID string, local lang.Language) (string, error) {
	if peerID == "" {
		return "", errors.New("sharelink: peer id is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("sharelink: parse base url: %w", err)
	}
	q := u.Query()
	q.Set(paramRoom, peerID)
	q.Set(paramLang, local.Complement().String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Parse decodes a full share link. Invalid ?lang= values are dropped rather
// than rejected.
func Parse(raw string) (Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Link{}, ErrEmptyInput
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("sharelink: parse link: %w", err)
	}
	q := u.Query()
	l := Link{
		PeerID:   q.Get(paramRoom),
		RoomCode: q.Get(paramCode),
	}
	if parsed, err := lang.Parse(q.Get(paramLang)); err == nil {
		l.Language = parsed
	}
	return l, nil
}

// PeerID extracts a peer identifier from pasted input: the ?room= parameter
// when the input is a URL carrying one, the input itself otherwise.
func PeerID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyInput
	}
	u, err := url.Parse(input)
	if err == nil && u.Scheme != "" && u.Host != "" {
		if id := u.Query().Get(paramRoom); id != "" {
			return id, nil
		}
	}
	return input, nil
}
