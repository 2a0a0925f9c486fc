package signal

import (
	"fmt"
	"strings"
)

// DefaultNamespace prefixes deterministic room identities so they cannot
// collide with server-assigned random IDs.
const DefaultNamespace = "vct"

// RoomID derives the deterministic signaling identifier for one participant
// of a room: <namespace>-<roomCode>-<languageCode>. Two clients that share a
// room code can compute each other's identifier without exchanging it live.
func RoomID(namespace, roomCode, languageCode string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return fmt.Sprintf("%s-%s-%s", namespace, NormalizeRoomCode(roomCode), languageCode)
}

// NormalizeRoomCode lowercases a room code and strips whitespace so both
// participants derive identical identifiers regardless of how the code was
// typed or shared.
func NormalizeRoomCode(code string) string {
	code = strings.TrimSpace(strings.ToLower(code))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, code)
}
