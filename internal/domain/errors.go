package domain

import "errors"

// Error taxonomy shared by all room operations.
var (
	// ErrUnauthorized: bad/missing identity, or a non-host attempting a
	// moderation or teardown operation. The operation has no side effect.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound: room or target connection absent. Benign for leave/kick/
	// disconnect races; surfaced for explicit host-targeted calls.
	ErrNotFound = errors.New("not found")

	// ErrBanned: join attempt from an identity in the room's ban set.
	ErrBanned = errors.New("banned from room")

	// ErrRoomClosed: join attempt against a room that is mid-teardown.
	ErrRoomClosed = errors.New("room closed")
)
