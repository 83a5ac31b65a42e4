package core

import "github.com/voxhall/voxhall/internal/domain"

// Frame is a raw serialized payload pushed over the signaling transport.
type Frame []byte

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Member pairs a participant record with its transport endpoint.
// This is what a room stores and fans out to.
type Member struct {
	Participant domain.Participant
	Conn        SignalConnection
}
