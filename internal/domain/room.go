package domain

import "time"

type (
	RoomName string
	RoomID   string
)

const MaxRoomNameLen = 64

// Room is the lifecycle manager's view of a live room. Registry entries
// reference it only by ID.
type Room struct {
	ID             RoomID
	Name           RoomName
	HostIdentityID IdentityID
	RoomType       string
	Thumbnail      string
	Theme          string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}
