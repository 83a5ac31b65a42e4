// Package store persists durable room records. The live registry never
// reads it on the hot path; it is the source of truth only for room
// existence across restarts and for TTL-based expiry.
package store

import (
	"context"
	"time"

	"github.com/voxhall/voxhall/internal/domain"
)

// RoomRecord is the durable shape of a room.
type RoomRecord struct {
	ID             domain.RoomID     `json:"id"`
	Name           domain.RoomName   `json:"name"`
	HostIdentityID domain.IdentityID `json:"hostIdentityId"`
	RoomType       string            `json:"roomType,omitempty"`
	Thumbnail      string            `json:"roomThumbnail,omitempty"`
	Theme          string            `json:"roomTheme,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	ExpiresAt      time.Time         `json:"expiresAt"`
}

// ExpiryFunc is invoked once per room when its TTL elapses.
type ExpiryFunc func(domain.RoomID)

// RoomStore is the external persistence collaborator.
type RoomStore interface {
	Create(ctx context.Context, rec RoomRecord) error
	Get(ctx context.Context, id domain.RoomID) (RoomRecord, error)
	List(ctx context.Context) ([]RoomRecord, error)
	Delete(ctx context.Context, id domain.RoomID) error
	// OnExpire registers the expiry side channel. Register before Start.
	OnExpire(fn ExpiryFunc)
	// Start launches the expiry janitor; it stops when ctx is done.
	Start(ctx context.Context)
}
