// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLen = 64
	AnonymousName     = "Anonymous User"
)

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
)

// IdentityID is the durable user identity key, assigned by the external
// identity service. It survives reconnects; a ConnectionID does not.
type IdentityID string

// UserIdentity is an already-authenticated identity as handed over by the
// identity collaborator. The server never inspects credentials itself.
type UserIdentity struct {
	ID          IdentityID `json:"id"`
	DisplayName string     `json:"displayName"`
	AvatarRef   string     `json:"avatarRef,omitempty"`
}

// NewAnonymousIdentity mints a throwaway identity for connections that
// present no token. Each call yields a distinct ID.
func NewAnonymousIdentity() UserIdentity {
	return UserIdentity{
		ID:          IdentityID(uuid.NewString()),
		DisplayName: AnonymousName,
	}
}

func (u UserIdentity) IsAnonymous() bool {
	return u.DisplayName == "" || u.DisplayName == AnonymousName
}

// Validate is a tiny helper to avoid ad-hoc checks in adapters.
func (u UserIdentity) Validate() error {
	if len(u.DisplayName) > MaxDisplayNameLen {
		return ErrDisplayNameTooLong
	}
	return nil
}
