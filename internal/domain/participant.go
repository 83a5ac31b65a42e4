package domain

// ConnectionID is the transport-session key: one per physical connection.
type ConnectionID string

// Participant is a connection's membership record inside a room, carrying
// the presenting identity's display data. No transport or lifecycle logic here.
type Participant struct {
	ConnectionID ConnectionID `json:"userId"`
	IdentityID   IdentityID   `json:"identityId"`
	DisplayName  string       `json:"fullName"`
	AvatarRef    string       `json:"profilePic,omitempty"`
	IsAnonymous  bool         `json:"isAnonymous"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(cid ConnectionID, identity UserIdentity) Participant {
	name := identity.DisplayName
	anon := identity.IsAnonymous()
	if name == "" {
		name = AnonymousName
	}
	return Participant{
		ConnectionID: cid,
		IdentityID:   identity.ID,
		DisplayName:  name,
		AvatarRef:    identity.AvatarRef,
		IsAnonymous:  anon,
	}
}
