package core

import "github.com/voxhall/voxhall/internal/domain"

// BanList is a room-scoped set of identities denied re-entry. Membership
// is monotonic: there is no unban, the set dies with the room.
//
// Not self-synchronized: the owning room's lock guards all access, so a
// kick (remove + ban) is atomic with respect to concurrent joins.
type BanList struct {
	ids map[domain.IdentityID]struct{}
}

func NewBanList() *BanList {
	return &BanList{ids: make(map[domain.IdentityID]struct{})}
}

// Ban is idempotent set union.
func (b *BanList) Ban(id domain.IdentityID) {
	b.ids[id] = struct{}{}
}

func (b *BanList) IsBanned(id domain.IdentityID) bool {
	_, ok := b.ids[id]
	return ok
}

func (b *BanList) Len() int { return len(b.ids) }
