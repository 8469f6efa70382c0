package models

import "math/big"

type RoleKind string

const (
	RoleVisitor   RoleKind = "visitor"
	RolePlayer    RoleKind = "player"
	RoleOrganizer RoleKind = "organizer"
	// RoleUnresolved means the chain reads failed; nothing is rendered for it.
	RoleUnresolved RoleKind = "unresolved"
)

// Role is derived from chain reads for one (account, tournament) pair and is never
// persisted. OrganizerID is set only for organizers, PlayerID only for players.
type Role struct {
	Kind        RoleKind `json:"kind"`
	OrganizerID *big.Int `json:"organizer_id,omitempty"`
	PlayerID    *big.Int `json:"player_id,omitempty"`
	// Ambiguous marks an organizer that is also registered as a player.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

func Visitor() Role {
	return Role{Kind: RoleVisitor}
}

func Unresolved() Role {
	return Role{Kind: RoleUnresolved}
}

// PlayerIndex is the 0-based players() index, or nil when the role is not a player.
func (r Role) PlayerIndex() *big.Int {
	if r.Kind != RolePlayer || r.PlayerID == nil || r.PlayerID.Sign() <= 0 {
		return nil
	}
	return new(big.Int).Sub(r.PlayerID, big.NewInt(1))
}

func (r Role) Is(kind RoleKind) bool {
	return r.Kind == kind
}
