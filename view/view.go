// Package view loads the on-chain records a role's card renders.
package view

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wfunc/tournament-client/contracts"
	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
)

type Reader interface {
	TournamentRead(address common.Address) contracts.TournamentReader
	OrganizerNFTRead() contracts.OrganizerNFTReader
}

// View is what a card shows for one role. Player is set only for players and
// Organizer only for organizers; a nil record means it is not loaded yet.
type View struct {
	Role      models.Role              `json:"role"`
	Player    *models.PlayerRecord     `json:"player,omitempty"`
	Organizer *models.OrganizerProfile `json:"organizer,omitempty"`
}

// Loaded reports whether the role's record is present.
func (v View) Loaded() bool {
	switch v.Role.Kind {
	case models.RolePlayer:
		return v.Player != nil
	case models.RoleOrganizer:
		return v.Organizer != nil
	default:
		return true
	}
}

type Loader struct {
	reader Reader
}

func NewLoader(reader Reader) *Loader {
	return &Loader{reader: reader}
}

// Load only reads. An empty or reverting record read yields a View without that
// record; transport failures are returned.
func (l *Loader) Load(ctx context.Context, role models.Role, account, tournament common.Address) (View, error) {
	v := View{Role: role}

	switch role.Kind {
	case models.RolePlayer:
		index := role.PlayerIndex()
		if index == nil {
			return v, nil
		}
		record, err := l.reader.TournamentRead(tournament).Player(ctx, index)
		if err != nil {
			return v, unavailable(err, "player %s of %s", account.Hex(), tournament.Hex())
		}
		if !record.Empty() {
			v.Player = record
		}

	case models.RoleOrganizer:
		if role.OrganizerID == nil || role.OrganizerID.Sign() == 0 {
			return v, nil
		}
		profile, err := l.reader.OrganizerNFTRead().OrganizerDetail(ctx, role.OrganizerID)
		if err != nil {
			return v, unavailable(err, "organizer %s", role.OrganizerID)
		}
		if !profile.Empty() {
			v.Organizer = profile
		}
	}
	return v, nil
}

// unavailable swallows reverts, which the contracts use for absent records.
func unavailable(err error, format string, args ...interface{}) error {
	if errors.Is(err, contracts.ErrContractRevert) {
		logger.Log.Debugf("Record unavailable, "+format+": %v", append(args, err)...)
		return nil
	}
	return err
}
