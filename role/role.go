// Package role decides whether a connected address is an organizer, a registered
// player of a given tournament, or a visitor.
package role

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/wfunc/tournament-client/contracts"
	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/monitor"
)

// Reader is the part of the contract gateway the resolver needs.
type Reader interface {
	OrganizerRead() contracts.OrganizerReader
	TournamentRead(address common.Address) contracts.TournamentReader
}

type Resolver struct {
	reader  Reader
	monitor *monitor.Monitor
}

func NewResolver(reader Reader, m *monitor.Monitor) *Resolver {
	return &Resolver{reader: reader, monitor: m}
}

// Resolve queries both registries concurrently. A non-zero organizer id wins; an
// address that is also a player is still an organizer, flagged Ambiguous. A
// confirmed organizer stays an organizer when the player read fails. Any other
// failed read yields Unresolved with the error.
func (r *Resolver) Resolve(ctx context.Context, account, tournament common.Address) (models.Role, error) {
	var (
		organizerID, playerID   *big.Int
		organizerErr, playerErr error
	)

	// A plain group: a failed player read must not cancel the organizer read.
	var g errgroup.Group
	g.Go(func() error {
		organizerID, organizerErr = r.reader.OrganizerRead().OrganizerID(ctx, account)
		return organizerErr
	})
	g.Go(func() error {
		playerID, playerErr = r.reader.TournamentRead(tournament).PlayerID(ctx, account)
		return playerErr
	})
	_ = g.Wait() // errors are kept per query

	switch {
	case organizerErr == nil && nonZero(organizerID):
		if playerErr != nil {
			logger.Log.Warnf("RoleAmbiguityWarning: %s is organizer %s of %s; player registration undetermined: %v",
				account.Hex(), organizerID, tournament.Hex(), playerErr)
			playerID = nil
		}
	case organizerErr != nil:
		r.monitor.IncRoleResolution(string(models.RoleUnresolved))
		return models.Unresolved(), fmt.Errorf("role: organizer id: %w", organizerErr)
	case playerErr != nil:
		r.monitor.IncRoleResolution(string(models.RoleUnresolved))
		return models.Unresolved(), fmt.Errorf("role: player id: %w", playerErr)
	}

	role := decide(organizerID, playerID)
	if role.Ambiguous {
		logger.Log.Warnf("RoleAmbiguityWarning: %s is organizer %s and player %s of %s; treating as organizer",
			account.Hex(), organizerID, playerID, tournament.Hex())
	}
	r.monitor.IncRoleResolution(string(role.Kind))
	return role, nil
}

func nonZero(v *big.Int) bool {
	return v != nil && v.Sign() != 0
}

func decide(organizerID, playerID *big.Int) models.Role {
	isOrganizer := nonZero(organizerID)
	isPlayer := nonZero(playerID)

	switch {
	case isOrganizer:
		return models.Role{
			Kind:        models.RoleOrganizer,
			OrganizerID: new(big.Int).Set(organizerID),
			Ambiguous:   isPlayer,
		}
	case isPlayer:
		return models.Role{Kind: models.RolePlayer, PlayerID: new(big.Int).Set(playerID)}
	default:
		return models.Visitor()
	}
}
