// services/tournament_service.go
package services

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wfunc/tournament-client/card"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/persistence"
	"github.com/wfunc/tournament-client/state"
	"github.com/wfunc/tournament-client/units"
)

var ErrLedgerDisabled = errors.New("transaction ledger is disabled")

// ViewContext is everything one render of a tournament card needs.
type ViewContext struct {
	Tournament models.TournamentSummary  `json:"tournament"`
	PrizePool  string                    `json:"prize_pool"`
	Account    common.Address            `json:"account"`
	Role       models.Role               `json:"role"`
	Player     *models.PlayerRecord      `json:"player,omitempty"`
	Organizer  *models.OrganizerProfile  `json:"organizer,omitempty"`
	Actions    []state.Snapshot          `json:"actions"`
	// Navbar gating: organizers may create tournaments, visitors and players may register.
	CanRegister bool `json:"can_register"`
	CanCreate   bool `json:"can_create"`
}

type TournamentService struct {
	board  *card.Board
	ledger persistence.Ledger
}

func NewTournamentService(board *card.Board, ledger persistence.Ledger) *TournamentService {
	return &TournamentService{board: board, ledger: ledger}
}

func (s *TournamentService) Board() *card.Board {
	return s.board
}

// Open registers the tournament's card if needed and renders it.
func (s *TournamentService) Open(ctx context.Context, summary models.TournamentSummary) (*ViewContext, error) {
	c, err := s.board.Register(ctx, summary)
	if c == nil {
		return nil, err
	}
	vc := Render(c)
	return &vc, err
}

func (s *TournamentService) Card(tournament common.Address) (*card.Card, error) {
	c, ok := s.board.Get(tournament)
	if !ok {
		return nil, card.ErrCardNotFound
	}
	return c, nil
}

// View renders the current state of a registered card.
func (s *TournamentService) View(tournament common.Address) (*ViewContext, error) {
	c, err := s.Card(tournament)
	if err != nil {
		return nil, err
	}
	vc := Render(c)
	return &vc, nil
}

// Render builds the render context for one cycle. Only actions the role can take
// are listed.
func Render(c *card.Card) ViewContext {
	snap := c.Snapshot()
	v := snap.View

	vc := ViewContext{
		Tournament:  snap.Tournament,
		PrizePool:   units.FormatAmount(snap.Tournament.PrizePool),
		Account:     snap.Account,
		Role:        v.Role,
		Player:      v.Player,
		Organizer:   v.Organizer,
		CanRegister: v.Role.Is(models.RoleVisitor) || v.Role.Is(models.RolePlayer),
		CanCreate:   v.Role.Is(models.RoleOrganizer),
	}
	for _, a := range snap.Actions {
		for _, kind := range snap.Available {
			if a.Kind == kind {
				vc.Actions = append(vc.Actions, a)
			}
		}
	}
	return vc
}

func (s *TournamentService) Approve(ctx context.Context, tournament common.Address, amount string) (*card.Flight, error) {
	c, err := s.Card(tournament)
	if err != nil {
		return nil, err
	}
	return c.Approve(ctx, amount)
}

func (s *TournamentService) Participate(ctx context.Context, tournament common.Address, nickname, amount string) (*card.Flight, error) {
	c, err := s.Card(tournament)
	if err != nil {
		return nil, err
	}
	return c.Participate(ctx, nickname, amount)
}

func (s *TournamentService) GrantPrize(ctx context.Context, tournament common.Address) (*card.Flight, error) {
	c, err := s.Card(tournament)
	if err != nil {
		return nil, err
	}
	return c.GrantPrize(ctx)
}

// History lists the account's recorded writes, newest first.
func (s *TournamentService) History(ctx context.Context, account common.Address, limit int) ([]models.TxRecord, error) {
	if s.ledger == nil {
		return nil, ErrLedgerDisabled
	}
	return s.ledger.ListByAccount(ctx, account.Hex(), limit)
}
