package services

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/tournament-client/card"
	"github.com/wfunc/tournament-client/contracts"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/session"
	"github.com/wfunc/tournament-client/state"
)

var (
	account    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	tournament = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

// MockGateway serves fixed ids; writes are not available.
type MockGateway struct {
	organizerID int64
	playerID    int64
}

func (g *MockGateway) OrganizerRead() contracts.OrganizerReader               { return g }
func (g *MockGateway) TournamentRead(common.Address) contracts.TournamentReader { return g }
func (g *MockGateway) OrganizerNFTRead() contracts.OrganizerNFTReader           { return g }
func (g *MockGateway) TokenWrite() (contracts.TokenWriter, error)               { return nil, contracts.ErrNoSigner }
func (g *MockGateway) TournamentWrite(common.Address) (contracts.TournamentWriter, error) {
	return nil, contracts.ErrNoSigner
}

func (g *MockGateway) OrganizerID(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(g.organizerID), nil
}

func (g *MockGateway) PlayerID(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(g.playerID), nil
}

func (g *MockGateway) Player(context.Context, *big.Int) (*models.PlayerRecord, error) {
	return &models.PlayerRecord{Nickname: "Ann", Score: big.NewInt(12), RemainingLife: big.NewInt(1)}, nil
}

func (g *MockGateway) OrganizerDetail(context.Context, *big.Int) (*models.OrganizerProfile, error) {
	return &models.OrganizerProfile{Username: "crazygoat"}, nil
}

func newService(t *testing.T, gw *MockGateway) *TournamentService {
	t.Helper()
	board := card.NewBoard(card.Deps{}, func(*session.WalletSession) card.Gateway { return gw })
	require.NoError(t, board.Rebind(context.Background(), session.NewWalletSession(account, big.NewInt(1), nil, nil, nil)))
	return NewTournamentService(board, nil)
}

func summary() models.TournamentSummary {
	pool, _ := new(big.Int).SetString("2500000000000000000", 10)
	return models.TournamentSummary{Name: "Spring Cup", PrizePool: pool, ContractAddress: tournament}
}

func TestRender_Visitor(t *testing.T) {
	svc := newService(t, &MockGateway{})
	vc, err := svc.Open(context.Background(), summary())
	require.NoError(t, err)

	assert.Equal(t, models.RoleVisitor, vc.Role.Kind)
	assert.Equal(t, "2.5", vc.PrizePool)
	assert.Equal(t, account, vc.Account)
	require.Len(t, vc.Actions, 2)
	assert.Equal(t, state.ActionApprove, vc.Actions[0].Kind)
	assert.Equal(t, state.ActionParticipate, vc.Actions[1].Kind)
	assert.True(t, vc.CanRegister)
	assert.False(t, vc.CanCreate)
}

func TestRender_Player(t *testing.T) {
	svc := newService(t, &MockGateway{playerID: 1})
	vc, err := svc.Open(context.Background(), summary())
	require.NoError(t, err)

	assert.Equal(t, models.RolePlayer, vc.Role.Kind)
	require.NotNil(t, vc.Player)
	assert.Equal(t, "Ann", vc.Player.Nickname)
	assert.Empty(t, vc.Actions)
}

func TestRender_Organizer(t *testing.T) {
	svc := newService(t, &MockGateway{organizerID: 5})
	_, err := svc.Open(context.Background(), summary())
	require.NoError(t, err)

	vc, err := svc.View(tournament)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOrganizer, vc.Role.Kind)
	assert.Equal(t, "crazygoat", vc.Organizer.Username)
	require.Len(t, vc.Actions, 1)
	assert.Equal(t, state.ActionGrantPrize, vc.Actions[0].Kind)
	assert.False(t, vc.CanRegister)
	assert.True(t, vc.CanCreate)
}

func TestService_UnknownTournament(t *testing.T) {
	svc := newService(t, &MockGateway{})
	_, err := svc.View(tournament)
	assert.ErrorIs(t, err, card.ErrCardNotFound)
	_, err = svc.GrantPrize(context.Background(), tournament)
	assert.ErrorIs(t, err, card.ErrCardNotFound)
}

func TestHistory_Disabled(t *testing.T) {
	svc := newService(t, &MockGateway{})
	_, err := svc.History(context.Background(), account, 10)
	assert.ErrorIs(t, err, ErrLedgerDisabled)
}
