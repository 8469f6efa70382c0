package view

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/tournament-client/contracts"
	"github.com/wfunc/tournament-client/models"
)

var (
	account    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	tournament = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

type MockReader struct {
	player     *models.PlayerRecord
	playerErr  error
	profile    *models.OrganizerProfile
	profileErr error
	lastIndex  *big.Int
	lastOrgID  *big.Int
}

func (m *MockReader) TournamentRead(address common.Address) contracts.TournamentReader { return m }
func (m *MockReader) OrganizerNFTRead() contracts.OrganizerNFTReader             { return m }

func (m *MockReader) PlayerID(ctx context.Context, a common.Address) (*big.Int, error) {
	return nil, errors.New("not used")
}

func (m *MockReader) Player(ctx context.Context, index *big.Int) (*models.PlayerRecord, error) {
	m.lastIndex = index
	return m.player, m.playerErr
}

func (m *MockReader) OrganizerDetail(ctx context.Context, id *big.Int) (*models.OrganizerProfile, error) {
	m.lastOrgID = id
	return m.profile, m.profileErr
}

func TestLoad_Player(t *testing.T) {
	reader := &MockReader{player: &models.PlayerRecord{Nickname: "Ann", Score: big.NewInt(10), RemainingLife: big.NewInt(3)}}
	role := models.Role{Kind: models.RolePlayer, PlayerID: big.NewInt(4)}

	v, err := NewLoader(reader).Load(context.Background(), role, account, tournament)
	require.NoError(t, err)
	require.NotNil(t, v.Player)
	assert.Equal(t, "Ann", v.Player.Nickname)
	assert.Equal(t, int64(3), reader.lastIndex.Int64())
	assert.Nil(t, v.Organizer)
	assert.True(t, v.Loaded())
}

func TestLoad_Organizer(t *testing.T) {
	reader := &MockReader{profile: &models.OrganizerProfile{Username: "crazygoat", Balance: big.NewInt(1)}}
	role := models.Role{Kind: models.RoleOrganizer, OrganizerID: big.NewInt(5)}

	v, err := NewLoader(reader).Load(context.Background(), role, account, tournament)
	require.NoError(t, err)
	require.NotNil(t, v.Organizer)
	assert.Equal(t, "crazygoat", v.Organizer.Username)
	assert.Equal(t, int64(5), reader.lastOrgID.Int64())
	assert.Nil(t, v.Player)
}

func TestLoad_EmptyRecordIsNotAnError(t *testing.T) {
	reader := &MockReader{profile: &models.OrganizerProfile{}}
	role := models.Role{Kind: models.RoleOrganizer, OrganizerID: big.NewInt(5)}

	v, err := NewLoader(reader).Load(context.Background(), role, account, tournament)
	require.NoError(t, err)
	assert.Nil(t, v.Organizer)
	assert.False(t, v.Loaded())
}

func TestLoad_RevertIsNotAnError(t *testing.T) {
	reader := &MockReader{playerErr: &contracts.RevertError{Reason: "index out of bounds", Err: contracts.ErrContractRevert}}
	role := models.Role{Kind: models.RolePlayer, PlayerID: big.NewInt(1)}

	v, err := NewLoader(reader).Load(context.Background(), role, account, tournament)
	require.NoError(t, err)
	assert.Nil(t, v.Player)
}

func TestLoad_TransportErrorReturned(t *testing.T) {
	boom := errors.New("connection refused")
	reader := &MockReader{playerErr: boom}
	role := models.Role{Kind: models.RolePlayer, PlayerID: big.NewInt(1)}

	_, err := NewLoader(reader).Load(context.Background(), role, account, tournament)
	assert.ErrorIs(t, err, boom)
}

func TestLoad_VisitorReadsNothing(t *testing.T) {
	reader := &MockReader{}
	v, err := NewLoader(reader).Load(context.Background(), models.Visitor(), account, tournament)
	require.NoError(t, err)
	assert.Nil(t, reader.lastIndex)
	assert.Nil(t, reader.lastOrgID)
	assert.True(t, v.Loaded())
}
