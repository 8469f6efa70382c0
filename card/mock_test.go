package card

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wfunc/tournament-client/contracts"
	"github.com/wfunc/tournament-client/models"
)

var (
	account    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	tournament = common.HexToAddress("0x4444444444444444444444444444444444444444")
	summary    = models.TournamentSummary{Name: "Spring Cup", ContractAddress: tournament}
)

// MockPending resolves when release is closed, returning err.
type MockPending struct {
	hash    common.Hash
	release chan struct{}
	err     error
}

func (p *MockPending) Hash() common.Hash { return p.hash }

func (p *MockPending) Wait(ctx context.Context) error {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}

// MockGateway plays every contract. Writes are counted and their pending
// transactions share one release channel and one outcome.
type MockGateway struct {
	mu          sync.Mutex
	organizerID *big.Int
	playerID    *big.Int
	player      *models.PlayerRecord
	profile     *models.OrganizerProfile
	readOnly    bool
	orgErr      error
	playerErr   error

	submitErr error
	waitErr   error
	release   chan struct{}
	// joinAs is the player id assigned once a participate confirms.
	joinAs *big.Int

	approveCalls     int
	participateCalls int
	grantCalls       int
	lastSpender      common.Address
	lastAmount       *big.Int
	lastNickname     string
}

func newMockGateway() *MockGateway {
	return &MockGateway{organizerID: big.NewInt(0), playerID: big.NewInt(0)}
}

func (g *MockGateway) OrganizerRead() contracts.OrganizerReader               { return g }
func (g *MockGateway) TournamentRead(common.Address) contracts.TournamentReader { return g }
func (g *MockGateway) OrganizerNFTRead() contracts.OrganizerNFTReader           { return g }

func (g *MockGateway) TokenWrite() (contracts.TokenWriter, error) {
	if g.readOnly {
		return nil, contracts.ErrNoSigner
	}
	return g, nil
}

func (g *MockGateway) TournamentWrite(common.Address) (contracts.TournamentWriter, error) {
	if g.readOnly {
		return nil, contracts.ErrNoSigner
	}
	return g, nil
}

func (g *MockGateway) OrganizerID(ctx context.Context, a common.Address) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.organizerID, g.orgErr
}

func (g *MockGateway) PlayerID(ctx context.Context, a common.Address) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playerID, g.playerErr
}

func (g *MockGateway) Player(ctx context.Context, index *big.Int) (*models.PlayerRecord, error) {
	if g.player == nil {
		return nil, errors.New("no player")
	}
	return g.player, nil
}

func (g *MockGateway) OrganizerDetail(ctx context.Context, id *big.Int) (*models.OrganizerProfile, error) {
	return g.profile, nil
}

func (g *MockGateway) pending(n int, onConfirm func()) (contracts.Pending, error) {
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	p := &MockPending{hash: common.BigToHash(big.NewInt(int64(n))), release: g.release, err: g.waitErr}
	if onConfirm != nil && g.waitErr == nil {
		return &confirmHook{MockPending: p, hook: onConfirm}, nil
	}
	return p, nil
}

type confirmHook struct {
	*MockPending
	hook func()
}

func (c *confirmHook) Wait(ctx context.Context) error {
	err := c.MockPending.Wait(ctx)
	if err == nil {
		c.hook()
	}
	return err
}

func (g *MockGateway) IncreaseAllowance(ctx context.Context, spender common.Address, amount *big.Int) (contracts.Pending, error) {
	g.mu.Lock()
	g.approveCalls++
	g.lastSpender = spender
	g.lastAmount = amount
	n := g.approveCalls
	g.mu.Unlock()
	return g.pending(n, nil)
}

func (g *MockGateway) Participate(ctx context.Context, nickname string, amount *big.Int) (contracts.Pending, error) {
	g.mu.Lock()
	g.participateCalls++
	g.lastNickname = nickname
	g.lastAmount = amount
	n := 100 + g.participateCalls
	g.mu.Unlock()
	return g.pending(n, func() {
		if g.joinAs != nil {
			g.mu.Lock()
			g.playerID = g.joinAs
			g.mu.Unlock()
		}
	})
}

func (g *MockGateway) GrantPrize(ctx context.Context) (contracts.Pending, error) {
	g.mu.Lock()
	g.grantCalls++
	n := 200 + g.grantCalls
	g.mu.Unlock()
	return g.pending(n, nil)
}

func (g *MockGateway) calls() (approve, participate, grant int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.approveCalls, g.participateCalls, g.grantCalls
}

// MockSink records everything it is told.
type MockSink struct {
	mu            sync.Mutex
	notifications []models.Notification
	navigations   []models.Navigation
	states        int
}

func (s *MockSink) Notify(n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
}

func (s *MockSink) Navigate(nav models.Navigation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigations = append(s.navigations, nav)
}

func (s *MockSink) PublishState(common.Address, interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states++
}

func (s *MockSink) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.notifications...)
}

func (s *MockSink) Navigations() []models.Navigation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Navigation(nil), s.navigations...)
}

// MockLedger keeps records in memory.
type MockLedger struct {
	mu       sync.Mutex
	records  map[string]models.TxRecord
	outcomes map[string]models.TxStatus
}

func newMockLedger() *MockLedger {
	return &MockLedger{records: make(map[string]models.TxRecord), outcomes: make(map[string]models.TxStatus)}
}

func (l *MockLedger) RecordSubmitted(ctx context.Context, r models.TxRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[r.Hash] = r
	return nil
}

func (l *MockLedger) RecordOutcome(ctx context.Context, hash string, status models.TxStatus, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes[hash] = status
	return nil
}

func (l *MockLedger) Get(ctx context.Context, hash string) (*models.TxRecord, error) {
	return nil, errors.New("not used")
}

func (l *MockLedger) ListByAccount(ctx context.Context, account string, limit int) ([]models.TxRecord, error) {
	return nil, errors.New("not used")
}

func (l *MockLedger) Close() error { return nil }
