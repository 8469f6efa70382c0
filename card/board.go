package card

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/session"
)

var ErrCardNotFound = errors.New("card not found")

// GatewayFactory builds the gateway a session should use; nil means read-only.
type GatewayFactory func(sess *session.WalletSession) Gateway

// Board 卡片管理器: every tournament card on screen, bound to the current session.
type Board struct {
	deps    Deps
	factory GatewayFactory

	mutex   sync.RWMutex
	cards   map[common.Address]*Card
	current *session.WalletSession
}

func NewBoard(deps Deps, factory GatewayFactory) *Board {
	return &Board{
		deps:    deps,
		factory: factory,
		cards:   make(map[common.Address]*Card),
	}
}

func (b *Board) binding() (common.Address, Gateway) {
	b.mutex.RLock()
	sess := b.current
	b.mutex.RUnlock()

	var account common.Address
	if sess != nil {
		account = sess.Address
	}
	return account, b.factory(sess)
}

// Register adds a card for summary, or returns the existing one, bound to the
// current session.
func (b *Board) Register(ctx context.Context, summary models.TournamentSummary) (*Card, error) {
	b.mutex.Lock()
	if c, ok := b.cards[summary.ContractAddress]; ok {
		b.mutex.Unlock()
		return c, nil
	}
	c := New(summary, b.deps)
	b.cards[summary.ContractAddress] = c
	b.mutex.Unlock()

	account, gw := b.binding()
	return c, c.Bind(ctx, account, gw)
}

// Remove forgets the card. Flights already started still finish.
func (b *Board) Remove(address common.Address) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.cards, address)
}

func (b *Board) Get(address common.Address) (*Card, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	c, ok := b.cards[address]
	return c, ok
}

func (b *Board) Cards() []*Card {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	cards := make([]*Card, 0, len(b.cards))
	for _, c := range b.cards {
		cards = append(cards, c)
	}
	return cards
}

func (b *Board) Session() *session.WalletSession {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.current
}

// Rebind switches every card to sess and re-resolves them concurrently.
func (b *Board) Rebind(ctx context.Context, sess *session.WalletSession) error {
	b.mutex.Lock()
	b.current = sess
	b.mutex.Unlock()

	account, gw := b.binding()
	// one card failing to resolve must not cancel the others
	var g errgroup.Group
	for _, c := range b.Cards() {
		c := c
		g.Go(func() error {
			return c.Bind(ctx, account, gw)
		})
	}
	return g.Wait()
}

// OnSessionChange is a session.Listener.
func (b *Board) OnSessionChange(prev, next *session.WalletSession) {
	if err := b.Rebind(context.Background(), next); err != nil {
		logger.Log.Warnf("Rebinding cards after session change: %v", err)
	}
}

// Wait blocks until every card's flights have resolved.
func (b *Board) Wait() {
	for _, c := range b.Cards() {
		c.Wait()
	}
}
