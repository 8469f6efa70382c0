// session/session.go
package session

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Backend is the read-only chain connection; *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// MessageSigner signs an arbitrary message with personal_sign semantics.
type MessageSigner func(ctx context.Context, msg []byte) ([]byte, error)

// WalletSession 钱包会话. Replaced, never mutated, on account or network change.
type WalletSession struct {
	ID          string
	Address     common.Address
	ChainID     *big.Int
	Signer      *bind.TransactOpts // nil for a read-only session
	SignMessage MessageSigner
	Reader      Backend
	CreatedAt   time.Time
}

func NewWalletSession(address common.Address, chainID *big.Int, signer *bind.TransactOpts, signMessage MessageSigner, reader Backend) *WalletSession {
	return &WalletSession{
		ID:          uuid.New().String(),
		Address:     address,
		ChainID:     chainID,
		Signer:      signer,
		SignMessage: signMessage,
		Reader:      reader,
		CreatedAt:   time.Now(),
	}
}

func (s *WalletSession) GetID() string {
	return s.ID
}

// CanSign reports whether write handles can be built from this session.
func (s *WalletSession) CanSign() bool {
	return s != nil && s.Signer != nil
}

// SameIdentity is true when both sessions point at the same account on the same chain.
func SameIdentity(a, b *WalletSession) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Address != b.Address {
		return false
	}
	if a.ChainID == nil || b.ChainID == nil {
		return a.ChainID == b.ChainID
	}
	return a.ChainID.Cmp(b.ChainID) == 0
}

// Listener is told about every replacement; prev or next may be nil.
type Listener func(prev, next *WalletSession)

// Manager 持有当前钱包会话
type Manager struct {
	current   *WalletSession
	listeners map[string]Listener
	mutex     sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		listeners: make(map[string]Listener),
	}
}

func (m *Manager) Current() (*WalletSession, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current, m.current != nil
}

// Replace installs next as the active session and notifies listeners outside the lock.
func (m *Manager) Replace(next *WalletSession) {
	m.mutex.Lock()
	prev := m.current
	m.current = next
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mutex.Unlock()

	for _, l := range listeners {
		l(prev, next)
	}
}

func (m *Manager) Clear() {
	m.Replace(nil)
}

// Subscribe registers l and returns a function that removes it.
func (m *Manager) Subscribe(l Listener) func() {
	id := uuid.New().String()

	m.mutex.Lock()
	m.listeners[id] = l
	m.mutex.Unlock()

	return func() {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		delete(m.listeners, id)
	}
}
