package card

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wfunc/tournament-client/state"
)

// Flight is one started write. It resolves once the outcome is known and the card
// is back to Idle.
type Flight struct {
	Kind state.ActionKind

	done    chan struct{}
	mutex   sync.Mutex
	hash    common.Hash
	outcome state.Phase
	err     error
}

func newFlight(kind state.ActionKind) *Flight {
	return &Flight{Kind: kind, done: make(chan struct{})}
}

func (f *Flight) setHash(hash common.Hash) {
	f.mutex.Lock()
	f.hash = hash
	f.mutex.Unlock()
}

func (f *Flight) finish(outcome state.Phase, err error) {
	f.mutex.Lock()
	f.outcome = outcome
	f.err = err
	f.mutex.Unlock()
	close(f.done)
}

func (f *Flight) Done() <-chan struct{} {
	return f.done
}

// Hash is zero until the wallet has handed the transaction to the node, and stays
// zero if it never did.
func (f *Flight) Hash() common.Hash {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.hash
}

func (f *Flight) Outcome() state.Phase {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.outcome
}

func (f *Flight) Err() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.err
}

// Wait blocks until the flight resolves or ctx ends. Ending ctx does not cancel
// the flight.
func (f *Flight) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
