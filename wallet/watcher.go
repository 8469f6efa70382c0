package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/session"
	"github.com/wfunc/tournament-client/timer"
)

// Watcher polls the wallet for account or network changes and replaces the active
// session when either moves. Browser wallets push these as events; a local
// provider has to be asked.
type Watcher struct {
	connector *Connector
	sessions  *session.Manager
	scheduler *timer.Scheduler
	interval  time.Duration

	mutex  sync.Mutex
	taskID int64
}

func NewWatcher(connector *Connector, sessions *session.Manager, scheduler *timer.Scheduler, interval time.Duration) *Watcher {
	return &Watcher{
		connector: connector,
		sessions:  sessions,
		scheduler: scheduler,
		interval:  interval,
	}
}

func (w *Watcher) Start() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.taskID != 0 {
		return
	}
	w.taskID = w.scheduler.Every(w.interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.interval)
		defer cancel()
		if err := w.Check(ctx); err != nil {
			logger.Log.Warnf("Wallet watcher check failed: %v", err)
		}
	})
}

func (w *Watcher) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.taskID != 0 {
		w.scheduler.Cancel(w.taskID)
		w.taskID = 0
	}
}

// Check compares the wallet's current account and chain with the active session.
func (w *Watcher) Check(ctx context.Context) error {
	current, ok := w.sessions.Current()
	provider := w.connector.Provider()
	if !ok || provider == nil {
		return nil
	}

	accounts, err := provider.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		logger.Log.Infof("Wallet disconnected account %s, dropping session %s", current.Address.Hex(), current.GetID())
		w.sessions.Clear()
		return nil
	}

	chainID, err := provider.ChainID(ctx)
	if err != nil {
		return err
	}
	if accounts[0] == current.Address && current.ChainID != nil && chainID.Cmp(current.ChainID) == 0 {
		return nil
	}

	next, err := w.connector.sessionFor(ctx, accounts[0])
	if err != nil {
		return err
	}
	logger.Log.Infof("Wallet changed from %s@%s to %s@%s", current.Address.Hex(), current.ChainID, next.Address.Hex(), next.ChainID)
	w.sessions.Replace(next)
	return nil
}
