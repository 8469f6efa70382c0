// Package card orchestrates the writes a tournament card offers: approving an
// allowance, joining, and granting the prize.
package card

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wfunc/tournament-client/contracts"
	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/monitor"
	"github.com/wfunc/tournament-client/notify"
	"github.com/wfunc/tournament-client/persistence"
	"github.com/wfunc/tournament-client/role"
	"github.com/wfunc/tournament-client/state"
	"github.com/wfunc/tournament-client/units"
	"github.com/wfunc/tournament-client/view"
	"github.com/wfunc/tournament-client/wallet"
)

var (
	ErrActionUnavailable = errors.New("action not available for the current role")
	ErrNicknameRequired  = errors.New("nickname is required")
)

const (
	MsgApproved     = "Successfully increased allowance"
	MsgJoined       = "Successfully joined tournament"
	MsgPrizeGranted = "Successfully granted prize to the winner!"

	RouteTournaments = "/tournaments"
)

// Gateway is everything a card reads and writes through.
type Gateway interface {
	role.Reader
	view.Reader
	TokenWrite() (contracts.TokenWriter, error)
	TournamentWrite(address common.Address) (contracts.TournamentWriter, error)
}

// Deps are shared by every card on a board. Ledger and Monitor may be nil.
type Deps struct {
	Sink    notify.Sink
	Ledger  persistence.Ledger
	Monitor *monitor.Monitor
}

// Snapshot is the card as a front-end renders it.
type Snapshot struct {
	Tournament models.TournamentSummary `json:"tournament"`
	Account    common.Address           `json:"account"`
	View       view.View                `json:"view"`
	Available  []state.ActionKind       `json:"available"`
	Actions    []state.Snapshot         `json:"actions"`
}

var actionOrder = []state.ActionKind{state.ActionApprove, state.ActionParticipate, state.ActionGrantPrize}

// Card 锦标赛卡片: one tournament seen by one account.
type Card struct {
	Tournament models.TournamentSummary

	deps    Deps
	actions map[state.ActionKind]*state.PendingAction
	flights sync.WaitGroup

	mutex   sync.RWMutex
	account common.Address
	gateway Gateway
	view    view.View
}

func New(summary models.TournamentSummary, deps Deps) *Card {
	if deps.Sink == nil {
		deps.Sink = notify.LogSink{}
	}
	c := &Card{
		Tournament: summary,
		deps:       deps,
		actions:    make(map[state.ActionKind]*state.PendingAction),
		view:       view.View{Role: models.Visitor()},
	}
	address := summary.ContractAddress.Hex()
	for _, kind := range actionOrder {
		c.actions[kind] = state.NewPendingAction(kind, func(kind state.ActionKind, p state.Phase) {
			logger.Log.Debugf("Card %s: %s -> %s", address, kind, p)
		})
	}
	return c
}

func (c *Card) Address() common.Address {
	return c.Tournament.ContractAddress
}

// Bind points the card at a new account and gateway, then re-resolves the role and
// reloads the view. A failed resolution leaves the card Unresolved, with no actions.
func (c *Card) Bind(ctx context.Context, account common.Address, gw Gateway) error {
	c.mutex.Lock()
	c.account = account
	c.gateway = gw
	c.view = view.View{Role: models.Visitor()}
	c.mutex.Unlock()

	return c.Refresh(ctx)
}

// Refresh re-resolves the role and reloads the records for the bound account.
func (c *Card) Refresh(ctx context.Context) error {
	c.mutex.RLock()
	account, gw := c.account, c.gateway
	c.mutex.RUnlock()

	if gw == nil || account == (common.Address{}) {
		c.setView(account, view.View{Role: models.Visitor()})
		c.publish()
		return nil
	}

	r, err := role.NewResolver(gw, c.deps.Monitor).Resolve(ctx, account, c.Address())
	if err != nil {
		logger.Log.Warnf("Card %s: resolve role for %s: %v", c.Address().Hex(), account.Hex(), err)
		c.setView(account, view.View{Role: r})
		c.publish()
		return err
	}

	v, err := view.NewLoader(gw).Load(ctx, r, account, c.Address())
	c.setView(account, v)
	c.publish()
	if err != nil {
		logger.Log.Warnf("Card %s: load view for %s: %v", c.Address().Hex(), account.Hex(), err)
	}
	return err
}

// setView drops results computed for an account that is no longer bound.
func (c *Card) setView(account common.Address, v view.View) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.account == account {
		c.view = v
	}
}

func (c *Card) View() view.View {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.view
}

func (c *Card) Role() models.Role {
	return c.View().Role
}

// Available lists the actions the current role renders.
func (c *Card) Available() []state.ActionKind {
	return availableFor(c.Role())
}

func availableFor(r models.Role) []state.ActionKind {
	switch r.Kind {
	case models.RoleVisitor:
		return []state.ActionKind{state.ActionApprove, state.ActionParticipate}
	case models.RoleOrganizer:
		return []state.ActionKind{state.ActionGrantPrize}
	default:
		return nil
	}
}

func (c *Card) available(kind state.ActionKind) bool {
	for _, k := range c.Available() {
		if k == kind {
			return true
		}
	}
	return false
}

func (c *Card) Action(kind state.ActionKind) state.Snapshot {
	return c.actions[kind].Snapshot()
}

func (c *Card) Snapshot() Snapshot {
	c.mutex.RLock()
	s := Snapshot{
		Tournament: c.Tournament,
		Account:    c.account,
		View:       c.view,
	}
	c.mutex.RUnlock()

	s.Available = availableFor(s.View.Role)
	for _, kind := range actionOrder {
		s.Actions = append(s.Actions, c.actions[kind].Snapshot())
	}
	return s
}

func (c *Card) publish() {
	if p, ok := c.deps.Sink.(notify.StatePublisher); ok {
		p.PublishState(c.Address(), c.Snapshot())
	}
}

// Wait blocks until every started flight has resolved.
func (c *Card) Wait() {
	c.flights.Wait()
}

// Approve raises the tournament's allowance on the token by amountText tokens.
func (c *Card) Approve(ctx context.Context, amountText string) (*Flight, error) {
	if !c.available(state.ActionApprove) {
		return nil, ErrActionUnavailable
	}
	amount, err := units.ParseAmount(amountText)
	if err != nil {
		return nil, c.reject(state.ActionApprove, err)
	}
	writer, err := c.tokenWriter()
	if err != nil {
		return nil, c.reject(state.ActionApprove, err)
	}

	spender := c.Address()
	return c.start(flow{
		kind:    state.ActionApprove,
		amount:  amount,
		success: MsgApproved,
		submit: func(ctx context.Context) (contracts.Pending, error) {
			return writer.IncreaseAllowance(ctx, spender, amount)
		},
	})
}

// Participate joins the tournament under nickname, staking amountText tokens. The
// allowance is not checked first; an insufficient one reverts on chain.
func (c *Card) Participate(ctx context.Context, nickname, amountText string) (*Flight, error) {
	if !c.available(state.ActionParticipate) {
		return nil, ErrActionUnavailable
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, c.reject(state.ActionParticipate, ErrNicknameRequired)
	}
	amount, err := units.ParseAmount(amountText)
	if err != nil {
		return nil, c.reject(state.ActionParticipate, err)
	}
	writer, err := c.tournamentWriter()
	if err != nil {
		return nil, c.reject(state.ActionParticipate, err)
	}

	return c.start(flow{
		kind:    state.ActionParticipate,
		amount:  amount,
		success: MsgJoined,
		submit: func(ctx context.Context) (contracts.Pending, error) {
			return writer.Participate(ctx, nickname, amount)
		},
		onSuccess: func(ctx context.Context) {
			if err := c.Refresh(ctx); err != nil {
				logger.Log.Warnf("Card %s: refresh after joining: %v", c.Address().Hex(), err)
			}
			c.deps.Sink.Navigate(models.Navigation{Route: RouteTournaments, Reload: true})
		},
	})
}

// GrantPrize asks the tournament to pay out its winner. Organizers only.
func (c *Card) GrantPrize(ctx context.Context) (*Flight, error) {
	if !c.available(state.ActionGrantPrize) {
		return nil, ErrActionUnavailable
	}
	writer, err := c.tournamentWriter()
	if err != nil {
		return nil, c.reject(state.ActionGrantPrize, err)
	}

	return c.start(flow{
		kind:    state.ActionGrantPrize,
		success: MsgPrizeGranted,
		submit: func(ctx context.Context) (contracts.Pending, error) {
			return writer.GrantPrize(ctx)
		},
	})
}

func (c *Card) tokenWriter() (contracts.TokenWriter, error) {
	c.mutex.RLock()
	gw := c.gateway
	c.mutex.RUnlock()
	if gw == nil {
		return nil, contracts.ErrNoSigner
	}
	return gw.TokenWrite()
}

func (c *Card) tournamentWriter() (contracts.TournamentWriter, error) {
	c.mutex.RLock()
	gw := c.gateway
	c.mutex.RUnlock()
	if gw == nil {
		return nil, contracts.ErrNoSigner
	}
	return gw.TournamentWrite(c.Address())
}

// reject reports an action that failed before anything was submitted.
func (c *Card) reject(kind state.ActionKind, err error) error {
	c.deps.Sink.Notify(models.Notification{
		Kind:       models.NotificationFailure,
		Content:    failureText(kind, err),
		Tournament: c.Address(),
	})
	return err
}

type flow struct {
	kind      state.ActionKind
	amount    *big.Int
	success   string
	submit    func(ctx context.Context) (contracts.Pending, error)
	onSuccess func(ctx context.Context)
}

// start claims the action and runs the flow in the background. The flight is
// detached from the caller's context; nothing cancels a submitted write.
func (c *Card) start(fl flow) (*Flight, error) {
	if err := c.actions[fl.kind].Begin(); err != nil {
		return nil, err
	}
	c.publish()

	c.mutex.RLock()
	account := c.account
	c.mutex.RUnlock()

	f := newFlight(fl.kind)
	c.flights.Add(1)
	go func() {
		defer c.flights.Done()
		c.run(context.Background(), f, fl, account)
	}()
	return f, nil
}

func (c *Card) run(ctx context.Context, f *Flight, fl flow, account common.Address) {
	started := time.Now()
	kind := string(fl.kind)

	pending, err := fl.submit(ctx)
	if err == nil {
		f.setHash(pending.Hash())
		c.deps.Monitor.IncSubmitted(kind)
		c.recordSubmitted(ctx, fl, account, pending.Hash())
		err = pending.Wait(ctx)
	}

	outcome := outcomeOf(err)
	c.deps.Monitor.ObserveOutcome(kind, string(outcome), time.Since(started))
	if pending != nil {
		c.recordOutcome(ctx, pending.Hash(), outcome, err)
	}

	if ferr := c.actions[fl.kind].Finish(outcome); ferr != nil {
		logger.Log.Errorf("Card %s: %v", c.Address().Hex(), ferr)
	}

	n := models.Notification{Tournament: c.Address()}
	if pending != nil {
		n.TxHash = pending.Hash().Hex()
	}
	if err != nil {
		logger.Log.Warnf("Card %s: %s by %s ended %s: %v", c.Address().Hex(), kind, account.Hex(), outcome, err)
		n.Kind = models.NotificationFailure
		n.Content = failureText(fl.kind, err)
	} else {
		logger.Log.Infof("Card %s: %s by %s confirmed, tx %s", c.Address().Hex(), kind, account.Hex(), n.TxHash)
		n.Kind = models.NotificationSuccess
		n.Content = fl.success
	}
	c.deps.Sink.Notify(n)

	if err == nil && fl.onSuccess != nil {
		fl.onSuccess(ctx)
	}
	c.publish()
	f.finish(outcome, err)
}

func outcomeOf(err error) state.Phase {
	switch {
	case err == nil:
		return state.PhaseConfirmed
	case wallet.IsUserRejected(err):
		return state.PhaseRejected
	default:
		return state.PhaseReverted
	}
}

func failureText(kind state.ActionKind, err error) string {
	var what string
	switch kind {
	case state.ActionApprove:
		what = "increase allowance"
	case state.ActionParticipate:
		what = "join tournament"
	case state.ActionGrantPrize:
		what = "grant prize"
	}
	return fmt.Sprintf("Failed to %s: %v", what, err)
}
