package state

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ActionKind names one write a tournament card can perform.
type ActionKind string

const (
	ActionApprove     ActionKind = "approve"
	ActionParticipate ActionKind = "participate"
	ActionGrantPrize  ActionKind = "grant_prize"
)

// Phase of a pending action: Idle -> Busy -> {Confirmed, Reverted, Rejected} -> Idle.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseBusy      Phase = "busy"
	PhaseConfirmed Phase = "confirmed"
	PhaseReverted  Phase = "reverted"
	PhaseRejected  Phase = "rejected"
)

func (p Phase) Terminal() bool {
	return p == PhaseConfirmed || p == PhaseReverted || p == PhaseRejected
}

var ErrActionInFlight = errors.New("action already in flight")

// Observer sees every phase a pending action enters. It runs with the action
// locked and must not call back into it.
type Observer func(kind ActionKind, phase Phase)

type phaseState struct {
	id      Phase
	onEnter func(Phase)
}

func (s *phaseState) OnEnter() {
	if s.onEnter != nil {
		s.onEnter(s.id)
	}
}

func (s *phaseState) OnExit() {}

func (s *phaseState) GetID() string {
	return string(s.id)
}

// Snapshot is the button-facing view of a pending action.
type Snapshot struct {
	Kind        ActionKind `json:"kind"`
	Phase       Phase      `json:"phase"`
	Busy        bool       `json:"busy"`
	Disabled    bool       `json:"disabled"`
	LastOutcome Phase      `json:"last_outcome,omitempty"`
	Since       time.Time  `json:"since"`
}

// PendingAction guards one in-flight write per (card, kind). Begin is the only way
// into Busy and fails while an earlier submission is unresolved.
type PendingAction struct {
	Kind ActionKind

	machine *BaseStateMachine
	phases  map[Phase]*phaseState
	mutex   sync.Mutex
	last    Phase
	since   time.Time
}

func NewPendingAction(kind ActionKind, observer Observer) *PendingAction {
	a := &PendingAction{
		Kind:   kind,
		phases: make(map[Phase]*phaseState),
		since:  time.Now(),
	}
	onEnter := func(p Phase) {
		a.since = time.Now()
		if observer != nil {
			observer(kind, p)
		}
	}
	for _, p := range []Phase{PhaseIdle, PhaseBusy, PhaseConfirmed, PhaseReverted, PhaseRejected} {
		a.phases[p] = &phaseState{id: p, onEnter: onEnter}
	}

	// The initial OnEnter would report Idle before anyone asked; start quiet.
	idle := a.phases[PhaseIdle]
	idle.onEnter = nil
	a.machine = NewStrictStateMachine(idle)
	idle.onEnter = onEnter

	a.machine.AddTransition(idle, a.phases[PhaseBusy], nil)
	for _, outcome := range []Phase{PhaseConfirmed, PhaseReverted, PhaseRejected} {
		a.machine.AddTransition(a.phases[PhaseBusy], a.phases[outcome], nil)
		a.machine.AddTransition(a.phases[outcome], idle, nil)
	}
	return a
}

func (a *PendingAction) phase() Phase {
	return Phase(a.machine.GetCurrentState().GetID())
}

// Begin moves Idle to Busy. It returns ErrActionInFlight if the action is not Idle.
func (a *PendingAction) Begin() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.phase() != PhaseIdle {
		return ErrActionInFlight
	}
	return a.machine.ChangeState(a.phases[PhaseBusy])
}

// Finish records the outcome and returns the action to Idle.
func (a *PendingAction) Finish(outcome Phase) error {
	if !outcome.Terminal() {
		return fmt.Errorf("state: %q is not an outcome", outcome)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if err := a.machine.ChangeState(a.phases[outcome]); err != nil {
		return fmt.Errorf("state: %s cannot finish from %s: %w", a.Kind, a.phase(), err)
	}
	a.last = outcome
	return a.machine.ChangeState(a.phases[PhaseIdle])
}

func (a *PendingAction) Busy() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.phase() == PhaseBusy
}

func (a *PendingAction) Snapshot() Snapshot {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	p := a.phase()
	return Snapshot{
		Kind:        a.Kind,
		Phase:       p,
		Busy:        p == PhaseBusy,
		Disabled:    p != PhaseIdle,
		LastOutcome: a.last,
		Since:       a.since,
	}
}
