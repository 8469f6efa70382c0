// Package state holds the transition machine behind every card action button and
// the pending-action phases built on it.
package state

import (
	"errors"
	"sync"
)

// StateMachine moves between States along registered transitions.
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// State is one node of the machine, such as a pending action's Busy phase.
// OnEnter and OnExit run with the machine locked.
type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// BaseStateMachine keys transitions by state id: from -> to -> guard. A nil guard
// always passes.
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool
	// strict refuses any transition that was never registered.
	strict bool
	mutex  sync.RWMutex
}

// NewBaseStateMachine allows any transition unless a registered guard says no.
func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// NewStrictStateMachine only allows transitions registered with AddTransition.
// Pending actions use it so that Idle can never jump straight to an outcome.
func NewStrictStateMachine(initialState State) *BaseStateMachine {
	machine := NewBaseStateMachine(initialState)
	machine.strict = true
	return machine
}

func (sm *BaseStateMachine) allowed(from, to string) bool {
	guard, registered := sm.transitions[from][to]
	switch {
	case !registered:
		return !sm.strict
	case guard == nil:
		return true
	default:
		return guard()
	}
}

// ChangeState exits the current state and enters next. A refused transition
// leaves the machine untouched and returns ErrTransitionNotAllowed.
func (sm *BaseStateMachine) ChangeState(next State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if !sm.allowed(sm.currentState.GetID(), next.GetID()) {
		return ErrTransitionNotAllowed
	}

	sm.currentState.OnExit()
	sm.currentState = next
	next.OnEnter()
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// AddTransition registers from -> to, replacing any earlier guard for the pair.
func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	if sm.transitions[fromID] == nil {
		sm.transitions[fromID] = make(map[string]func() bool)
	}
	sm.transitions[fromID][to.GetID()] = condition
	return nil
}
