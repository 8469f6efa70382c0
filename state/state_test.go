package state

import (
	"testing"
)

// recordingState counts enter/exit calls so transition ordering can be checked.
type recordingState struct {
	id     Phase
	log    *[]string
	enters int
	exits  int
}

func (s *recordingState) OnEnter() {
	s.enters++
	*s.log = append(*s.log, "enter:"+string(s.id))
}

func (s *recordingState) OnExit() {
	s.exits++
	*s.log = append(*s.log, "exit:"+string(s.id))
}

func (s *recordingState) GetID() string {
	return string(s.id)
}

func newStates(log *[]string, ids ...Phase) map[Phase]*recordingState {
	states := make(map[Phase]*recordingState, len(ids))
	for _, id := range ids {
		states[id] = &recordingState{id: id, log: log}
	}
	return states
}

func TestStateMachine_EntersInitialState(t *testing.T) {
	var log []string
	s := newStates(&log, PhaseIdle)
	sm := NewBaseStateMachine(s[PhaseIdle])

	if s[PhaseIdle].enters != 1 {
		t.Errorf("initial state entered %d times, want 1", s[PhaseIdle].enters)
	}
	if sm.GetCurrentState() != s[PhaseIdle] {
		t.Error("GetCurrentState should return the initial state")
	}
}

func TestStateMachine_ExitBeforeEnter(t *testing.T) {
	var log []string
	s := newStates(&log, PhaseIdle, PhaseBusy)
	sm := NewBaseStateMachine(s[PhaseIdle])
	log = nil

	if err := sm.ChangeState(s[PhaseBusy]); err != nil {
		t.Fatalf("ChangeState: %v", err)
	}
	want := []string{"exit:idle", "enter:busy"}
	if len(log) != len(want) || log[0] != want[0] || log[1] != want[1] {
		t.Errorf("transition log = %v, want %v", log, want)
	}
	if sm.GetCurrentState().GetID() != string(PhaseBusy) {
		t.Errorf("current state = %s, want busy", sm.GetCurrentState().GetID())
	}
}

func TestStateMachine_Conditions(t *testing.T) {
	tests := []struct {
		name      string
		condition func() bool
		wantErr   error
	}{
		{"no condition", nil, nil},
		{"condition holds", func() bool { return true }, nil},
		{"condition fails", func() bool { return false }, ErrTransitionNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log []string
			s := newStates(&log, PhaseBusy, PhaseConfirmed)
			sm := NewBaseStateMachine(s[PhaseBusy])
			sm.AddTransition(s[PhaseBusy], s[PhaseConfirmed], tt.condition)

			err := sm.ChangeState(s[PhaseConfirmed])
			if err != tt.wantErr {
				t.Fatalf("ChangeState error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if s[PhaseBusy].exits != 0 {
					t.Error("a refused transition must not exit the current state")
				}
				if sm.GetCurrentState() != s[PhaseBusy] {
					t.Error("a refused transition must keep the current state")
				}
			}
		})
	}
}

func TestStrictStateMachine_RejectsUnregistered(t *testing.T) {
	var log []string
	s := newStates(&log, PhaseIdle, PhaseBusy, PhaseConfirmed)
	sm := NewStrictStateMachine(s[PhaseIdle])
	sm.AddTransition(s[PhaseIdle], s[PhaseBusy], nil)

	// idle cannot jump straight to an outcome
	if err := sm.ChangeState(s[PhaseConfirmed]); err != ErrTransitionNotAllowed {
		t.Fatalf("idle->confirmed: got %v, want ErrTransitionNotAllowed", err)
	}
	if err := sm.ChangeState(s[PhaseBusy]); err != nil {
		t.Fatalf("idle->busy: %v", err)
	}
	if err := sm.ChangeState(s[PhaseIdle]); err != ErrTransitionNotAllowed {
		t.Fatalf("busy->idle: got %v, want ErrTransitionNotAllowed", err)
	}
}

func TestStateMachine_AddTransitionReplacesGuard(t *testing.T) {
	var log []string
	s := newStates(&log, PhaseBusy, PhaseReverted)
	sm := NewStrictStateMachine(s[PhaseBusy])
	sm.AddTransition(s[PhaseBusy], s[PhaseReverted], func() bool { return false })
	sm.AddTransition(s[PhaseBusy], s[PhaseReverted], nil)

	if err := sm.ChangeState(s[PhaseReverted]); err != nil {
		t.Fatalf("busy->reverted after replacing the guard: %v", err)
	}
}
