package orchestrator

import (
	stderrors "errors"
	"fmt"
)

// State is a step of the two-phase turn protocol.
type State string

const (
	StateAwaitingFirstResponse    State = "awaiting_first_response"
	StateTextReply                State = "text_reply"
	StateFunctionRequested        State = "function_requested"
	StateDispatching              State = "dispatching"
	StateAwaitingFollowupResponse State = "awaiting_followup_response"
	StateFailed                   State = "failed"
)

// ErrIllegalTransition is returned when the protocol would move between two
// states that are not connected.
var ErrIllegalTransition = stderrors.New("illegal state transition")

// transitions lists the legal successors of every state. Terminal states
// have none. Nothing leads from the follow-up phase back to
// StateFunctionRequested, so a turn carries at most one function call.
var transitions = map[State][]State{
	StateAwaitingFirstResponse:    {StateTextReply, StateFunctionRequested, StateFailed},
	StateFunctionRequested:        {StateDispatching, StateTextReply, StateFailed},
	StateDispatching:              {StateAwaitingFollowupResponse, StateTextReply, StateFailed},
	StateAwaitingFollowupResponse: {StateTextReply},
	StateTextReply:                nil,
	StateFailed:                   nil,
}

// Terminal reports whether s ends a turn.
func (s State) Terminal() bool {
	return s == StateTextReply || s == StateFailed
}

// CanTransition reports whether the protocol may move from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine records the path a single turn takes through the protocol.
type machine struct {
	path []State
}

func newMachine() *machine {
	return &machine{path: []State{StateAwaitingFirstResponse}}
}

func (m *machine) current() State {
	return m.path[len(m.path)-1]
}

func (m *machine) to(next State) error {
	from := m.current()
	if !CanTransition(from, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, next)
	}
	m.path = append(m.path, next)
	return nil
}

// fail moves to StateFailed when the current state allows it.
func (m *machine) fail() {
	if CanTransition(m.current(), StateFailed) {
		m.path = append(m.path, StateFailed)
	}
}

func (m *machine) states() []State {
	return append([]State(nil), m.path...)
}
