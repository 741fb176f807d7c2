package meter

import (
	"time"

	"github.com/google/uuid"
	"github.com/vitwit/meter/types"
)

// State is the position of one invocation in the payment flow.
type State int32

const (
	StateIdle State = iota
	StateChecking
	StatePaying
	StateConfirming
	StateRefreshing
	StateAuthorized
	StateRejected
	StateFailed
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateChecking:   "checking",
	StatePaying:     "paying",
	StateConfirming: "confirming",
	StateRefreshing: "refreshing",
	StateAuthorized: "authorized",
	StateRejected:   "rejected",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateAuthorized || s == StateRejected || s == StateFailed
}

// Transition is reported to the Observer on every state change.
type Transition struct {
	Invocation uuid.UUID
	Kind       types.ActionKind
	Network    types.NetworkKey
	From       State
	To         State
	Err        error
	At         time.Time
}

// Observer receives transitions synchronously, in order. It must not block.
type Observer func(Transition)
