package job

import "fmt"

// State is one node of the job state machine.
type State int

const (
	// StateNone is the initial state; a JCB in this state has not yet
	// been handed off to a spawn event and is never stored in a Manager
	// registry.
	StateNone State = iota
	StateForeground
	StateBackground
	StateStopped
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateForeground:
		return "foreground"
	case StateBackground:
		return "background"
	case StateStopped:
		return "stopped"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Event is a stimulus applied to the state machine.
type Event int

const (
	EventSpawn Event = iota
	EventSpawnBG
	EventCtrlZ
	EventCtrlC
	EventFGCmd
	EventBGCmd
	EventChildExit
	EventChildStop
	EventTTYRead
	EventTimeout
	EventError
)

func (e Event) String() string {
	switch e {
	case EventSpawn:
		return "SPAWN"
	case EventSpawnBG:
		return "SPAWN_BG"
	case EventCtrlZ:
		return "CTRL_Z"
	case EventCtrlC:
		return "CTRL_C"
	case EventFGCmd:
		return "FG_CMD"
	case EventBGCmd:
		return "BG_CMD"
	case EventChildExit:
		return "CHILD_EXIT"
	case EventChildStop:
		return "CHILD_STOP"
	case EventTTYRead:
		return "TTY_READ"
	case EventTimeout:
		return "TIMEOUT"
	case EventError:
		return "ERROR"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// allEvents lists every event value, used by ValidEvents to enumerate
// which stimuli a state accepts.
var allEvents = []Event{
	EventSpawn, EventSpawnBG, EventCtrlZ, EventCtrlC, EventFGCmd, EventBGCmd,
	EventChildExit, EventChildStop, EventTTYRead, EventTimeout, EventError,
}

// Transition applies event to current and returns the resulting state.
// It is a pure function with no side effects; the caller is responsible
// for applying whatever effects a valid transition implies (terminal
// handoff, drainer teardown, callback dispatch). An invalid (state,
// event) pair returns ok=false and current is unchanged by convention
// (the caller must not update its stored state on failure).
func Transition(current State, event Event) (next State, ok bool) {
	if event == EventTimeout {
		return current, false
	}
	if event == EventError && current != StateTerminated {
		return StateTerminated, true
	}

	switch current {
	case StateNone:
		switch event {
		case EventSpawn:
			return StateForeground, true
		case EventSpawnBG:
			return StateBackground, true
		}

	case StateForeground:
		switch event {
		case EventCtrlZ:
			return StateStopped, true
		case EventCtrlC:
			return StateTerminated, true
		case EventChildExit:
			return StateTerminated, true
		case EventChildStop:
			return StateStopped, true
		}

	case StateBackground:
		switch event {
		case EventFGCmd:
			return StateForeground, true
		case EventBGCmd:
			return StateBackground, true
		case EventChildExit:
			return StateTerminated, true
		case EventChildStop:
			return StateStopped, true
		case EventTTYRead:
			return StateStopped, true
		}

	case StateStopped:
		switch event {
		case EventFGCmd:
			return StateForeground, true
		case EventBGCmd:
			return StateBackground, true
		case EventCtrlC:
			return StateTerminated, true
		case EventChildExit:
			return StateTerminated, true
		}

	case StateTerminated:
		// terminal state, no transitions out
	}

	return current, false
}

// CanTransition reports whether event is valid from current.
func CanTransition(current State, event Event) bool {
	_, ok := Transition(current, event)
	return ok
}

// ValidEvents lists every event accepted from state.
func ValidEvents(state State) []Event {
	var valid []Event
	for _, e := range allEvents {
		if CanTransition(state, e) {
			valid = append(valid, e)
		}
	}
	return valid
}
