package playback

// State is the state of a playback session.
type State int

const (
	// StateIdle means there is no session.
	StateIdle State = iota
	// StateLoading means the audio is being fetched and decoded.
	StateLoading
	// StatePendingUserGesture means the audio is ready but playback needs
	// an explicit user action.
	StatePendingUserGesture
	// StatePlaying means audio is being played.
	StatePlaying
	// StatePaused means playback is paused.
	StatePaused
	// StateEnded means the audio played to completion.
	StateEnded
	// StateStopped means playback was stopped before completion.
	StateStopped
	// StateErrored means the audio could not be played.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePendingUserGesture:
		return "pending-user-gesture"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateStopped:
		return "stopped"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a session.
func (s State) Terminal() bool {
	return s == StateEnded || s == StateStopped || s == StateErrored
}

// stateMachine enforces the valid session transitions.
type stateMachine struct {
	current     State
	transitions map[State][]State
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:               {StateLoading},
			StateLoading:            {StatePlaying, StatePendingUserGesture, StateStopped, StateErrored},
			StatePendingUserGesture: {StatePlaying, StateStopped, StateErrored},
			StatePlaying:            {StatePaused, StateEnded, StateStopped, StateErrored},
			StatePaused:             {StatePlaying, StateEnded, StateStopped, StateErrored},
			StateEnded:              {StateIdle},
			StateStopped:            {StateIdle},
			StateErrored:            {StateIdle},
		},
	}
}

// Transition moves to the given state if the move is valid.
func (sm *stateMachine) Transition(to State) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	sm.current = to
	return true
}

func (sm *stateMachine) Current() State {
	return sm.current
}
