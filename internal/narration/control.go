package narration

// Phase is what an article's listen control shows.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseAwaitingGesture
	PhasePlaying
	PhasePaused
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseAwaitingGesture:
		return "awaiting-gesture"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// ControlState is the state of one article's listen control.
type ControlState struct {
	Phase Phase
	// Progress is generation progress while loading and playback progress
	// otherwise, in percent.
	Progress int
	// Message is a notice or error for the user, if any.
	Message string
	Err     error
}

// Event reports a change to an article's control.
type Event struct {
	Index   int
	Control ControlState
}

// Stats holds orchestrator counters.
type Stats struct {
	Requests            int64
	Toggles             int64
	CacheHits           int64
	CacheMisses         int64
	Generations         int64
	Failures            int64
	Superseded          int64
	TranslationFailures int64
	ContentHits         int64
	ContentMisses       int64
}
