package ingest

// State is a contract's position in the processing lifecycle.
type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

var transitions = map[State][]State{
	StateQueued:     {StateProcessing, StateError},
	StateProcessing: {StateCompleted, StateError},
}

// CanTransition reports whether from -> to is a legal forward move.
// Terminal states have no outgoing transitions.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s is completed or error.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}
