package workflow

// State is a status of the invoice import flow
type State string

const (
	StatePending   State = "pending"
	StateFetching  State = "fetching"
	StateParsing   State = "parsing"
	StatePreview   State = "preview"
	StateImporting State = "importing"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// AllStates lists every flow state in lifecycle order
var AllStates = []State{
	StatePending,
	StateFetching,
	StateParsing,
	StatePreview,
	StateImporting,
	StateCompleted,
	StateError,
}

var validStates = map[State]bool{
	StatePending:   true,
	StateFetching:  true,
	StateParsing:   true,
	StatePreview:   true,
	StateImporting: true,
	StateCompleted: true,
	StateError:     true,
}

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateError:     true,
}

// busyStates have a network or storage call in flight
var busyStates = map[State]bool{
	StateFetching:  true,
	StateParsing:   true,
	StateImporting: true,
}

// IsTerminal returns true if only a reset can leave the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsBusy returns true while work is in flight and re-submission must be rejected
func (s State) IsBusy() bool {
	return busyStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid flow state
func (s State) IsValid() bool {
	return validStates[s]
}
