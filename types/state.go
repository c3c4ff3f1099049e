package types

// State represents the router lifecycle state.
//
// States follow a strict progression:
//
//	StateCreated → StateOpen → StateClosed
//
// A router that fails to open stays in StateCreated and may be opened again.
// StateClosed is terminal.
type State int

const (
	// StateCreated is the initial state before Open succeeds.
	StateCreated State = iota

	// StateOpen indicates the router is ready to resolve keys.
	StateOpen

	// StateClosed indicates the router was closed and released its resources.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateOpen:
		return "Open"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
