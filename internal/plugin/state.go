package plugin

// State is the lifecycle state of a plugin candidate.
type State int

// Candidate states.
const (
	// StateDiscovered - the candidate is known but not yet loading.
	StateDiscovered State = iota

	// StateLoading - the candidate's bundle is being produced.
	StateLoading

	// StateRegistered - the bundle's contributions are in the registry.
	StateRegistered

	// StateFailed - loading or registration failed; the failure is
	// isolated to this candidate.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateLoading:
		return "loading"
	case StateRegistered:
		return "registered"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
