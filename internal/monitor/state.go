package monitor

// State is a monitor loop state.
type State string

const (
	StateStartup         State = "startup"
	StateWaiting         State = "waiting"
	StateCooldownBlocked State = "cooldown_blocked"
	StateFlapping        State = "flapping"
)

// AllStates lists every state, in lifecycle order.
var AllStates = []State{StateStartup, StateWaiting, StateCooldownBlocked, StateFlapping}

func stateNames() []string {
	names := make([]string, len(AllStates))
	for i, s := range AllStates {
		names[i] = string(s)
	}
	return names
}
