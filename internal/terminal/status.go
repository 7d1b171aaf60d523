package terminal

type State string

const (
	StateIdle          State = "IDLE"
	StateAwaiting      State = "AWAITING_VERIFICATION"
	StateAuthenticated State = "AUTHENTICATED"
	StateLocked        State = "LOCKED"
)

var validNext = map[State]map[State]bool{
	StateIdle:          {StateAwaiting: true},
	StateAwaiting:      {StateAuthenticated: true, StateIdle: true, StateLocked: true},
	StateAuthenticated: {StateIdle: true},
	StateLocked:        {StateIdle: true},
}

func CanTransition(from, to State) bool {
	return validNext[from][to]
}
