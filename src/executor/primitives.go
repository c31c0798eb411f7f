package executor

// TurnState is the lifecycle position of a single chat turn
type TurnState int

const (
	// StateComposing means the request has not been sent yet
	StateComposing TurnState = iota
	// StateSent means the placeholder is in place and the call is in flight
	StateSent
	// StateStreaming means at least one fragment has arrived
	StateStreaming
	// StateCompleted means the reply was finalized successfully
	StateCompleted
	// StateErrored means the reply was replaced with an error message
	StateErrored
)

func (s TurnState) String() string {
	switch s {
	case StateComposing:
		return "composing"
	case StateSent:
		return "sent"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible
func (s TurnState) Terminal() bool {
	return s == StateCompleted || s == StateErrored
}
