package session

// State is the externally observable negotiation state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from s to next is legal.
//
//	disconnected -> connecting    connect requested
//	connecting   -> connected     transport reports a stable path
//	connecting   -> disconnected  signaling or setup failed, or disconnect
//	connected    -> disconnected  transport lost, or disconnect
func (s State) CanTransition(next State) bool {
	switch s {
	case StateDisconnected:
		return next == StateConnecting
	case StateConnecting:
		return next == StateConnected || next == StateDisconnected
	case StateConnected:
		return next == StateDisconnected
	default:
		return false
	}
}
