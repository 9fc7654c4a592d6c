package link

import "fmt"

// SDPType tags a session description as one side of the handshake.
type SDPType string

const (
	SDPTypeOffer  SDPType = "offer"
	SDPTypeAnswer SDPType = "answer"
)

// SessionDescription is the opaque negotiation blob exchanged once per
// session during setup.
type SessionDescription struct {
	Type SDPType `json:"type"`
	SDP  string  `json:"sdp"`
}

func (d SessionDescription) Validate(want SDPType) error {
	if d.Type != want {
		return WrapError("validate description", ErrSignalingMalformedResponse, fmt.Sprintf("type %q, want %q", d.Type, want))
	}
	if d.SDP == "" {
		return WrapError("validate description", ErrSignalingMalformedResponse, "empty sdp")
	}
	return nil
}

// ConnectionState mirrors the ICE connection states reported by the
// transport.
type ConnectionState int

const (
	ConnectionStateNew ConnectionState = iota
	ConnectionStateChecking
	ConnectionStateConnected
	ConnectionStateCompleted
	ConnectionStateDisconnected
	ConnectionStateFailed
	ConnectionStateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateNew:
		return "new"
	case ConnectionStateChecking:
		return "checking"
	case ConnectionStateConnected:
		return "connected"
	case ConnectionStateCompleted:
		return "completed"
	case ConnectionStateDisconnected:
		return "disconnected"
	case ConnectionStateFailed:
		return "failed"
	case ConnectionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stable reports whether the transport has a usable path to the peer.
func (s ConnectionState) Stable() bool {
	return s == ConnectionStateConnected || s == ConnectionStateCompleted
}

// ChannelState is the readiness of a control channel.
type ChannelState int

const (
	ChannelStateConnecting ChannelState = iota
	ChannelStateOpen
	ChannelStateClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelStateConnecting:
		return "connecting"
	case ChannelStateOpen:
		return "open"
	case ChannelStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
