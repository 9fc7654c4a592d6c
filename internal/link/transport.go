package link

import "context"

// DataChannel is a reliable, ordered message pipe. Holders other than the
// owning session only read its state or send on it.
type DataChannel interface {
	Label() string
	ReadyState() ChannelState
	Send(data []byte) error
	OnOpen(fn func())
	OnClose(fn func())
	Close() error
}

// Transport is the peer-session capability the session drives. The host
// creates the offer and the data channel; the client answers.
type Transport interface {
	SetRemoteDescription(desc SessionDescription) error
	// CreateAnswer generates the local answer and applies it as the local
	// description, which starts candidate gathering.
	CreateAnswer() (SessionDescription, error)
	// GatheringComplete is closed once candidate gathering finishes.
	GatheringComplete() <-chan struct{}
	// LocalDescription returns the local description including every
	// candidate gathered so far.
	LocalDescription() (SessionDescription, bool)
	OnConnectionStateChange(fn func(ConnectionState))
	OnDataChannel(fn func(DataChannel))
	Close() error
}

// Factory builds a fresh transport for each negotiation attempt.
type Factory interface {
	NewTransport() (Transport, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func() (Transport, error)

func (f FactoryFunc) NewTransport() (Transport, error) { return f() }

// Flusher is implemented by channels that can report when every queued
// message has been handed to the network.
type Flusher interface {
	Flush(ctx context.Context) error
}
