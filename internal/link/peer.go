package link

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/config"
	pion "github.com/pion/webrtc/v4"
)

// ControlLabel is the label the host gives the command data channel.
const ControlLabel = "control"

// PionFactory builds pion-backed transports from the ICE configuration.
type PionFactory struct {
	Config *config.Config
	Logger *slog.Logger
}

func (f *PionFactory) NewTransport() (Transport, error) {
	pc, err := NewPeerConnection(f.Config)
	if err != nil {
		return nil, err
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return newPionTransport(pc, logger), nil
}

func NewPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, Cause("create peer connection", ErrTransportSetupFailed, err)
	}
	return pc, nil
}

type pionTransport struct {
	pc     *pion.PeerConnection
	logger *slog.Logger

	mu         sync.Mutex
	gatherDone <-chan struct{}
}

func newPionTransport(pc *pion.PeerConnection, logger *slog.Logger) *pionTransport {
	return &pionTransport{pc: pc, logger: logger.With("module", "webrtc")}
}

func (t *pionTransport) SetRemoteDescription(desc SessionDescription) error {
	sdpType := pion.NewSDPType(string(desc.Type))
	if sdpType == pion.SDPTypeUnknown {
		return WrapError("set remote description", ErrSignalingMalformedResponse, string(desc.Type))
	}
	if err := t.pc.SetRemoteDescription(pion.SessionDescription{Type: sdpType, SDP: desc.SDP}); err != nil {
		return Cause("set remote description", ErrTransportSetupFailed, err)
	}
	return nil
}

func (t *pionTransport) CreateAnswer() (SessionDescription, error) {
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return SessionDescription{}, Cause("create answer", ErrTransportSetupFailed, err)
	}

	// The promise must exist before SetLocalDescription starts gathering.
	gatherDone := pion.GatheringCompletePromise(t.pc)
	t.mu.Lock()
	t.gatherDone = gatherDone
	t.mu.Unlock()

	if err := t.pc.SetLocalDescription(answer); err != nil {
		return SessionDescription{}, Cause("set local description", ErrTransportSetupFailed, err)
	}
	return SessionDescription{Type: SDPTypeAnswer, SDP: answer.SDP}, nil
}

func (t *pionTransport) GatheringComplete() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gatherDone == nil {
		// Nothing was started; nothing to wait for.
		done := make(chan struct{})
		close(done)
		return done
	}
	return t.gatherDone
}

func (t *pionTransport) LocalDescription() (SessionDescription, bool) {
	desc := t.pc.LocalDescription()
	if desc == nil {
		return SessionDescription{}, false
	}
	return SessionDescription{Type: SDPType(desc.Type.String()), SDP: desc.SDP}, true
}

func (t *pionTransport) OnConnectionStateChange(fn func(ConnectionState)) {
	t.pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		t.logger.Debug("ICE state", "ice_state", state.String())
		fn(fromICEState(state))
	})
}

func (t *pionTransport) OnDataChannel(fn func(DataChannel)) {
	t.pc.OnDataChannel(func(dc *pion.DataChannel) {
		t.logger.Debug("data channel announced", "label", dc.Label())
		if dc.Label() != ControlLabel {
			return
		}
		fn(&pionChannel{dc: dc})
	})
}

func (t *pionTransport) Close() error {
	return t.pc.Close()
}

func fromICEState(state pion.ICEConnectionState) ConnectionState {
	switch state {
	case pion.ICEConnectionStateChecking:
		return ConnectionStateChecking
	case pion.ICEConnectionStateConnected:
		return ConnectionStateConnected
	case pion.ICEConnectionStateCompleted:
		return ConnectionStateCompleted
	case pion.ICEConnectionStateDisconnected:
		return ConnectionStateDisconnected
	case pion.ICEConnectionStateFailed:
		return ConnectionStateFailed
	case pion.ICEConnectionStateClosed:
		return ConnectionStateClosed
	default:
		return ConnectionStateNew
	}
}

type pionChannel struct {
	dc *pion.DataChannel
}

func (c *pionChannel) Label() string { return c.dc.Label() }

func (c *pionChannel) ReadyState() ChannelState {
	switch c.dc.ReadyState() {
	case pion.DataChannelStateOpen:
		return ChannelStateOpen
	case pion.DataChannelStateClosing, pion.DataChannelStateClosed:
		return ChannelStateClosed
	default:
		return ChannelStateConnecting
	}
}

func (c *pionChannel) Send(data []byte) error {
	// The host decodes every message as JSON text.
	return c.dc.SendText(string(data))
}

func (c *pionChannel) OnOpen(fn func()) { c.dc.OnOpen(fn) }
func (c *pionChannel) OnClose(fn func()) { c.dc.OnClose(fn) }
func (c *pionChannel) Close() error { return c.dc.Close() }

// Flush waits until the channel's send buffer has drained.
func (c *pionChannel) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for c.dc.BufferedAmount() > 0 {
		if c.ReadyState() != ChannelStateOpen {
			return ErrTransportDisconnected
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
