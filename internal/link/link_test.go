package link

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/config"
	pion "github.com/pion/webrtc/v4"
)

func TestErrorMatchesSentinel(t *testing.T) {
	err := WrapError("request offer", ErrSignalingRejected, "status 503")
	if !errors.Is(err, ErrSignalingRejected) {
		t.Fatalf("errors.Is(%v, ErrSignalingRejected) = false", err)
	}
	if got, want := err.Error(), "request offer: signaling request rejected (status 503)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := errors.New("boom")
	wrapped := Cause("create answer", ErrTransportSetupFailed, cause)
	if !errors.Is(wrapped, ErrTransportSetupFailed) || !errors.Is(wrapped, cause) {
		t.Errorf("Cause should match both the kind and the cause: %v", wrapped)
	}
}

func TestValidateDescription(t *testing.T) {
	tests := []struct {
		name string
		desc SessionDescription
		ok   bool
	}{
		{"offer", SessionDescription{Type: SDPTypeOffer, SDP: "v=0"}, true},
		{"wrong type", SessionDescription{Type: SDPTypeAnswer, SDP: "v=0"}, false},
		{"empty sdp", SessionDescription{Type: SDPTypeOffer}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate(SDPTypeOffer)
			if tt.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrSignalingMalformedResponse) {
				t.Fatalf("Validate = %v, want ErrSignalingMalformedResponse", err)
			}
		})
	}
}

func TestFromICEState(t *testing.T) {
	tests := map[pion.ICEConnectionState]ConnectionState{
		pion.ICEConnectionStateNew:          ConnectionStateNew,
		pion.ICEConnectionStateChecking:     ConnectionStateChecking,
		pion.ICEConnectionStateConnected:    ConnectionStateConnected,
		pion.ICEConnectionStateCompleted:    ConnectionStateCompleted,
		pion.ICEConnectionStateDisconnected: ConnectionStateDisconnected,
		pion.ICEConnectionStateFailed:       ConnectionStateFailed,
		pion.ICEConnectionStateClosed:       ConnectionStateClosed,
	}
	for in, want := range tests {
		if got := fromICEState(in); got != want {
			t.Errorf("fromICEState(%s) = %s, want %s", in, got, want)
		}
	}
	if !ConnectionStateCompleted.Stable() || ConnectionStateChecking.Stable() {
		t.Error("Stable() should hold only for connected and completed")
	}
}

func TestRelayHint(t *testing.T) {
	_, lan, _ := net.ParseCIDR("192.168.1.10/24")
	cgnat := &net.IPNet{IP: net.ParseIP("100.100.1.2"), Mask: net.CIDRMask(10, 32)}

	tests := []struct {
		name  string
		iface string
		addrs []net.Addr
		want  bool
	}{
		{"plain ethernet", "eth0", []net.Addr{lan}, false},
		{"wireguard", "wg0", nil, true},
		{"openvpn", "tun0", nil, true},
		{"cgnat address", "en0", []net.Addr{cgnat}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relayHint(tt.iface, tt.addrs); got != tt.want {
				t.Errorf("relayHint(%q) = %v, want %v", tt.iface, got, tt.want)
			}
		})
	}
}

// TestPionTransportAnswersOffer drives the pion transport with an offer from
// an in-process peer that opens the control channel, like the host does.
func TestPionTransportAnswersOffer(t *testing.T) {
	cfg := &config.Config{}

	host, err := pion.NewPeerConnection(pion.Configuration{})
	if err != nil {
		t.Fatalf("host peer: %v", err)
	}
	defer host.Close()
	if _, err := host.CreateDataChannel(ControlLabel, nil); err != nil {
		t.Fatalf("host data channel: %v", err)
	}
	offer, err := host.CreateOffer(nil)
	if err != nil {
		t.Fatalf("host offer: %v", err)
	}
	if err := host.SetLocalDescription(offer); err != nil {
		t.Fatalf("host local description: %v", err)
	}

	factory := &PionFactory{Config: cfg}
	transport, err := factory.NewTransport()
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	defer transport.Close()

	if _, ok := transport.LocalDescription(); ok {
		t.Error("LocalDescription before answering should be absent")
	}

	err = transport.SetRemoteDescription(SessionDescription{Type: "bogus", SDP: offer.SDP})
	if !errors.Is(err, ErrSignalingMalformedResponse) {
		t.Fatalf("SetRemoteDescription(bogus) = %v, want ErrSignalingMalformedResponse", err)
	}

	if err := transport.SetRemoteDescription(SessionDescription{Type: SDPTypeOffer, SDP: offer.SDP}); err != nil {
		t.Fatalf("SetRemoteDescription: %v", err)
	}
	answer, err := transport.CreateAnswer()
	if err != nil {
		t.Fatalf("CreateAnswer: %v", err)
	}
	if answer.Type != SDPTypeAnswer || answer.SDP == "" {
		t.Fatalf("answer = %+v", answer)
	}

	select {
	case <-transport.GatheringComplete():
	case <-time.After(10 * time.Second):
		t.Fatal("gathering did not complete")
	}

	local, ok := transport.LocalDescription()
	if !ok || local.Type != SDPTypeAnswer {
		t.Fatalf("LocalDescription = %+v, %v", local, ok)
	}
}
