package link

import (
	"net"
	"strings"
)

// Interface name fragments used by VPNs and virtual adapters (OpenVPN tun/tap,
// WireGuard, PPP, Cloudflare WARP).
var tunnelInterfaceHints = []string{"tun", "tap", "wg", "ppp", "warp"}

// Carrier-grade NAT range, also used by Tailscale and WARP.
var cgnatBlock = func() *net.IPNet {
	_, block, _ := net.ParseCIDR("100.64.0.0/10")
	return block
}()

// ShouldForceRelay reports whether this machine is likely behind a VPN or
// CGNAT, where direct paths to the host rarely work and TURN is the better
// default.
func ShouldForceRelay() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			addrs = nil
		}
		if relayHint(iface.Name, addrs) {
			return true
		}
	}
	return false
}

func relayHint(name string, addrs []net.Addr) bool {
	lower := strings.ToLower(name)
	for _, hint := range tunnelInterfaceHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}

	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip != nil && cgnatBlock.Contains(ip) {
			return true
		}
	}
	return false
}
