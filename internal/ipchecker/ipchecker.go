// Package ipchecker extracts client IP addresses from HTTP requests and
// validates them against a trusted subnet. Internal-only endpoints use it
// to reject requests coming from outside the operations network.
package ipchecker

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

// IPChecker validates client addresses against a trusted subnet.
// The zero subnet (no CIDR configured) trusts nobody.
type IPChecker struct {
	trustedSubnet netip.Prefix
	configured    bool
}

// New creates an IPChecker for the given subnet in CIDR notation.
// An empty string yields a disabled checker whose Check always fails.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}

	prefix, err := netip.ParsePrefix(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("error while `netip.ParsePrefix()` calling: %w", err)
	}

	return &IPChecker{
		trustedSubnet: prefix,
		configured:    true,
	}, nil
}

// Check reports whether the address belongs to the trusted subnet.
func (checker *IPChecker) Check(clientIP netip.Addr) bool {
	return checker.configured && checker.trustedSubnet.Contains(clientIP)
}

// IsTrustedSubnetEmpty reports whether the checker was built without a subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return !checker.configured
}

// GetClientIP extracts the client's address from the request, preferring
// the X-Real-IP header, then the first entry of X-Forwarded-For, and
// finally the connection's remote address.
func (checker *IPChecker) GetClientIP(request *http.Request) (netip.Addr, error) {
	if realIP := request.Header.Get("X-Real-IP"); realIP != "" {
		addr, err := netip.ParseAddr(realIP)
		if err == nil {
			return addr, nil
		}
	}

	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		addr, err := netip.ParseAddr(first)
		if err == nil {
			return addr, nil
		}
	}

	addrPort, err := netip.ParseAddrPort(request.RemoteAddr)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error while `netip.ParseAddrPort()` calling: %w", err)
	}

	return addrPort.Addr(), nil
}
