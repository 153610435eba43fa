package service

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// defaultNetworks covers loopback plus the RFC1918 private ranges
var defaultNetworks = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::1/128",
}

// AccessGuard decides whether a request origin may exercise approval
// operations. It is a pure predicate over the client IP; it never mutates
// state or logs denied attempts itself.
type AccessGuard struct {
	networks []*net.IPNet
	logger   *logrus.Logger
}

// NewAccessGuard creates an AccessGuard from a list of CIDR blocks.
// An empty list falls back to loopback plus the private ranges.
func NewAccessGuard(cidrs []string, logger *logrus.Logger) (*AccessGuard, error) {
	if len(cidrs) == 0 {
		cidrs = defaultNetworks
	}

	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed network %q: %w", cidr, err)
		}
		networks = append(networks, network)
	}

	return &AccessGuard{
		networks: networks,
		logger:   logger,
	}, nil
}

// IsPermitted reports whether the given client IP falls inside any allowed
// network. Unparseable addresses are never permitted.
func (g *AccessGuard) IsPermitted(clientIP string) bool {
	ip := net.ParseIP(clientIP)
	if ip == nil {
		g.logger.WithField("client_ip", clientIP).Warn("Unparseable client IP")
		return false
	}

	for _, network := range g.networks {
		if network.Contains(ip) {
			return true
		}
	}

	return false
}
