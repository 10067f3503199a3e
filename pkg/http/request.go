package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig holds the trusted proxy ranges used when resolving the client address
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies

	networks []*net.IPNet
}

// NewIPConfig parses the trusted proxy CIDRs once. Invalid ranges are skipped.
func NewIPConfig(trustedProxies []string) *IPConfig {
	cfg := &IPConfig{TrustedProxies: trustedProxies}
	cfg.networks = parseNetworks(trustedProxies)
	return cfg
}

// Origin identifies where a request came from. It is recorded with login
// attempts and lockout audit events.
type Origin struct {
	IPAddress string
	UserAgent string
}

// RequestOrigin resolves the client IP and user agent of a request
func RequestOrigin(r *http.Request, config *IPConfig) Origin {
	return Origin{
		IPAddress: ExtractClientIP(r, config),
		UserAgent: r.UserAgent(),
	}
}

// ExtractClientIP returns the client address. Forwarding headers are honored only
// when the immediate peer is a trusted proxy, otherwise RemoteAddr is used.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if config == nil || !config.trusts(remoteIP) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if isValidIP(ip) {
				return ip
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); isValidIP(xri) {
		return xri
	}

	return remoteIP
}

// getRemoteAddr strips the port from RemoteAddr
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func (c *IPConfig) trusts(ip string) bool {
	networks := c.networks
	if networks == nil && len(c.TrustedProxies) > 0 {
		networks = parseNetworks(c.TrustedProxies)
	}
	if len(networks) == 0 {
		return false
	}

	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, ipNet := range networks {
		if ipNet.Contains(clientIP) {
			return true
		}
	}
	return false
}

func parseNetworks(cidrs []string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			continue
		}
		networks = append(networks, ipNet)
	}
	return networks
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
