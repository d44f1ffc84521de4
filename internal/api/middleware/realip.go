package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ParseIPList turns IPs and CIDRs into networks. Single IPs become host
// networks. Invalid entries are returned separately.
func ParseIPList(entries []string) (nets []*net.IPNet, invalid []string) {
	for _, entry := range entries {
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				invalid = append(invalid, entry)
				continue
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip = ip.To4()
				bits = 8 * net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			invalid = append(invalid, entry)
			continue
		}
		nets = append(nets, ipNet)
	}
	return nets, invalid
}

func containsIP(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP rewrites RemoteAddr to the client address reported by a
// trusted proxy. X-Forwarded-For is only read when the connecting peer is
// in trusted; the chain is walked right to left and the first hop outside
// trusted wins. Requests from any other peer keep their socket address.
func ClientIP(trusted []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer := net.ParseIP(RealIP(r))
			if peer != nil && containsIP(trusted, peer) {
				if ip := forwardedClient(r.Header.Get("X-Forwarded-For"), trusted); ip != "" {
					r.RemoteAddr = ip
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(xff string, trusted []*net.IPNet) string {
	if xff == "" {
		return ""
	}
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			return ""
		}
		if !containsIP(trusted, ip) {
			return ip.String()
		}
	}
	return ""
}

// RealIP returns the host part of RemoteAddr. Headers are never consulted
// here; ClientIP decides whether a proxy's header replaces RemoteAddr.
func RealIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
