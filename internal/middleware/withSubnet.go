package middleware

import (
	"net"
	"net/http"
)

// ParseSubnet parses a CIDR. An empty string yields a nil subnet.
func ParseSubnet(cidr string) (*net.IPNet, error) {
	if cidr == "" {
		return nil, nil
	}
	_, subnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	return subnet, nil
}

// WithSubnet only lets through requests whose X-Real-IP belongs to subnet.
// A nil subnet leaves the route open.
func WithSubnet(subnet *net.IPNet) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subnet == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := net.ParseIP(r.Header.Get("X-Real-IP"))
			if ip == nil || !subnet.Contains(ip) {
				writeJSONError(w, http.StatusForbidden, http.StatusText(http.StatusForbidden))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
