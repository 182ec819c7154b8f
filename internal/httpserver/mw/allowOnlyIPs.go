package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/utils"
)

// AllowOnlyCIDRS restricts a route to callers whose address falls in one
// of allowed (bare addresses or CIDR prefixes, IPv4-mapped IPv6 folded to
// IPv4). Unparsable entries are ignored. An empty or fully invalid list
// disables the check. Proxy headers are read only when trustProxy is set.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		if len(allowed) > 0 {
			log.Warn("address check disabled, no entry parsed as an address or prefix",
				logger.Int("configured", len(allowed)))
		} else {
			log.Debug("address check disabled, no rules")
		}
		return func(next http.Handler) http.Handler { return next }
	}

	log.Debug("address check enabled",
		logger.Int("rules", len(allowed)),
		logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Debug("address rejected",
					logger.String("ip", ip),
					logger.String("remote_addr", r.RemoteAddr),
					logger.String("path", r.URL.Path))
				reject(w, http.StatusForbidden, CodeIPNotAllowed, "address not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
