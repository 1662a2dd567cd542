package network

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/navigatorbuilds/elara-core/logger"
)

// peerRateLimit is the sustained per-peer request rate and burst
// allowance applied to the submit/witness endpoints, protecting a node
// from a single misbehaving or overeager peer the way
// orbas1-Synnergy's core/virtual_machine.go throttles its own HTTP
// surface with a package-level rate.Limiter.
const (
	peerRateLimit = 20 // requests/sec
	peerBurst     = 40
)

// peerLimiters tracks one token-bucket limiter per remote address,
// created lazily on first contact.
type peerLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newPeerLimiters() *peerLimiters {
	return &peerLimiters{limiters: make(map[string]*rate.Limiter)}
}

func (p *peerLimiters) allow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	p.mu.Lock()
	l, ok := p.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(peerRateLimit), peerBurst)
		p.limiters[host] = l
	}
	p.mu.Unlock()

	return l.Allow()
}

// rateLimited wraps a handler, rejecting requests from a peer that has
// exceeded its token bucket with 429 Too Many Requests.
func (p *peerLimiters) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !p.allow(r.RemoteAddr) {
			if logger.ShouldShowRateLimitDecisions(logger.Verbosity) {
				logger.NetDebugw(logger.Logger, "peer rate limit rejected request", "remote", r.RemoteAddr, "path", r.URL.Path)
			}
			writeError(w, http.StatusTooManyRequests, "peer rate limit exceeded")
			return
		}
		next(w, r)
	}
}
