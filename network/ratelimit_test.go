package network

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeerLimitersAllowsWithinBurst(t *testing.T) {
	p := newPeerLimiters()
	for i := 0; i < peerBurst; i++ {
		require.True(t, p.allow("203.0.113.1:5000"))
	}
}

func TestPeerLimitersRejectsAfterBurstExhausted(t *testing.T) {
	p := newPeerLimiters()
	for i := 0; i < peerBurst; i++ {
		p.allow("203.0.113.2:5000")
	}
	require.False(t, p.allow("203.0.113.2:5000"))
}

func TestPeerLimitersTracksHostsIndependently(t *testing.T) {
	p := newPeerLimiters()
	for i := 0; i < peerBurst; i++ {
		p.allow("203.0.113.3:5000")
	}
	require.False(t, p.allow("203.0.113.3:5000"))
	require.True(t, p.allow("203.0.113.4:5000"))
}

func TestPeerLimitersFallsBackToRawAddrWithoutPort(t *testing.T) {
	p := newPeerLimiters()
	require.True(t, p.allow("not-a-host-port"))
}

func TestRateLimitedRejectsWithTooManyRequests(t *testing.T) {
	p := newPeerLimiters()
	called := 0
	h := p.rateLimited(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < peerBurst; i++ {
		req := httptest.NewRequest("POST", "/records", nil)
		req.RemoteAddr = "198.51.100.9:6000"
		w := httptest.NewRecorder()
		h(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest("POST", "/records", nil)
	req.RemoteAddr = "198.51.100.9:6000"
	w := httptest.NewRecorder()
	h(w, req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, peerBurst, called)
}
