package httpapi

import (
	"sync"

	"golang.org/x/time/rate"
)

// credentialLimiter keeps one token bucket per caller credential.
type credentialLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newCredentialLimiter(rps float64, burst int) *credentialLimiter {
	return &credentialLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (cl *credentialLimiter) allow(credential string) bool {
	cl.mu.Lock()
	limiter, ok := cl.limiters[credential]
	if !ok {
		limiter = rate.NewLimiter(cl.rps, cl.burst)
		cl.limiters[credential] = limiter
	}
	cl.mu.Unlock()

	return limiter.Allow()
}
