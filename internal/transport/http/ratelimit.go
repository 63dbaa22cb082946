package http

import "golang.org/x/time/rate"

// newLimiter returns a token bucket for outbound requests. A non-positive
// limit disables throttling.
func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
