package networking

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/nightshade/scanner/internal/utils"
)

// Throttle paces requests per registered domain (eTLD+1) so concurrent
// sessions probing the same site share one budget instead of hammering it.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	logger   utils.Logger
}

// NewThrottle creates a Throttle allowing rps requests per second per
// registered domain. rps <= 0 disables pacing.
func NewThrottle(rps float64, logger utils.Logger) *Throttle {
	if logger == nil {
		logger = utils.NewNoOpLogger()
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		logger:   logger,
	}
}

func (t *Throttle) limiterFor(domain string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	limiter, exists := t.limiters[domain]
	if !exists {
		limiter = rate.NewLimiter(t.limit, t.burst)
		t.limiters[domain] = limiter
		t.logger.Debugf("Initialized rate limiter for domain '%s' (%.2f req/s)", domain, float64(t.limit))
	}
	return limiter
}

// Wait blocks until the target's domain has budget for one request, or until
// ctx is cancelled.
func (t *Throttle) Wait(ctx context.Context, rawURL string) error {
	if t.limit <= 0 {
		return nil
	}
	domain, err := utils.ExtractBaseDomain(rawURL)
	if err != nil {
		// Unparseable targets fail later when the request is built; don't
		// stall them here.
		return nil
	}
	return t.limiterFor(domain).Wait(ctx)
}
