package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBurstSize = 10

	sweepInterval = 5 * time.Minute
	idleTimeout   = 10 * time.Minute
)

// RateLimiter hands out one token bucket per profile
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[int64]*bucket
	perMin   int
	burst    int
	now      func() time.Time
	stopOnce sync.Once
	stop     chan struct{}
}

type bucket struct {
	limiter *rate.Limiter
	touched time.Time
}

// Decision is the outcome of a single rate limit check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// NewRateLimiter allows perMinute requests per profile with the given burst.
// A background sweep drops buckets idle for longer than ten minutes.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		buckets: make(map[int64]*bucket),
		perMin:  perMinute,
		burst:   burst,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (r *RateLimiter) refillRate() rate.Limit {
	return rate.Limit(float64(r.perMin) / 60)
}

// Allow reports whether the profile may make another request
func (r *RateLimiter) Allow(profileID int64) bool {
	return r.Take(profileID).Allowed
}

// Take consumes a token for the profile if one is available
func (r *RateLimiter) Take(profileID int64) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	b, ok := r.buckets[profileID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.refillRate(), r.burst)}
		r.buckets[profileID] = b
	}
	b.touched = now

	d := Decision{Limit: r.perMin, Allowed: b.limiter.AllowN(now, 1)}
	tokens := b.limiter.TokensAt(now)
	d.Remaining = int(math.Max(0, math.Floor(tokens)))

	perToken := time.Duration(float64(time.Second) / float64(r.refillRate()))
	d.Reset = now.Add(time.Duration((float64(r.burst) - tokens) * float64(perToken)))
	if !d.Allowed {
		d.RetryAfter = time.Duration((1 - tokens) * float64(perToken))
		if d.RetryAfter < time.Second {
			d.RetryAfter = time.Second
		}
	}
	return d
}

// Len returns the number of profiles currently tracked
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

func (r *RateLimiter) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idleTimeout)
	for id, b := range r.buckets {
		if b.touched.Before(cutoff) {
			delete(r.buckets, id)
			log.Debug().Int64("profile_id", id).Msg("Dropped idle rate limit bucket")
		}
	}
}

func (r *RateLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.stop:
			return
		}
	}
}

// Stop ends the background sweep. Safe to call more than once.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// RateLimitMiddleware limits requests per resolved profile. Requests that
// carry no profile ID pass through untouched.
func RateLimitMiddleware(rl *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			profileID := GetProfileID(c)
			if profileID == 0 {
				return next(c)
			}

			d := rl.Take(profileID)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

			if d.Allowed {
				return next(c)
			}

			retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			log.Warn().Int64("profile_id", profileID).Int("retry_after", retryAfter).Msg("Rate limit exceeded")
			return rateLimitError(c, retryAfter)
		}
	}
}
