// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net/http"
	"sync"
	"time"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/util"
	"golang.org/x/time/rate"
)

// rateLimiterIdle is the duration after which the limiter of an idle client
// is pruned.
const rateLimiterIdle = 10 * time.Minute

// clientLimiter is the rate limiter of a single client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter limits the number of requests per client IP.
type rateLimiter struct {
	sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*clientLimiter
}

// newRateLimiter returns a new rateLimiter that allows perMinute requests
// per minute per client. Nil is returned when perMinute is not positive,
// which disables rate limiting.
func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &rateLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*clientLimiter),
	}
}

// allow reports whether a request of the client may happen now.
func (l *rateLimiter) allow(key string, now time.Time) bool {
	l.Lock()
	defer l.Unlock()

	c, ok := l.limiters[key]
	if !ok {
		c = &clientLimiter{
			limiter: rate.NewLimiter(l.limit, l.burst),
		}
		l.limiters[key] = c
	}
	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

// prune removes the limiters of the clients that have not been seen since
// the provided time.
func (l *rateLimiter) prune(before time.Time) {
	l.Lock()
	defer l.Unlock()

	for k, v := range l.limiters {
		if v.lastSeen.Before(before) {
			delete(l.limiters, k)
		}
	}
}

// limit wraps the handler with the per client rate limit. The handler is
// returned unchanged when rate limiting is disabled.
func (p *blogwww) limit(f http.HandlerFunc) http.HandlerFunc {
	if p.limiter == nil {
		return f
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ip := util.RemoteIP(r)
		if !p.limiter.allow(ip, time.Now()) {
			log.Infof("%v rate limited: %v %v", util.RemoteAddr(r),
				r.Method, r.URL)
			p.respondWithError(w, r, "limit: %v", v1.UserError{
				ErrorCode: v1.ErrorCodeRateLimited,
			})
			return
		}

		f(w, r)
	}
}
