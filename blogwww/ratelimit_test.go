// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
)

func TestRateLimiter(t *testing.T) {
	if l := newRateLimiter(0); l != nil {
		t.Fatalf("got a rate limiter for a zero limit")
	}

	l := newRateLimiter(2)
	now := time.Now()

	// The burst allows the full per minute limit at once
	if !l.allow("a", now) || !l.allow("a", now) {
		t.Fatalf("request under the limit was not allowed")
	}
	if l.allow("a", now) {
		t.Fatalf("request over the limit was allowed")
	}

	// Clients are limited independently
	if !l.allow("b", now) {
		t.Fatalf("request of another client was not allowed")
	}

	// A token is refilled every 30 seconds
	if !l.allow("a", now.Add(30*time.Second)) {
		t.Fatalf("request after the refill was not allowed")
	}

	// Prune the idle clients
	l.prune(now.Add(time.Second))
	if _, ok := l.limiters["b"]; ok {
		t.Errorf("idle client was not pruned")
	}
	if _, ok := l.limiters["a"]; !ok {
		t.Errorf("active client was pruned")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	p, _, cleanup := newTestBlogwww(t, nil)
	defer cleanup()

	// The handlers are wrapped when the routes are setup
	p.limiter = newRateLimiter(1)
	p.setupRouter(nil)
	p.setupRoutes()

	form := url.Values{
		"email":    []string{"nobody@example.org"},
		"password": []string{"password"},
	}
	c := newTestClient(t, p)
	res, _ := c.post(v1.RouteLogin, form)
	if res.StatusCode != http.StatusFound {
		t.Fatalf("got status %v, want %v", res.StatusCode,
			http.StatusFound)
	}
	res, _ = c.post(v1.RouteLogin, form)
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("got status %v, want %v", res.StatusCode,
			http.StatusTooManyRequests)
	}

	// Pages are not rate limited
	res, _ = c.get(v1.RouteLogin)
	if res.StatusCode != http.StatusOK {
		t.Errorf("got status %v, want %v", res.StatusCode, http.StatusOK)
	}
}
