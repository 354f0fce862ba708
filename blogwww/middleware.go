// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"runtime/debug"
	"time"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/sessions"
	"github.com/decred/dcrblog/util"
	"github.com/google/uuid"
)

// middleware contains the middleware that use configurable settings.
type middleware struct {
	reqBodySizeLimit int64 // In bytes
}

// reqBodySizeLimitMiddleware applies a maximum request body size limit to
// requests.
//
// NOTE: This will only cause an error if the request body is read by the
// request handler, e.g. the request form is parsed.
func (m *middleware) reqBodySizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, m.reqBodySizeLimit)
		next.ServeHTTP(w, r)
	})
}

// closeBodyMiddleware closes the request body.
func closeBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		r.Body.Close()
	})
}

// loggingMiddleware logs all incoming requests before calling the next
// function.
//
// NOTE: LOGGING WILL LOG PASSWORDS IF TRACING IS ENABLED.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Trace incoming request
		log.Tracef("%v", newLogClosure(func() string {
			trace, err := httputil.DumpRequest(r, true)
			if err != nil {
				trace = []byte(fmt.Sprintf("logging: "+
					"DumpRequest %v", err))
			}
			return string(trace)
		}))

		// Log incoming connection
		log.Infof("%v %v %v %v", util.RemoteAddr(r), r.Method, r.URL,
			r.Proto)

		// Call next handler
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware recovers from any panics by logging the panic and
// returning a 500 response.
func (p *blogwww) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Defer the function so that it gets executed when the request
		// is being closed out, not when its being opened.
		defer func() {
			if err := recover(); err != nil {
				errorCode := time.Now().Unix()
				log.Criticalf("%v %v %v %v Internal error %v: %v",
					util.RemoteAddr(r), r.Method, r.URL, r.Proto,
					errorCode, err)

				log.Criticalf("Stacktrace (THIS IS AN ACTUAL PANIC): %s",
					debug.Stack())

				p.renderInternalError(w, r, errorCode)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// ctxKey is the type of the request context keys that are set by the
// middleware.
type ctxKey int

const (
	// ctxKeySessionUser is the context key of the session user.
	ctxKeySessionUser ctxKey = iota
)

// sessionUser returns the user of the request session. Nil is returned for
// anonymous visitors.
func sessionUser(r *http.Request) *database.User {
	u, _ := r.Context().Value(ctxKeySessionUser).(*database.User)
	return u
}

// identityMiddleware resolves the user of the request session and stores
// it in the request context.
func (p *blogwww) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := p.getSessionUser(w, r)
		if err != nil {
			p.respondWithError(w, r,
				"identityMiddleware: getSessionUser: %v", err)
			return
		}
		if u != nil {
			ctx := context.WithValue(r.Context(), ctxKeySessionUser, u)
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}

// getSessionUser returns the user of the request session. Nil is returned
// when the request does not contain a valid session.
func (p *blogwww) getSessionUser(w http.ResponseWriter, r *http.Request) (*database.User, error) {
	id, err := p.sessions.GetSessionUserID(w, r)
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse session user id %v: %v", id, err)
	}
	u, err := p.blog.User(r.Context(), userID)
	switch {
	case errors.Is(err, database.ErrUserNotFound):
		// The session belongs to a user that no longer exists.
		log.Debugf("Session user %v not found", userID)
		err = p.sessions.DelSession(w, r)
		if err != nil {
			log.Errorf("getSessionUser: DelSession: %v", err)
		}
		return nil, nil
	case err != nil:
		return nil, err
	}

	return u, nil
}

// isLoggedIn ensures that a user is logged in before calling the next
// function.
func (p *blogwww) isLoggedIn(f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("isLoggedIn: %v %v %v %v", util.RemoteAddr(r), r.Method,
			r.URL, r.Proto)

		if sessionUser(r) == nil {
			p.respondWithError(w, r, "isLoggedIn: %v", v1.UserError{
				ErrorCode: v1.ErrorCodeAuthRequired,
			})
			return
		}

		f(w, r)
	}
}

// isLoggedInAsAdmin ensures that a user is logged in as an admin user before
// calling the next function.
func (p *blogwww) isLoggedInAsAdmin(f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("isLoggedInAsAdmin: %v %v %v %v", util.RemoteAddr(r),
			r.Method, r.URL, r.Proto)

		u := sessionUser(r)
		if u == nil || !u.Admin {
			p.respondWithError(w, r, "isLoggedInAsAdmin: %v", v1.UserError{
				ErrorCode: v1.ErrorCodeForbidden,
			})
			return
		}

		f(w, r)
	}
}
