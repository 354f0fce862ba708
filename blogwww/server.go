// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net/http"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/sessions"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
)

// permission represents the role that is required to access a route.
type permission uint

const (
	permissionPublic permission = iota
	permissionLogin
	permissionAdmin
)

// routeMetrics is the route of the prometheus metrics.
const routeMetrics = v1.RouteMetrics

// setupRouter sets up the router and its middleware. The CSRF protection of
// the protected subrouter is only enabled when a CSRF key is provided.
func (p *blogwww) setupRouter(csrfKey []byte) {
	// Setup the router
	p.router = mux.NewRouter()
	p.router.StrictSlash(true) // Ignore trailing slashes

	// Add a 404 handler
	p.router.NotFoundHandler = http.HandlerFunc(p.handleNotFound)

	// Add router middleware. Middleware is executed in the same order
	// that they are registered in.
	m := middleware{
		reqBodySizeLimit: p.cfg.ReqBodySizeLimit,
	}
	p.router.Use(closeBodyMiddleware) // MUST be registered first
	p.router.Use(m.reqBodySizeLimitMiddleware)
	p.router.Use(loggingMiddleware)
	if p.metrics != nil {
		p.router.Use(p.metrics.middleware)
	}
	p.router.Use(p.recoverMiddleware)

	// Setup a subrouter for the html pages. The subrouter takes on the
	// configuration of the router that it was spawned from, including
	// all of the middleware that has already been registered. The
	// pages are CSRF protected and need the identity of the session
	// user.
	p.protected = p.router.NewRoute().Subrouter()
	if csrfKey != nil {
		p.protected.Use(csrf.Protect(
			csrfKey,
			csrf.Path("/"),
			csrf.MaxAge(sessions.SessionMaxAge),
			csrf.FieldName(csrfFieldName),
			csrf.ErrorHandler(http.HandlerFunc(p.handleCSRFFailure)),
		))
	}
	p.protected.Use(p.identityMiddleware)
}

// setupRoutes sets up the blog routes.
func (p *blogwww) setupRoutes() {
	// Unprotected routes
	p.router.HandleFunc(v1.RouteVersion, p.handleVersion).
		Methods(http.MethodGet)
	if p.metrics != nil {
		p.router.Handle(routeMetrics, p.metrics.handler()).
			Methods(http.MethodGet)
	}

	// Pages
	p.addRoute(http.MethodGet, v1.RouteIndex,
		p.handleIndex, permissionPublic)
	p.addRoute(http.MethodGet, v1.RouteArchive,
		p.handleArchive, permissionPublic)
	p.addRoute(http.MethodGet, v1.RouteAbout,
		p.handleAbout, permissionPublic)

	// User routes
	p.addRoute(http.MethodGet, v1.RouteRegister,
		p.handleRegisterPage, permissionPublic)
	p.addRoute(http.MethodPost, v1.RouteRegister,
		p.limit(p.handleRegister), permissionPublic)
	p.addRoute(http.MethodGet, v1.RouteLogin,
		p.handleLoginPage, permissionPublic)
	p.addRoute(http.MethodPost, v1.RouteLogin,
		p.limit(p.handleLogin), permissionPublic)
	p.addRoute(http.MethodGet, v1.RouteLogout,
		p.handleLogout, permissionPublic)
	p.addRoute(http.MethodGet, v1.RouteRecovery,
		p.handleRecoveryPage, permissionPublic)
	p.addRoute(http.MethodPost, v1.RouteRecovery,
		p.limit(p.handleRecovery), permissionPublic)
	p.addRoute(http.MethodGet, v1.RouteResetPassword,
		p.handleResetPasswordPage, permissionPublic)
	p.addRoute(http.MethodPost, v1.RouteResetPassword,
		p.limit(p.handleResetPassword), permissionPublic)

	// Post routes
	p.addRoute(http.MethodGet, v1.RoutePost,
		p.handlePost, permissionPublic)
	p.addRoute(http.MethodPost, v1.RoutePost,
		p.handleComment, permissionLogin)
	p.addRoute(http.MethodGet, v1.RouteDeleteComment,
		p.handleDeleteComment, permissionPublic)
	p.addRoute(http.MethodGet, v1.RouteNewPost,
		p.handleNewPostPage, permissionAdmin)
	p.addRoute(http.MethodPost, v1.RouteNewPost,
		p.handleNewPost, permissionAdmin)
	p.addRoute(http.MethodGet, v1.RouteEditPost,
		p.handleEditPostPage, permissionAdmin)
	p.addRoute(http.MethodPost, v1.RouteEditPost,
		p.handleEditPost, permissionAdmin)
	p.addRoute(http.MethodGet, v1.RouteDeletePost,
		p.handleDeletePost, permissionAdmin)

	// Contact routes
	p.addRoute(http.MethodGet, v1.RouteContact,
		p.handleContactPage, permissionPublic)
	p.addRoute(http.MethodPost, v1.RouteContact,
		p.limit(p.handleContact), permissionPublic)
}

// addRoute sets up a handler for a specific method+route on the protected
// subrouter. The handler is wrapped with the check of the route permission.
func (p *blogwww) addRoute(method string, route string, handler http.HandlerFunc, perm permission) {
	switch perm {
	case permissionAdmin:
		handler = p.isLoggedInAsAdmin(handler)
	case permissionLogin:
		handler = p.isLoggedIn(handler)
	}

	p.protected.HandleFunc(route, handler).Methods(method)
}
