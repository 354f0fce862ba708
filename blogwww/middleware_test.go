// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/gorilla/mux"
)

func TestReqBodySizeLimitMiddleware(t *testing.T) {
	// Setup the test router
	router := mux.NewRouter()
	m := middleware{
		reqBodySizeLimit: 5,
	}
	router.Use(closeBodyMiddleware)
	router.Use(m.reqBodySizeLimitMiddleware)

	// Setup a route handler that reads the request body. Reading
	// the request body is required in order to trigger the error.
	testRoute := "/test"
	router.HandleFunc(testRoute, func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Setup test request bodies
	const (
		fourBytes = "1234"
		fiveBytes = "12345"
		sixBytes  = "123456"
	)

	// Setup tests
	var tests = []struct {
		name     string
		reqBody  string
		wantCode int
	}{
		{
			"no request body",
			"",
			http.StatusOK,
		},
		{
			"under the req body limit",
			fourBytes,
			http.StatusOK,
		},
		{
			"at the req body limit",
			fiveBytes,
			http.StatusOK,
		},
		{
			"over the req body limit",
			sixBytes,
			http.StatusBadRequest,
		},
	}

	// Run tests
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Setup the test request
			req, err := http.NewRequest(http.MethodPost,
				testRoute, strings.NewReader(tc.reqBody))
			if err != nil {
				t.Fatal(err)
			}

			// Send the test request
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			// Verify the response
			if rr.Code != tc.wantCode {
				t.Errorf("wrong http response code: got %v, want %v",
					rr.Code, tc.wantCode)
			}
		})
	}
}

func TestReqBodySizeLimitForm(t *testing.T) {
	p, mailer, cleanup := newTestBlogwww(t, nil)
	defer cleanup()

	p.cfg.ReqBodySizeLimit = 64
	p.setupRouter(nil)
	p.setupRoutes()

	// A form that exceeds the limit can not be parsed and sends the
	// client back to the form.
	c := newTestClient(t, p)
	res, _ := c.post(v1.RouteContact, url.Values{
		"name":    []string{"Visitor"},
		"email":   []string{"visitor@example.org"},
		"message": []string{strings.Repeat("a", 128)},
	})
	if res.StatusCode != http.StatusFound {
		t.Fatalf("got status %v, want %v", res.StatusCode,
			http.StatusFound)
	}
	if loc := res.Header.Get("Location"); loc != v1.RouteContact {
		t.Errorf("got location %v, want %v", loc, v1.RouteContact)
	}
	if n := len(mailer.Sent()); n != 0 {
		t.Errorf("got %v emails, want 0", n)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	p, _, cleanup := newTestBlogwww(t, nil)
	defer cleanup()

	p.router.HandleFunc("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	c := newTestClient(t, p)
	res, body := c.get("/panic")
	if res.StatusCode != http.StatusInternalServerError {
		t.Errorf("got status %v, want %v", res.StatusCode,
			http.StatusInternalServerError)
	}
	if !strings.Contains(body, "error code") {
		t.Errorf("error code not found in body: %v", body)
	}
}

func TestRoutePermissions(t *testing.T) {
	p, _, cleanup := newTestBlogwww(t, nil)
	defer cleanup()

	admin := newUser(t, p, "admin@example.org", true)
	newUser(t, p, "user@example.org", false)
	post := newPost(t, p, admin, "first")

	anon := newTestClient(t, p)
	user := newTestClient(t, p)
	user.login("user@example.org", testPassword)
	adm := newTestClient(t, p)
	adm.login("admin@example.org", testPassword)

	// Setup tests
	var tests = []struct {
		name         string
		client       *testClient
		path         string
		wantStatus   int
		wantLocation string
	}{
		{"anonymous new post", anon, v1.RouteNewPost,
			http.StatusForbidden, ""},
		{"user new post", user, v1.RouteNewPost,
			http.StatusForbidden, ""},
		{"admin new post", adm, v1.RouteNewPost,
			http.StatusOK, ""},
		{"anonymous edit post", anon, v1.EditPostPath(post.ID),
			http.StatusForbidden, ""},
		{"user edit post", user, v1.EditPostPath(post.ID),
			http.StatusForbidden, ""},
		{"admin edit post", adm, v1.EditPostPath(post.ID),
			http.StatusOK, ""},
		{"user delete post", user, v1.DeletePostPath(post.ID),
			http.StatusForbidden, ""},
		{"anonymous post page", anon, v1.PostPath(post.ID),
			http.StatusOK, ""},
		{"post not found", anon, v1.PostPath(post.ID + 1),
			http.StatusNotFound, ""},
		{"invalid route", anon, "/invalid",
			http.StatusNotFound, ""},
		{"user logout", user, v1.RouteLogout,
			http.StatusFound, v1.RouteIndex},
		{"anonymous logout", anon, v1.RouteLogout,
			http.StatusFound, v1.RouteIndex},
	}

	// Run tests
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, _ := tc.client.get(tc.path)
			if res.StatusCode != tc.wantStatus {
				t.Errorf("got status %v, want %v", res.StatusCode,
					tc.wantStatus)
			}
			if loc := res.Header.Get("Location"); loc != tc.wantLocation {
				t.Errorf("got location %v, want %v", loc,
					tc.wantLocation)
			}
		})
	}

	// The user was logged out by the test above
	res, _ := user.get(v1.RouteNewPost)
	if res.StatusCode != http.StatusForbidden {
		t.Errorf("got status %v, want %v", res.StatusCode,
			http.StatusForbidden)
	}
	_, body := user.get(v1.RouteIndex)
	if strings.Contains(body, "Log Out") {
		t.Errorf("logged out user is shown the logout link")
	}
}

func TestIdentityDeletedSession(t *testing.T) {
	p, _, cleanup := newTestBlogwww(t, nil)
	defer cleanup()

	u := newUser(t, p, "user@example.org", false)
	c := newTestClient(t, p)
	c.login(u.Email, testPassword)

	_, body := c.get(v1.RouteIndex)
	if !strings.Contains(body, "Log Out") {
		t.Fatalf("logged in user is not shown the logout link")
	}

	// A session cookie of a session that has been removed from the
	// session store is treated as an anonymous session.
	p.sessions.DelSession(httptest.NewRecorder(), func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, v1.RouteIndex, nil)
		for _, v := range c.cookies {
			r.AddCookie(v)
		}
		return r
	}())
	res, body := c.get(v1.RouteIndex)
	if res.StatusCode != http.StatusOK {
		t.Errorf("got status %v, want %v", res.StatusCode, http.StatusOK)
	}
	if strings.Contains(body, "Log Out") {
		t.Errorf("deleted session is still logged in")
	}
}
