// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/blog"
	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/database/gormdb"
	"github.com/decred/dcrblog/blogwww/mail/mock"
	"github.com/decred/dcrblog/blogwww/sessions"
	"github.com/decred/dcrblog/util"
)

// testPassword is the password of the users that are created by newUser.
const testPassword = "password"

// newUser registers a new user with the password testPassword. The user is
// given the admin role when isAdmin is set.
func newUser(t *testing.T, p *blogwww, email string, isAdmin bool) *database.User {
	t.Helper()

	ctx := context.Background()
	u, err := p.blog.Register(ctx, email, "User "+email, testPassword)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if isAdmin {
		u.Admin = true
		err = p.db.UserUpdate(ctx, *u)
		if err != nil {
			t.Fatalf("UserUpdate: %v", err)
		}
	}
	return u
}

// newPost creates a new post that is authored by the provided admin.
func newPost(t *testing.T, p *blogwww, admin *database.User, title string) *database.Post {
	t.Helper()

	post, err := p.blog.CreatePost(context.Background(), admin, v1.Post{
		Title:    title,
		Subtitle: "Subtitle of " + title,
		ImgURL:   "https://images.example.org/" + title + ".png",
		Body:     "<p>Body of " + title + "</p>",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return post
}

// newTestBlogwww returns a new blogwww context that is setup for testing
// and a closure that cleans up the test environment when invoked. The
// context is backed by an in-memory SQLite database and a mock mailer. CSRF
// protection is enabled when csrfKey is not nil.
func newTestBlogwww(t *testing.T, csrfKey []byte) (*blogwww, *mock.MailerMock, func()) {
	t.Helper()

	// Make a temp directory for test data. Temp directory
	// is removed in the returned closure.
	dataDir, err := os.MkdirTemp("", "blogwww.test")
	if err != nil {
		t.Fatalf("open tmp dir: %v", err)
	}

	// Setup logging
	initLogRotator(filepath.Join(dataDir, "blogwww.test.log"))
	setLogLevels("off")

	// Setup config
	cfg := &config{
		DataDir:          dataDir,
		DBType:           dbTypeSQLite,
		DBURI:            ":memory:",
		WebServerAddress: "https://blog.example.org",
		ContactAddress:   "owner@example.org",
		ReqBodySizeLimit: defaultReqBodySizeLimit,
	}

	// Setup database
	db, err := gormdb.New(gormdb.DBTypeSQLite, cfg.DBURI)
	if err != nil {
		t.Fatalf("setup database: %v", err)
	}

	// Setup sessions
	secret, err := util.Random(secretKeyLength)
	if err != nil {
		t.Fatalf("create secret key: %v", err)
	}

	// Setup blogwww context
	mailer := &mock.MailerMock{}
	p := &blogwww{
		cfg:  cfg,
		db:   db,
		mail: mailer,
		sessions: sessions.New(db, sessions.SessionMaxAge,
			deriveKey(secret, keySessionAuth),
			deriveKey(secret, keySessionEncrypt)),
	}
	p.blog, err = blog.New(db, mailer, blog.Opts{
		WebServerAddress: cfg.WebServerAddress,
		ContactAddress:   cfg.ContactAddress,
		TokenKey:         deriveKey(secret, keyResetToken),
		Test:             true,
	})
	if err != nil {
		t.Fatalf("setup blog: %v", err)
	}
	p.templates, err = loadTemplates("")
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	// Setup routes
	p.setupRouter(csrfKey)
	p.setupRoutes()

	// The cleanup is handled using a closure so that the temp dir
	// can be deleted using the local variable and not cfg.DataDir.
	return p, mailer, func() {
		t.Helper()

		err := db.Close()
		if err != nil {
			t.Fatalf("close db: %v", err)
		}

		err = logRotator.Close()
		if err != nil {
			t.Fatalf("close log rotator: %v", err)
		}

		err = os.RemoveAll(dataDir)
		if err != nil {
			t.Fatalf("remove tmp dir: %v", err)
		}
	}
}

// testClient sends requests to the blogwww router and carries the cookies
// that are set by the responses, the way that a browser would.
type testClient struct {
	t       *testing.T
	p       *blogwww
	cookies map[string]*http.Cookie
}

// newTestClient returns a new test client without any cookies.
func newTestClient(t *testing.T, p *blogwww) *testClient {
	return &testClient{
		t:       t,
		p:       p,
		cookies: make(map[string]*http.Cookie),
	}
}

// do sends the request and returns the response along with its body.
func (c *testClient) do(r *http.Request) (*http.Response, string) {
	c.t.Helper()

	for _, v := range c.cookies {
		r.AddCookie(v)
	}

	w := httptest.NewRecorder()
	c.p.router.ServeHTTP(w, r)
	res := w.Result()

	for _, v := range res.Cookies() {
		if v.MaxAge < 0 {
			delete(c.cookies, v.Name)
			continue
		}
		c.cookies[v.Name] = v
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return res, string(body)
}

// get sends a GET request.
func (c *testClient) get(path string) (*http.Response, string) {
	c.t.Helper()

	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// post sends a POST request with an url encoded form.
func (c *testClient) post(path string, form url.Values) (*http.Response, string) {
	c.t.Helper()

	r := httptest.NewRequest(http.MethodPost, path,
		strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(r)
}

// login logs the client in.
func (c *testClient) login(email, password string) {
	c.t.Helper()

	res, _ := c.post(v1.RouteLogin, url.Values{
		"email":    []string{email},
		"password": []string{password},
	})
	if res.StatusCode != http.StatusFound ||
		res.Header.Get("Location") != v1.RouteIndex {
		c.t.Fatalf("login %v: got %v %v", email, res.StatusCode,
			res.Header.Get("Location"))
	}
}
