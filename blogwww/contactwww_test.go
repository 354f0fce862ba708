// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/blog"
	"github.com/decred/dcrblog/blogwww/mail"
	"github.com/google/go-cmp/cmp"
)

func TestHandleContact(t *testing.T) {
	p, mailer, cleanup := newTestBlogwww(t, nil)
	defer cleanup()

	c := newTestClient(t, p)
	form := url.Values{
		"name":    []string{"Visitor"},
		"email":   []string{"visitor@example.org"},
		"phone":   []string{"555-0100"},
		"message": []string{"Hello there"},
	}

	// Missing message
	missing := url.Values{}
	for k, v := range form {
		missing[k] = v
	}
	missing.Del("message")
	res, body := c.post(v1.RouteContact, missing)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("got status %v, want %v", res.StatusCode,
			http.StatusBadRequest)
	}
	if !strings.Contains(body, "This field is required.") {
		t.Errorf("required error not found in body: %v", body)
	}
	if n := len(mailer.Sent()); n != 0 {
		t.Fatalf("got %v emails, want 0", n)
	}

	// Send the message
	res, body = c.post(v1.RouteContact, form)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("got status %v, want %v", res.StatusCode, http.StatusOK)
	}
	if !strings.Contains(body, "Successfully sent your message") {
		t.Errorf("success message not found in body: %v", body)
	}
	sent := mailer.Sent()
	if len(sent) != 1 {
		t.Fatalf("got %v emails, want 1", len(sent))
	}
	if sent[0].Subject != "New Message" {
		t.Errorf("got subject %v, want New Message", sent[0].Subject)
	}
	wantRecipients := []string{p.cfg.ContactAddress}
	if diff := cmp.Diff(wantRecipients, sent[0].Recipients); diff != "" {
		t.Errorf("recipients mismatch (-want +got):\n%v", diff)
	}
	for _, v := range []string{"Visitor", "visitor@example.org",
		"555-0100", "Hello there"} {
		if !strings.Contains(sent[0].Body, v) {
			t.Errorf("%q not found in email: %v", v, sent[0].Body)
		}
	}
}

func TestHandleContactDeliveryError(t *testing.T) {
	p, mailer, cleanup := newTestBlogwww(t, nil)
	defer cleanup()

	mailer.Err = mail.DeliveryError{
		Err: errors.New("535 authentication failed"),
	}

	c := newTestClient(t, p)
	res, _ := c.post(v1.RouteContact, url.Values{
		"name":    []string{"Visitor"},
		"email":   []string{"visitor@example.org"},
		"message": []string{"Hello there"},
	})
	if res.StatusCode != http.StatusFound {
		t.Fatalf("got status %v, want %v", res.StatusCode,
			http.StatusFound)
	}
	if loc := res.Header.Get("Location"); loc != v1.RouteContact {
		t.Errorf("got location %v, want %v", loc, v1.RouteContact)
	}
	_, body := c.get(v1.RouteContact)
	if !strings.Contains(body, "could not be sent") {
		t.Errorf("delivery failure flash not found: %v", body)
	}
	if strings.Contains(body, "Successfully sent your message") {
		t.Errorf("success message shown after a delivery failure")
	}
}

func TestHandleContactMailDisabled(t *testing.T) {
	p, mailer, cleanup := newTestBlogwww(t, nil)
	defer cleanup()

	// Default config without mail credentials
	mailer.IsEnabledFunc = func() bool { return false }
	var err error
	p.blog, err = blog.New(p.db, mailer, blog.Opts{
		WebServerAddress: p.cfg.WebServerAddress,
		TokenKey:         deriveKey([]byte("test secret"), keyResetToken),
		Test:             true,
	})
	if err != nil {
		t.Fatal(err)
	}

	c := newTestClient(t, p)
	res, body := c.post(v1.RouteContact, url.Values{
		"name":    []string{"Visitor"},
		"email":   []string{"visitor@example.org"},
		"message": []string{"Hello there"},
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("got status %v, want %v", res.StatusCode,
			http.StatusOK)
	}
	if strings.Contains(body, "error code") {
		t.Errorf("error page rendered: %v", body)
	}
	if n := len(mailer.Sent()); n != 0 {
		t.Errorf("got %v emails, want 0", n)
	}
}

func TestHandleContactPrefill(t *testing.T) {
	p, _, cleanup := newTestBlogwww(t, nil)
	defer cleanup()

	u := newUser(t, p, "user@example.org", false)
	c := newTestClient(t, p)
	c.login(u.Email, testPassword)

	_, body := c.get(v1.RouteContact)
	if !strings.Contains(body, `value="`+u.Email+`"`) {
		t.Errorf("contact form is not prefilled: %v", body)
	}
}
