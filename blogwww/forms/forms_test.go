// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package forms

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/google/go-cmp/cmp"
)

// newFormRequest returns a POST request with a url encoded form body.
func newFormRequest(form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestDecodeRegister(t *testing.T) {
	var tests = []struct {
		name     string
		form     url.Values
		want     v1.Register
		wantErrs Errors
	}{
		{
			"valid",
			url.Values{
				"email":              {" jo@example.org "},
				"password":           {"hunter2"},
				"name":               {"Jo"},
				"gorilla.csrf.Token": {"token"},
			},
			v1.Register{
				Email:    "jo@example.org",
				Password: "hunter2",
				Name:     "Jo",
			},
			nil,
		},
		{
			"missing fields",
			url.Values{
				"email": {"jo@example.org"},
			},
			v1.Register{
				Email: "jo@example.org",
			},
			Errors{
				"password": "This field is required.",
				"name":     "This field is required.",
			},
		},
		{
			"password too long",
			url.Values{
				"email":    {"jo@example.org"},
				"password": {strings.Repeat("é", 37)},
				"name":     {"Jo"},
			},
			v1.Register{
				Email:    "jo@example.org",
				Password: strings.Repeat("é", 37),
				Name:     "Jo",
			},
			Errors{
				"password": "Field cannot be longer than 72 bytes.",
			},
		},
		{
			"invalid email",
			url.Values{
				"email":    {"not-an-email"},
				"password": {"hunter2"},
				"name":     {"Jo"},
			},
			v1.Register{
				Email:    "not-an-email",
				Password: "hunter2",
				Name:     "Jo",
			},
			Errors{
				"email": "Invalid email address.",
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got v1.Register
			errs, err := Decode(newFormRequest(tc.form), &got)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("form mismatch (-want +got):\n%v", diff)
			}
			if diff := cmp.Diff(tc.wantErrs, errs); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%v", diff)
			}
		})
	}
}

func TestDecodeComment(t *testing.T) {
	var tests = []struct {
		name    string
		text    string
		wantErr string
	}{
		{"empty", "", "This field is required."},
		{"whitespace", "   ", "This field is required."},
		{"single char", "a", ""},
		{"max length", strings.Repeat("a", v1.CommentTextMaxLength), ""},
		{
			"too long",
			strings.Repeat("a", v1.CommentTextMaxLength+1),
			"Field cannot be longer than 5000 characters.",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var c v1.Comment
			form := url.Values{"comment_text": {tc.text}}
			errs, err := Decode(newFormRequest(form), &c)
			if err != nil {
				t.Fatal(err)
			}
			if got := errs.Get("comment_text"); got != tc.wantErr {
				t.Errorf("got %q, want %q", got, tc.wantErr)
			}
		})
	}
}

func TestDecodePost(t *testing.T) {
	form := url.Values{
		"title":    {"Title"},
		"subtitle": {"Subtitle"},
		"img_url":  {"not a url"},
		"body":     {"<p>Body</p>"},
	}
	var p v1.Post
	errs, err := Decode(newFormRequest(form), &p)
	if err != nil {
		t.Fatal(err)
	}
	want := Errors{"img_url": "Invalid URL."}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%v", diff)
	}
}
