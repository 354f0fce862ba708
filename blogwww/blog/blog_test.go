// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/database/gormdb"
	"github.com/decred/dcrblog/blogwww/mail/mock"
)

const (
	adminEmail     = "admin@example.org"
	contactAddress = "owner@example.org"
	webServerAddr  = "https://blog.example.org"
)

// newTestBlog returns a Blog context that is backed by an in-memory SQLite
// database and a mock mailer. The opts are applied on top of the test
// defaults.
func newTestBlog(t *testing.T, modify func(*Opts)) (*Blog, *mock.MailerMock) {
	t.Helper()

	db, err := gormdb.New(gormdb.DBTypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("gormdb.New: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	opts := Opts{
		AdminEmails:      []string{adminEmail},
		WebServerAddress: webServerAddr,
		ContactAddress:   contactAddress,
		TokenKey:         []byte("0123456789abcdef0123456789abcdef"),
		Test:             true,
	}
	if modify != nil {
		modify(&opts)
	}

	m := &mock.MailerMock{}
	b, err := New(db, m, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, m
}

// errorCode returns the error code of a user error or -1 if the error is not
// a user error.
func errorCode(err error) v1.ErrorCodeT {
	var ue v1.UserError
	if errors.As(err, &ue) {
		return ue.ErrorCode
	}
	return -1
}

// newTestUser registers a new user.
func newTestUser(t *testing.T, b *Blog, email, password string) *database.User {
	t.Helper()

	u, err := b.Register(context.Background(), email, "User "+email, password)
	if err != nil {
		t.Fatalf("Register %v: %v", email, err)
	}
	return u
}

// newTestPost creates a new post using the admin account.
func newTestPost(t *testing.T, b *Blog, admin *database.User, title string) *database.Post {
	t.Helper()

	p, err := b.CreatePost(context.Background(), admin, v1.Post{
		Title:    title,
		Subtitle: "subtitle",
		ImgURL:   "https://example.org/img.png",
		Body:     "<p>body</p>",
	})
	if err != nil {
		t.Fatalf("CreatePost %v: %v", title, err)
	}
	return p
}

func TestRegister(t *testing.T) {
	b, _ := newTestBlog(t, nil)
	ctx := context.Background()

	u := newTestUser(t, b, "jo@example.org", "password")
	if u.Admin {
		t.Errorf("regular user was granted the admin role")
	}
	if string(u.HashedPassword) == "password" {
		t.Errorf("password was stored in plain text")
	}

	// Duplicate registration
	_, err := b.Register(ctx, "jo@example.org", "Other", "other")
	if got := errorCode(err); got != v1.ErrorCodeDuplicateUser {
		t.Errorf("got error code %v, want %v", got,
			v1.ErrorCodeDuplicateUser)
	}

	// Only one account exists for the email
	var count int
	err = b.db.AllUsers(ctx, func(u *database.User) {
		if u.Email == "jo@example.org" {
			count++
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("got %v users with the email, want 1", count)
	}

	// Admin emails are granted the admin role
	admin := newTestUser(t, b, adminEmail, "password")
	if !admin.Admin {
		t.Errorf("admin email was not granted the admin role")
	}
}

func TestLogin(t *testing.T) {
	b, _ := newTestBlog(t, nil)
	ctx := context.Background()

	u := newTestUser(t, b, "jo@example.org", "password")

	var tests = []struct {
		name     string
		email    string
		password string
		want     v1.ErrorCodeT
	}{
		{"unknown email", "sam@example.org", "password",
			v1.ErrorCodeUnknownEmail},
		{"emails are case sensitive", "JO@example.org", "password",
			v1.ErrorCodeUnknownEmail},
		{"wrong password", "jo@example.org", "wrong",
			v1.ErrorCodeInvalidPassword},
		{"success", "jo@example.org", "password", -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := b.Login(ctx, tc.email, tc.password)
			if code := errorCode(err); code != tc.want {
				t.Fatalf("got error code %v, want %v", code, tc.want)
			}
			if tc.want == -1 && got.ID != u.ID {
				t.Errorf("got user %v, want %v", got.ID, u.ID)
			}
		})
	}
}

func TestListRecent(t *testing.T) {
	b, _ := newTestBlog(t, nil)
	ctx := context.Background()
	admin := newTestUser(t, b, adminEmail, "password")

	for n := 0; n <= 5; n++ {
		if n > 0 {
			newTestPost(t, b, admin, fmt.Sprintf("post %v", n))
		}
		t.Run(fmt.Sprintf("%v posts", n), func(t *testing.T) {
			posts, err := b.ListRecent(ctx, v1.RecentPostsLimit)
			if err != nil {
				t.Fatal(err)
			}
			want := n
			if want > v1.RecentPostsLimit {
				want = v1.RecentPostsLimit
			}
			if len(posts) != want {
				t.Fatalf("got %v posts, want %v", len(posts), want)
			}
			for i, p := range posts {
				title := fmt.Sprintf("post %v", n-i)
				if p.Title != title {
					t.Errorf("got post %q at %v, want %q",
						p.Title, i, title)
				}
			}
		})
	}

	posts, err := b.ListRecent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 0 {
		t.Errorf("got %v posts for limit 0, want 0", len(posts))
	}

	posts, err = b.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 5 {
		t.Errorf("got %v posts, want 5", len(posts))
	}
}

func TestPostPermissions(t *testing.T) {
	b, _ := newTestBlog(t, nil)
	ctx := context.Background()
	admin := newTestUser(t, b, adminEmail, "password")
	user := newTestUser(t, b, "jo@example.org", "password")
	p := newTestPost(t, b, admin, "post")

	fields := v1.Post{
		Title:    "title",
		Subtitle: "subtitle",
		ImgURL:   "https://example.org/img.png",
		Body:     "body",
	}
	for _, actor := range []*database.User{nil, user} {
		_, err := b.CreatePost(ctx, actor, fields)
		if got := errorCode(err); got != v1.ErrorCodeForbidden {
			t.Errorf("CreatePost: got error code %v, want %v", got,
				v1.ErrorCodeForbidden)
		}
		_, err = b.UpdatePost(ctx, actor, p.ID, fields)
		if got := errorCode(err); got != v1.ErrorCodeForbidden {
			t.Errorf("UpdatePost: got error code %v, want %v", got,
				v1.ErrorCodeForbidden)
		}
		err = b.DeletePost(ctx, actor, p.ID)
		if got := errorCode(err); got != v1.ErrorCodeForbidden {
			t.Errorf("DeletePost: got error code %v, want %v", got,
				v1.ErrorCodeForbidden)
		}
	}

	// The post is unchanged
	pd, err := b.Post(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pd.Post.Title != "post" {
		t.Errorf("post was modified by a non-admin")
	}

	// Admin succeeds
	_, err = b.UpdatePost(ctx, admin, p.ID, fields)
	if err != nil {
		t.Errorf("UpdatePost: %v", err)
	}
	err = b.DeletePost(ctx, admin, p.ID)
	if err != nil {
		t.Errorf("DeletePost: %v", err)
	}
	_, err = b.Post(ctx, p.ID)
	if got := errorCode(err); got != v1.ErrorCodeNotFound {
		t.Errorf("got error code %v, want %v", got, v1.ErrorCodeNotFound)
	}

	// Missing posts
	_, err = b.UpdatePost(ctx, admin, 999, fields)
	if got := errorCode(err); got != v1.ErrorCodeNotFound {
		t.Errorf("got error code %v, want %v", got, v1.ErrorCodeNotFound)
	}
	err = b.DeletePost(ctx, admin, 999)
	if got := errorCode(err); got != v1.ErrorCodeNotFound {
		t.Errorf("got error code %v, want %v", got, v1.ErrorCodeNotFound)
	}
}

func TestCreatePost(t *testing.T) {
	b, _ := newTestBlog(t, nil)
	ctx := context.Background()
	admin := newTestUser(t, b, adminEmail, "password")

	fixed := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	p, err := b.CreatePost(ctx, admin, v1.Post{
		Title:    "title",
		Subtitle: "subtitle",
		ImgURL:   "https://example.org/img.png",
		Body:     `<p>hello</p><script>alert("x")</script>`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Date != "March 05, 2024" {
		t.Errorf("got date %q, want %q", p.Date, "March 05, 2024")
	}
	if strings.Contains(p.Body, "script") {
		t.Errorf("body was not sanitized: %v", p.Body)
	}
	if p.AuthorID != admin.ID {
		t.Errorf("got author %v, want %v", p.AuthorID, admin.ID)
	}
}

func TestUpdatePostAuthor(t *testing.T) {
	var tests = []struct {
		name             string
		legacyEditAuthor bool
		wantEditor       bool
	}{
		{"author is preserved", false, false},
		{"editor becomes the author", true, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := newTestBlog(t, func(o *Opts) {
				o.AdminEmails = append(o.AdminEmails,
					"editor@example.org")
				o.LegacyEditAuthor = tc.legacyEditAuthor
			})
			ctx := context.Background()
			author := newTestUser(t, b, adminEmail, "password")
			editor := newTestUser(t, b, "editor@example.org", "password")
			p := newTestPost(t, b, author, "post")

			_, err := b.UpdatePost(ctx, editor, p.ID, v1.Post{
				Title:    "edited",
				Subtitle: "subtitle",
				ImgURL:   "https://example.org/img.png",
				Body:     "body",
			})
			if err != nil {
				t.Fatal(err)
			}

			pd, err := b.Post(ctx, p.ID)
			if err != nil {
				t.Fatal(err)
			}
			want := author
			if tc.wantEditor {
				want = editor
			}
			if pd.Post.AuthorID != want.ID {
				t.Errorf("got author %v, want %v",
					pd.Post.AuthorName, want.Name)
			}
			if pd.Post.Title != "edited" || pd.Post.Date != p.Date {
				t.Errorf("unexpected post %+v", pd.Post)
			}
		})
	}
}

func TestComments(t *testing.T) {
	b, _ := newTestBlog(t, nil)
	ctx := context.Background()
	admin := newTestUser(t, b, adminEmail, "password")
	jo := newTestUser(t, b, "jo@example.org", "password")
	sam := newTestUser(t, b, "sam@example.org", "password")
	p := newTestPost(t, b, admin, "post")
	other := newTestPost(t, b, admin, "other")

	// Anonymous visitors can't comment
	_, err := b.AddComment(ctx, nil, p.ID, "hi")
	if got := errorCode(err); got != v1.ErrorCodeAuthRequired {
		t.Errorf("got error code %v, want %v", got,
			v1.ErrorCodeAuthRequired)
	}

	// Missing post
	_, err = b.AddComment(ctx, jo, 999, "hi")
	if got := errorCode(err); got != v1.ErrorCodeNotFound {
		t.Errorf("got error code %v, want %v", got, v1.ErrorCodeNotFound)
	}

	c, err := b.AddComment(ctx, jo, p.ID, "hi")
	if err != nil {
		t.Fatal(err)
	}
	if c.PostID != p.ID || c.AuthorID != jo.ID {
		t.Errorf("unexpected comment %+v", c)
	}
	pd, err := b.Post(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pd.Comments) != 1 || pd.Comments[0].AuthorName != jo.Name {
		t.Errorf("unexpected comments %+v", pd.Comments)
	}

	var tests = []struct {
		name   string
		actor  *database.User
		postID uint64
		want   v1.ErrorCodeT
	}{
		{"wrong post", jo, other.ID, v1.ErrorCodeNotFound},
		{"anonymous", nil, p.ID, v1.ErrorCodeAuthRequired},
		{"other user", sam, p.ID, v1.ErrorCodeForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := b.DeleteComment(ctx, tc.actor, c.ID, tc.postID)
			if got := errorCode(err); got != tc.want {
				t.Errorf("got error code %v, want %v", got, tc.want)
			}
		})
	}

	// The author and admins are allowed to delete comments
	err = b.DeleteComment(ctx, jo, c.ID, p.ID)
	if err != nil {
		t.Errorf("author DeleteComment: %v", err)
	}
	c2, err := b.AddComment(ctx, jo, p.ID, "again")
	if err != nil {
		t.Fatal(err)
	}
	err = b.DeleteComment(ctx, admin, c2.ID, p.ID)
	if err != nil {
		t.Errorf("admin DeleteComment: %v", err)
	}

	// Deleted comments are gone
	err = b.DeleteComment(ctx, admin, c2.ID, p.ID)
	if got := errorCode(err); got != v1.ErrorCodeNotFound {
		t.Errorf("got error code %v, want %v", got, v1.ErrorCodeNotFound)
	}
}

func TestLegacyCommentDelete(t *testing.T) {
	b, _ := newTestBlog(t, func(o *Opts) {
		o.LegacyCommentDelete = true
	})
	ctx := context.Background()
	admin := newTestUser(t, b, adminEmail, "password")
	jo := newTestUser(t, b, "jo@example.org", "password")
	p := newTestPost(t, b, admin, "post")

	c, err := b.AddComment(ctx, jo, p.ID, "hi")
	if err != nil {
		t.Fatal(err)
	}

	// The comment must still belong to the post
	err = b.DeleteComment(ctx, nil, c.ID, p.ID+1)
	if got := errorCode(err); got != v1.ErrorCodeNotFound {
		t.Errorf("got error code %v, want %v", got, v1.ErrorCodeNotFound)
	}

	// Anyone can delete the comment
	err = b.DeleteComment(ctx, nil, c.ID, p.ID)
	if err != nil {
		t.Errorf("DeleteComment: %v", err)
	}
}

func TestDeletePostCascade(t *testing.T) {
	b, _ := newTestBlog(t, nil)
	ctx := context.Background()
	admin := newTestUser(t, b, adminEmail, "password")
	p := newTestPost(t, b, admin, "post")
	c, err := b.AddComment(ctx, admin, p.ID, "hi")
	if err != nil {
		t.Fatal(err)
	}

	err = b.DeletePost(ctx, admin, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.db.CommentGet(ctx, c.ID)
	if !errors.Is(err, database.ErrCommentNotFound) {
		t.Errorf("got err %v, want %v", err, database.ErrCommentNotFound)
	}
}

func TestRecovery(t *testing.T) {
	b, m := newTestBlog(t, nil)
	ctx := context.Background()
	u := newTestUser(t, b, "jo@example.org", "old")

	// Unknown email
	_, err := b.RequestRecovery(ctx, "sam@example.org")
	if got := errorCode(err); got != v1.ErrorCodeUserNotFound {
		t.Errorf("got error code %v, want %v", got,
			v1.ErrorCodeUserNotFound)
	}

	rr, err := b.RequestRecovery(ctx, u.Email)
	if err != nil {
		t.Fatal(err)
	}
	sent := m.Sent()
	if len(sent) != 1 {
		t.Fatalf("got %v emails, want 1", len(sent))
	}
	if !strings.Contains(sent[0].Body, webServerAddr+"/reset-password/"+
		rr.Token) {
		t.Errorf("email does not contain the reset link: %v", sent[0].Body)
	}
	if !strings.Contains(sent[0].Body, "valid for\n1 hour") {
		t.Errorf("email does not contain the expiry: %v", sent[0].Body)
	}
	if sent[0].Recipients[0] != u.Email {
		t.Errorf("got recipient %v, want %v", sent[0].Recipients[0],
			u.Email)
	}

	// Invalid tokens
	err = b.ResetPassword(ctx, "garbage", "new", "new")
	if got := errorCode(err); got != v1.ErrorCodeInvalidOrExpiredToken {
		t.Errorf("got error code %v, want %v", got,
			v1.ErrorCodeInvalidOrExpiredToken)
	}
	other, _ := newTestBlog(t, func(o *Opts) {
		o.TokenKey = []byte("another key")
	})
	err = other.ResetPassword(ctx, rr.Token, "new", "new")
	if got := errorCode(err); got != v1.ErrorCodeInvalidOrExpiredToken {
		t.Errorf("got error code %v, want %v", got,
			v1.ErrorCodeInvalidOrExpiredToken)
	}

	// Mismatched passwords leave the password unchanged
	err = b.ResetPassword(ctx, rr.Token, "new", "other")
	if got := errorCode(err); got != v1.ErrorCodePasswordMismatch {
		t.Errorf("got error code %v, want %v", got,
			v1.ErrorCodePasswordMismatch)
	}
	_, err = b.Login(ctx, u.Email, "old")
	if err != nil {
		t.Errorf("old password no longer works: %v", err)
	}

	// Reset the password
	err = b.ResetPassword(ctx, rr.Token, "new", "new")
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Login(ctx, u.Email, "old")
	if got := errorCode(err); got != v1.ErrorCodeInvalidPassword {
		t.Errorf("got error code %v, want %v", got,
			v1.ErrorCodeInvalidPassword)
	}
	_, err = b.Login(ctx, u.Email, "new")
	if err != nil {
		t.Errorf("new password does not work: %v", err)
	}
	if len(m.Sent()) != 2 {
		t.Errorf("password changed notification was not sent")
	}

	// The token can only be used once
	err = b.ResetPassword(ctx, rr.Token, "newer", "newer")
	if got := errorCode(err); got != v1.ErrorCodeInvalidOrExpiredToken {
		t.Errorf("got error code %v, want %v", got,
			v1.ErrorCodeInvalidOrExpiredToken)
	}
}

func TestRecoveryExpiredToken(t *testing.T) {
	b, _ := newTestBlog(t, nil)
	ctx := context.Background()
	u := newTestUser(t, b, "jo@example.org", "old")

	rr, err := b.RequestRecovery(ctx, u.Email)
	if err != nil {
		t.Fatal(err)
	}

	// Still valid just before the expiry
	b.now = func() time.Time {
		return time.Now().Add(DefaultTokenExpiry - time.Minute)
	}
	_, err = b.VerifyResetToken(ctx, rr.Token)
	if err != nil {
		t.Errorf("VerifyResetToken: %v", err)
	}

	b.now = func() time.Time {
		return time.Now().Add(DefaultTokenExpiry + time.Minute)
	}
	err = b.ResetPassword(ctx, rr.Token, "new", "new")
	if got := errorCode(err); got != v1.ErrorCodeInvalidOrExpiredToken {
		t.Errorf("got error code %v, want %v", got,
			v1.ErrorCodeInvalidOrExpiredToken)
	}
}

func TestRecoveryDeliveryError(t *testing.T) {
	b, m := newTestBlog(t, nil)
	ctx := context.Background()
	u := newTestUser(t, b, "jo@example.org", "old")

	m.Err = errors.New("smtp down")
	_, err := b.RequestRecovery(ctx, u.Email)
	if !errors.Is(err, m.Err) {
		t.Errorf("got err %v, want %v", err, m.Err)
	}
}

func TestContact(t *testing.T) {
	b, m := newTestBlog(t, nil)

	err := b.Contact(context.Background(), v1.Contact{
		Name:    "Jo",
		Email:   "jo@example.org",
		Phone:   "555-0100",
		Message: "Hello there",
	})
	if err != nil {
		t.Fatal(err)
	}

	sent := m.Sent()
	if len(sent) != 1 {
		t.Fatalf("got %v emails, want 1", len(sent))
	}
	e := sent[0]
	if e.Subject != "New Message" {
		t.Errorf("got subject %q, want %q", e.Subject, "New Message")
	}
	if len(e.Recipients) != 1 || e.Recipients[0] != contactAddress {
		t.Errorf("got recipients %v, want %v", e.Recipients,
			contactAddress)
	}
	for _, want := range []string{"Name: Jo", "Email: jo@example.org",
		"Phone: 555-0100", "Message:Hello there"} {
		if !strings.Contains(e.Body, want) {
			t.Errorf("body is missing %q:\n%v", want, e.Body)
		}
	}
}

func TestPasswordTooLong(t *testing.T) {
	b, _ := newTestBlog(t, nil)
	ctx := context.Background()

	var (
		longest  = strings.Repeat("p", PasswordMaxBytes)
		tooLong  = strings.Repeat("p", PasswordMaxBytes+1)
		multiple = strings.Repeat("é", PasswordMaxBytes/2+1) // 2 bytes each
	)

	// Register
	_, err := b.Register(ctx, "long@example.org", "L", tooLong)
	if got := errorCode(err); got != v1.ErrorCodeInvalidInput {
		t.Errorf("got error code %v, want %v", got,
			v1.ErrorCodeInvalidInput)
	}
	_, err = b.Register(ctx, "wide@example.org", "W", multiple)
	if got := errorCode(err); got != v1.ErrorCodeInvalidInput {
		t.Errorf("multibyte: got error code %v, want %v", got,
			v1.ErrorCodeInvalidInput)
	}
	u := newTestUser(t, b, "jo@example.org", longest)

	// Reset password
	rr, err := b.RequestRecovery(ctx, u.Email)
	if err != nil {
		t.Fatal(err)
	}
	err = b.ResetPassword(ctx, rr.Token, tooLong, tooLong)
	if got := errorCode(err); got != v1.ErrorCodeInvalidInput {
		t.Errorf("got error code %v, want %v", got,
			v1.ErrorCodeInvalidInput)
	}
	_, err = b.Login(ctx, u.Email, longest)
	if err != nil {
		t.Errorf("password was changed: %v", err)
	}
}

func TestContactMailDisabled(t *testing.T) {
	b, m := newTestBlog(t, func(o *Opts) {
		o.ContactAddress = ""
	})
	m.IsEnabledFunc = func() bool { return false }

	c := v1.Contact{
		Name:    "Jo",
		Email:   "jo@example.org",
		Message: "Hello there",
	}
	err := b.Contact(context.Background(), c)
	if err != nil {
		t.Fatalf("Contact: %v", err)
	}
	if n := len(m.Sent()); n != 0 {
		t.Errorf("got %v emails, want 0", n)
	}

	// An enabled mailer requires the contact address
	m.IsEnabledFunc = nil
	err = b.Contact(context.Background(), c)
	if err == nil {
		t.Errorf("got nil error for a missing contact address")
	}
}

func TestExpiryText(t *testing.T) {
	var tests = []struct {
		in   time.Duration
		want string
	}{
		{time.Hour, "1 hour"},
		{3 * time.Hour, "3 hours"},
		{90 * time.Minute, "90 minutes"},
		{time.Minute, "1 minute"},
		{30*time.Second + time.Minute, "2 minutes"},
	}
	for _, tc := range tests {
		t.Run(tc.in.String(), func(t *testing.T) {
			got := expiryText(tc.in)
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
