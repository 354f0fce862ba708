// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gormdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/sessions"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// newTestDB returns a new gormdb that is backed by an in-memory SQLite
// database.
func newTestDB(t *testing.T) *gormdb {
	t.Helper()

	g, err := New(DBTypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		g.Close()
	})
	return g
}

// newTestUser creates a new user in the database and returns it.
func newTestUser(t *testing.T, g *gormdb, email, name string) database.User {
	t.Helper()

	u := database.User{
		ID:             uuid.New(),
		Email:          email,
		Name:           name,
		HashedPassword: []byte("hash"),
		CreatedAt:      time.Now().Unix(),
	}
	err := g.UserNew(context.Background(), u)
	if err != nil {
		t.Fatalf("UserNew: %v", err)
	}
	return u
}

// newTestPost creates a new post in the database and returns it.
func newTestPost(t *testing.T, g *gormdb, author uuid.UUID, title string) database.Post {
	t.Helper()

	p, err := g.PostNew(context.Background(), database.Post{
		Title:    title,
		Subtitle: "subtitle",
		Body:     "<p>body</p>",
		ImgURL:   "https://example.org/img.png",
		Date:     "January 02, 2006",
		AuthorID: author,
	})
	if err != nil {
		t.Fatalf("PostNew: %v", err)
	}
	return *p
}

func TestUsers(t *testing.T) {
	g := newTestDB(t)
	ctx := context.Background()

	u := newTestUser(t, g, "jo@example.org", "Jo")

	// Duplicate email
	dup := u
	dup.ID = uuid.New()
	err := g.UserNew(ctx, dup)
	if !errors.Is(err, database.ErrUserExists) {
		t.Errorf("got err %v, want %v", err, database.ErrUserExists)
	}

	// Email lookups are case sensitive
	_, err = g.UserGetByEmail(ctx, "JO@example.org")
	if !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("got err %v, want %v", err, database.ErrUserNotFound)
	}

	got, err := g.UserGetByEmail(ctx, u.Email)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(u, *got); diff != "" {
		t.Errorf("user mismatch (-want +got):\n%v", diff)
	}

	// Update
	u.Admin = true
	u.HashedPassword = []byte("newhash")
	err = g.UserUpdate(ctx, u)
	if err != nil {
		t.Fatal(err)
	}
	got, err = g.UserGetByID(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(u, *got); diff != "" {
		t.Errorf("user mismatch (-want +got):\n%v", diff)
	}

	// Unknown user
	_, err = g.UserGetByID(ctx, uuid.New())
	if !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("got err %v, want %v", err, database.ErrUserNotFound)
	}
	missing := u
	missing.ID = uuid.New()
	missing.Email = "missing@example.org"
	err = g.UserUpdate(ctx, missing)
	if !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("got err %v, want %v", err, database.ErrUserNotFound)
	}

	// All users
	newTestUser(t, g, "sam@example.org", "Sam")
	var count int
	err = g.AllUsers(ctx, func(u *database.User) {
		count++
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("got %v users, want 2", count)
	}
}

func TestPosts(t *testing.T) {
	g := newTestDB(t)
	ctx := context.Background()

	u := newTestUser(t, g, "jo@example.org", "Jo")
	var ids []uint64
	for _, title := range []string{"one", "two", "three", "four"} {
		p := newTestPost(t, g, u.ID, title)
		ids = append(ids, p.ID)
	}

	// Posts are returned newest first
	posts, err := g.Posts(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	var titles []string
	for _, v := range posts {
		titles = append(titles, v.Title)
		if v.AuthorName != "Jo" {
			t.Errorf("got author %v, want Jo", v.AuthorName)
		}
	}
	want := []string{"four", "three", "two"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%v", diff)
	}

	// A limit <= 0 returns all posts
	posts, err = g.Posts(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 4 {
		t.Errorf("got %v posts, want 4", len(posts))
	}

	// Update
	p, err := g.PostGet(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	p.Title = "updated"
	err = g.PostUpdate(ctx, p.Post)
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.PostGet(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("post mismatch (-want +got):\n%v", diff)
	}

	// Missing posts
	_, err = g.PostGet(ctx, 999)
	if !errors.Is(err, database.ErrPostNotFound) {
		t.Errorf("got err %v, want %v", err, database.ErrPostNotFound)
	}
	err = g.PostUpdate(ctx, database.Post{ID: 999, AuthorID: u.ID})
	if !errors.Is(err, database.ErrPostNotFound) {
		t.Errorf("got err %v, want %v", err, database.ErrPostNotFound)
	}
	err = g.PostDel(ctx, 999)
	if !errors.Is(err, database.ErrPostNotFound) {
		t.Errorf("got err %v, want %v", err, database.ErrPostNotFound)
	}
}

func TestCommentsCascade(t *testing.T) {
	g := newTestDB(t)
	ctx := context.Background()

	jo := newTestUser(t, g, "jo@example.org", "Jo")
	sam := newTestUser(t, g, "sam@example.org", "Sam")
	p := newTestPost(t, g, jo.ID, "post")
	other := newTestPost(t, g, jo.ID, "other")

	for i, author := range []uuid.UUID{sam.ID, jo.ID} {
		_, err := g.CommentNew(ctx, database.Comment{
			Text:     []string{"first", "second"}[i],
			AuthorID: author,
			PostID:   p.ID,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	keep, err := g.CommentNew(ctx, database.Comment{
		Text:     "keep",
		AuthorID: sam.ID,
		PostID:   other.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Comments are returned oldest first with their author
	cs, err := g.CommentsByPost(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 2 {
		t.Fatalf("got %v comments, want 2", len(cs))
	}
	if cs[0].Text != "first" || cs[0].AuthorName != "Sam" ||
		cs[0].AuthorEmail != "sam@example.org" {
		t.Errorf("unexpected first comment %+v", cs[0])
	}
	if cs[1].Text != "second" || cs[1].AuthorName != "Jo" {
		t.Errorf("unexpected second comment %+v", cs[1])
	}

	// Deleting the post deletes its comments only
	err = g.PostDel(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.CommentGet(ctx, cs[0].ID)
	if !errors.Is(err, database.ErrCommentNotFound) {
		t.Errorf("got err %v, want %v", err, database.ErrCommentNotFound)
	}
	_, err = g.CommentGet(ctx, keep.ID)
	if err != nil {
		t.Errorf("comment of other post was deleted: %v", err)
	}

	// Delete a single comment
	err = g.CommentDel(ctx, keep.ID)
	if err != nil {
		t.Fatal(err)
	}
	err = g.CommentDel(ctx, keep.ID)
	if !errors.Is(err, database.ErrCommentNotFound) {
		t.Errorf("got err %v, want %v", err, database.ErrCommentNotFound)
	}
}

func TestSessions(t *testing.T) {
	g := newTestDB(t)

	_, err := g.Get("missing")
	if !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("got err %v, want %v", err, sessions.ErrNotFound)
	}

	// Insert and update
	err = g.Save("sid", sessions.EncodedSession{Values: "a"})
	if err != nil {
		t.Fatal(err)
	}
	err = g.Save("sid", sessions.EncodedSession{Values: "b"})
	if err != nil {
		t.Fatal(err)
	}
	s, err := g.Get("sid")
	if err != nil {
		t.Fatal(err)
	}
	if s.Values != "b" {
		t.Errorf("got values %v, want b", s.Values)
	}

	// Prune. Only sessions that were saved before the cutoff are
	// deleted.
	n, err := g.DelExpired(time.Now().Add(-time.Hour).Unix())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("got %v deleted sessions, want 0", n)
	}
	n, err = g.DelExpired(time.Now().Add(time.Hour).Unix())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("got %v deleted sessions, want 1", n)
	}

	// Delete is idempotent
	err = g.Del("sid")
	if err != nil {
		t.Errorf("Del: %v", err)
	}
}

func TestEmailHistories(t *testing.T) {
	g := newTestDB(t)

	id := uuid.New()
	want := map[uuid.UUID]database.EmailHistory{
		id: {
			Timestamps:       []int64{1, 2},
			LimitWarningSent: true,
		},
	}
	err := g.EmailHistoriesSave(want)
	if err != nil {
		t.Fatal(err)
	}

	// Overwrite the existing history
	want[id] = database.EmailHistory{
		Timestamps: []int64{3},
	}
	err = g.EmailHistoriesSave(want)
	if err != nil {
		t.Fatal(err)
	}

	got, err := g.EmailHistoriesGet([]uuid.UUID{id, uuid.New()})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("histories mismatch (-want +got):\n%v", diff)
	}
}

func TestShutdown(t *testing.T) {
	g, err := New(DBTypeSQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	err = g.Close()
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.Posts(context.Background(), 0)
	if !errors.Is(err, database.ErrShutdown) {
		t.Errorf("got err %v, want %v", err, database.ErrShutdown)
	}
}
