// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound indicates that a user was not found in the
	// database.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates that a user already exists in the
	// database.
	ErrUserExists = errors.New("user already exists")

	// ErrPostNotFound indicates that a post was not found in the
	// database.
	ErrPostNotFound = errors.New("post not found")

	// ErrCommentNotFound indicates that a comment was not found in the
	// database.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrShutdown is emitted when the database is shutting down.
	ErrShutdown = errors.New("database is shutting down")
)

// User represents a registered blog user.
type User struct {
	ID             uuid.UUID // Unique user ID
	Email          string    // Unique, case sensitive
	Name           string    // Display name
	HashedPassword []byte    // bcrypt hash
	Admin          bool      // Is the user allowed to manage posts
	CreatedAt      int64     // Unix timestamp
}

// Post represents a blog post. The AuthorID is an explicit foreign key to
// the users table.
type Post struct {
	ID       uint64
	Title    string
	Subtitle string
	Body     string // Sanitized HTML
	ImgURL   string
	Date     string // Display date
	AuthorID uuid.UUID
}

// PostWithAuthor is a post joined with the name of its author.
type PostWithAuthor struct {
	Post
	AuthorName string
}

// Comment represents a comment on a blog post. The AuthorID and PostID are
// explicit foreign keys to the users and posts tables.
type Comment struct {
	ID       uint64
	Text     string
	AuthorID uuid.UUID
	PostID   uint64
}

// CommentWithAuthor is a comment joined with the name and email of its
// author. The email is used to render the author's avatar.
type CommentWithAuthor struct {
	Comment
	AuthorName  string
	AuthorEmail string
}

// Database describes the interface used for interacting with the blog
// database. Reads that need data from more than one table use explicit
// joins and return the joined types.
type Database interface {
	// Create a new user. ErrUserExists is returned if a user with the
	// same email already exists.
	UserNew(ctx context.Context, u User) error

	// Update an existing user.
	UserUpdate(ctx context.Context, u User) error

	// Return a user by its ID.
	UserGetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// Return a user by its email. The email match is exact.
	UserGetByEmail(ctx context.Context, email string) (*User, error)

	// Iterate over all users.
	AllUsers(ctx context.Context, callback func(u *User)) error

	// Create a new post. The returned post has its ID set.
	PostNew(ctx context.Context, p Post) (*Post, error)

	// Update an existing post.
	PostUpdate(ctx context.Context, p Post) error

	// Delete a post along with all of its comments.
	PostDel(ctx context.Context, id uint64) error

	// Return a post by its ID.
	PostGet(ctx context.Context, id uint64) (*PostWithAuthor, error)

	// Return posts ordered by descending ID. A limit <= 0 returns all
	// posts.
	Posts(ctx context.Context, limit int) ([]PostWithAuthor, error)

	// Create a new comment. The returned comment has its ID set.
	CommentNew(ctx context.Context, c Comment) (*Comment, error)

	// Return a comment by its ID.
	CommentGet(ctx context.Context, id uint64) (*Comment, error)

	// Delete a comment.
	CommentDel(ctx context.Context, id uint64) error

	// Return the comments of a post ordered by ascending ID.
	CommentsByPost(ctx context.Context, postID uint64) ([]CommentWithAuthor, error)

	// Close performs cleanup of the backend.
	Close() error
}
