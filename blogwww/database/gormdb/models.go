// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gormdb

const (
	// Database table names
	tableUsers          = "users"
	tableBlogPosts      = "blog_posts"
	tableComments       = "comments"
	tableSessions       = "sessions"
	tableEmailHistories = "email_histories"
)

// User represents a blog user.
type User struct {
	ID        string `gorm:"primaryKey;size:36"`              // UUID
	Email     string `gorm:"size:250;not null;uniqueIndex"`   // Unique email
	Name      string `gorm:"size:250;not null"`               // Display name
	Password  []byte `gorm:"column:hashed_password;not null"` // bcrypt hash
	Admin     bool   `gorm:"not null;default:false"`          // Admin role
	CreatedAt int64  `gorm:"autoCreateTime:false;not null"`   // UNIX timestamp
}

// TableName returns the table name of the User table.
func (User) TableName() string {
	return tableUsers
}

// BlogPost represents a blog post. AuthorID references the users table.
type BlogPost struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	AuthorID string `gorm:"column:author_id;size:36;not null;index"`
	Title    string `gorm:"size:250;not null"`
	Subtitle string `gorm:"size:250;not null"`
	Date     string `gorm:"size:250;not null"`
	Body     string `gorm:"type:text;not null"`
	ImgURL   string `gorm:"column:img_url;size:250;not null"`
}

// TableName returns the table name of the BlogPost table.
func (BlogPost) TableName() string {
	return tableBlogPosts
}

// Comment represents a comment on a blog post. AuthorID references the users
// table and PostID references the blog_posts table.
type Comment struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	Text     string `gorm:"type:text;not null"`
	AuthorID string `gorm:"column:author_id;size:36;not null;index"`
	PostID   uint64 `gorm:"column:post_id;not null;index"`
}

// TableName returns the table name of the Comment table.
func (Comment) TableName() string {
	return tableComments
}

// Session represents a user session.
//
// Key is a SHA256 hash of the decoded session ID. The session store handles
// encoding/decoding the ID.
type Session struct {
	Key           string `gorm:"primaryKey;size:64"` // SHA256 hash of the session ID
	EncodedValues string `gorm:"type:text;not null"` // Encoded session values
	SavedAt       int64  `gorm:"not null;index"`     // Last save UNIX timestamp
}

// TableName returns the table name of the Session table.
func (Session) TableName() string {
	return tableSessions
}

// EmailHistory contains the JSON encoded email history of a user.
type EmailHistory struct {
	UserID string `gorm:"primaryKey;size:36"` // UUID
	Blob   []byte `gorm:"not null"`           // JSON encoded database.EmailHistory
}

// TableName returns the table name of the EmailHistory table.
func (EmailHistory) TableName() string {
	return tableEmailHistories
}

// postRow is the result row of the post queries that join the author name.
type postRow struct {
	ID         uint64 `gorm:"column:id"`
	AuthorID   string `gorm:"column:author_id"`
	Title      string `gorm:"column:title"`
	Subtitle   string `gorm:"column:subtitle"`
	Date       string `gorm:"column:date"`
	Body       string `gorm:"column:body"`
	ImgURL     string `gorm:"column:img_url"`
	AuthorName string `gorm:"column:author_name"`
}

// commentRow is the result row of the comment queries that join the author
// name and email.
type commentRow struct {
	ID          uint64 `gorm:"column:id"`
	Text        string `gorm:"column:text"`
	AuthorID    string `gorm:"column:author_id"`
	PostID      uint64 `gorm:"column:post_id"`
	AuthorName  string `gorm:"column:author_name"`
	AuthorEmail string `gorm:"column:author_email"`
}
