// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gormdb

import (
	"context"
	"sync"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/sessions"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	// DBTypeSQLite is the SQLite database type. The DSN is a file path or
	// ":memory:".
	DBTypeSQLite = "sqlite"

	// DBTypePostgres is the PostgreSQL database type. The DSN is a
	// postgres connection URL.
	DBTypePostgres = "postgres"
)

var (
	_ database.Database = (*gormdb)(nil)
	_ database.MailerDB = (*gormdb)(nil)
	_ sessions.DB       = (*gormdb)(nil)
)

// gormdb implements the database interfaces using gorm.
type gormdb struct {
	sync.RWMutex

	shutdown bool     // Backend is shutdown
	db       *gorm.DB // Database context
}

// isShutdown returns whether the backend has been shutdown.
func (g *gormdb) isShutdown() bool {
	g.RLock()
	defer g.RUnlock()

	return g.shutdown
}

// userGetByEmail returns the user with the given email.
//
// This function can be called using a transaction when necessary.
func userGetByEmail(tx *gorm.DB, email string) (*User, error) {
	var u User
	err := tx.Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = database.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UserNew creates a new user record in the database.
//
// UserNew satisfies the Database interface.
func (g *gormdb) UserNew(ctx context.Context, u database.User) error {
	log.Tracef("UserNew: %v", u.Email)

	if g.isShutdown() {
		return database.ErrShutdown
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Check the email before the insert so that a duplicate
		// is reported the same way on every backend.
		_, err := userGetByEmail(tx, u.Email)
		switch {
		case err == nil:
			return database.ErrUserExists
		case errors.Is(err, database.ErrUserNotFound):
			// Email is available; continue
		default:
			return err
		}

		user := convertUserFromDatabase(u)
		err = tx.Create(&user).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return database.ErrUserExists
		}
		return err
	})
}

// UserUpdate updates an existing user.
//
// UserUpdate satisfies the Database interface.
func (g *gormdb) UserUpdate(ctx context.Context, u database.User) error {
	log.Tracef("UserUpdate: %v", u.ID)

	if g.isShutdown() {
		return database.ErrShutdown
	}

	tx := g.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", u.ID.String()).
		Updates(map[string]interface{}{
			"email":           u.Email,
			"name":            u.Name,
			"hashed_password": u.HashedPassword,
			"admin":           u.Admin,
		})
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrDuplicatedKey) {
			return database.ErrUserExists
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return database.ErrUserNotFound
	}

	return nil
}

// UserGetByID returns a user record given its UUID.
//
// UserGetByID satisfies the Database interface.
func (g *gormdb) UserGetByID(ctx context.Context, id uuid.UUID) (*database.User, error) {
	log.Tracef("UserGetByID: %v", id)

	if g.isShutdown() {
		return nil, database.ErrShutdown
	}

	var u User
	err := g.db.WithContext(ctx).
		Where("id = ?", id.String()).
		First(&u).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = database.ErrUserNotFound
		}
		return nil, err
	}

	return convertUserToDatabase(u)
}

// UserGetByEmail returns a user record given its email.
//
// UserGetByEmail satisfies the Database interface.
func (g *gormdb) UserGetByEmail(ctx context.Context, email string) (*database.User, error) {
	log.Tracef("UserGetByEmail: %v", email)

	if g.isShutdown() {
		return nil, database.ErrShutdown
	}

	u, err := userGetByEmail(g.db.WithContext(ctx), email)
	if err != nil {
		return nil, err
	}

	return convertUserToDatabase(*u)
}

// AllUsers iterates over every user in the database, invoking the given
// callback function on each user.
//
// AllUsers satisfies the Database interface.
func (g *gormdb) AllUsers(ctx context.Context, callback func(u *database.User)) error {
	log.Tracef("AllUsers")

	if g.isShutdown() {
		return database.ErrShutdown
	}

	var users []User
	err := g.db.WithContext(ctx).Order("created_at").Find(&users).Error
	if err != nil {
		return err
	}

	for _, v := range users {
		u, err := convertUserToDatabase(v)
		if err != nil {
			return err
		}
		callback(u)
	}

	return nil
}

// PostNew creates a new blog post.
//
// PostNew satisfies the Database interface.
func (g *gormdb) PostNew(ctx context.Context, p database.Post) (*database.Post, error) {
	log.Tracef("PostNew: %v", p.Title)

	if g.isShutdown() {
		return nil, database.ErrShutdown
	}

	post := convertPostFromDatabase(p)
	post.ID = 0
	err := g.db.WithContext(ctx).Create(&post).Error
	if err != nil {
		return nil, err
	}

	return convertPostToDatabase(post)
}

// PostUpdate updates an existing blog post.
//
// PostUpdate satisfies the Database interface.
func (g *gormdb) PostUpdate(ctx context.Context, p database.Post) error {
	log.Tracef("PostUpdate: %v", p.ID)

	if g.isShutdown() {
		return database.ErrShutdown
	}

	tx := g.db.WithContext(ctx).
		Model(&BlogPost{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"author_id": p.AuthorID.String(),
			"title":     p.Title,
			"subtitle":  p.Subtitle,
			"date":      p.Date,
			"body":      p.Body,
			"img_url":   p.ImgURL,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return database.ErrPostNotFound
	}

	return nil
}

// PostDel deletes a blog post and all of its comments using a single
// transaction.
//
// PostDel satisfies the Database interface.
func (g *gormdb) PostDel(ctx context.Context, id uint64) error {
	log.Tracef("PostDel: %v", id)

	if g.isShutdown() {
		return database.ErrShutdown
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("post_id = ?", id).Delete(&Comment{}).Error
		if err != nil {
			return errors.Wrap(err, "delete comments")
		}
		res := tx.Where("id = ?", id).Delete(&BlogPost{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete post")
		}
		if res.RowsAffected == 0 {
			return database.ErrPostNotFound
		}
		return nil
	})
}

// postsQuery returns the query that joins the posts with the names of their
// authors.
func (g *gormdb) postsQuery(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx).
		Table(tableBlogPosts + " AS p").
		Select("p.id, p.author_id, p.title, p.subtitle, p.date, p.body, " +
			"p.img_url, u.name AS author_name").
		Joins("JOIN " + tableUsers + " AS u ON u.id = p.author_id")
}

// PostGet returns a blog post given its ID.
//
// PostGet satisfies the Database interface.
func (g *gormdb) PostGet(ctx context.Context, id uint64) (*database.PostWithAuthor, error) {
	log.Tracef("PostGet: %v", id)

	if g.isShutdown() {
		return nil, database.ErrShutdown
	}

	var rows []postRow
	err := g.postsQuery(ctx).
		Where("p.id = ?", id).
		Limit(1).
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, database.ErrPostNotFound
	}

	return convertPostRowToDatabase(rows[0])
}

// Posts returns the blog posts ordered by descending ID. A limit <= 0
// returns all posts.
//
// Posts satisfies the Database interface.
func (g *gormdb) Posts(ctx context.Context, limit int) ([]database.PostWithAuthor, error) {
	log.Tracef("Posts: %v", limit)

	if g.isShutdown() {
		return nil, database.ErrShutdown
	}

	q := g.postsQuery(ctx).Order("p.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []postRow
	err := q.Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	posts := make([]database.PostWithAuthor, 0, len(rows))
	for _, v := range rows {
		p, err := convertPostRowToDatabase(v)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}

	return posts, nil
}

// CommentNew creates a new comment.
//
// CommentNew satisfies the Database interface.
func (g *gormdb) CommentNew(ctx context.Context, c database.Comment) (*database.Comment, error) {
	log.Tracef("CommentNew: %v %v", c.PostID, c.AuthorID)

	if g.isShutdown() {
		return nil, database.ErrShutdown
	}

	comment := convertCommentFromDatabase(c)
	comment.ID = 0
	err := g.db.WithContext(ctx).Create(&comment).Error
	if err != nil {
		return nil, err
	}

	return convertCommentToDatabase(comment)
}

// CommentGet returns a comment given its ID.
//
// CommentGet satisfies the Database interface.
func (g *gormdb) CommentGet(ctx context.Context, id uint64) (*database.Comment, error) {
	log.Tracef("CommentGet: %v", id)

	if g.isShutdown() {
		return nil, database.ErrShutdown
	}

	var c Comment
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = database.ErrCommentNotFound
		}
		return nil, err
	}

	return convertCommentToDatabase(c)
}

// CommentDel deletes a comment.
//
// CommentDel satisfies the Database interface.
func (g *gormdb) CommentDel(ctx context.Context, id uint64) error {
	log.Tracef("CommentDel: %v", id)

	if g.isShutdown() {
		return database.ErrShutdown
	}

	res := g.db.WithContext(ctx).Where("id = ?", id).Delete(&Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.ErrCommentNotFound
	}

	return nil
}

// CommentsByPost returns the comments of a post ordered by ascending ID.
//
// CommentsByPost satisfies the Database interface.
func (g *gormdb) CommentsByPost(ctx context.Context, postID uint64) ([]database.CommentWithAuthor, error) {
	log.Tracef("CommentsByPost: %v", postID)

	if g.isShutdown() {
		return nil, database.ErrShutdown
	}

	var rows []commentRow
	err := g.db.WithContext(ctx).
		Table(tableComments+" AS c").
		Select("c.id, c.text, c.author_id, c.post_id, "+
			"u.name AS author_name, u.email AS author_email").
		Joins("JOIN "+tableUsers+" AS u ON u.id = c.author_id").
		Where("c.post_id = ?", postID).
		Order("c.id ASC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	comments := make([]database.CommentWithAuthor, 0, len(rows))
	for _, v := range rows {
		c, err := convertCommentRowToDatabase(v)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}

	return comments, nil
}

// Close shuts down the database. All interface functions must return with
// ErrShutdown if the backend is shutting down.
//
// Close satisfies the Database interface.
func (g *gormdb) Close() error {
	log.Tracef("Close")

	g.Lock()
	defer g.Unlock()

	g.shutdown = true
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// New opens a connection to the database of the given type and returns a
// new gormdb context. The database tables are created if they do not exist.
func New(dbType, dsn string) (*gormdb, error) {
	log.Tracef("New: %v", dbType)

	var dialector gorm.Dialector
	switch dbType {
	case DBTypeSQLite:
		dialector = sqlite.Open(dsn)
	case DBTypePostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Errorf("invalid database type: %v", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %v database", dbType)
	}

	if dbType == DBTypeSQLite {
		// SQLite only supports a single writer. An in-memory database
		// also only exists on the connection that created it.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Setup database tables
	err = db.AutoMigrate(&User{}, &BlogPost{}, &Comment{}, &Session{},
		&EmailHistory{})
	if err != nil {
		return nil, errors.Wrap(err, "migrate tables")
	}

	log.Infof("Database: %v", dbType)

	return &gormdb{
		db: db,
	}, nil
}
