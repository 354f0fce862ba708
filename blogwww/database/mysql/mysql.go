// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/sessions"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	// Database options
	connTimeout     = 1 * time.Minute
	connMaxLifetime = 1 * time.Minute
	maxOpenConns    = 0 // 0 is unlimited
	maxIdleConns    = 100

	// Database table names
	tableNameUsers          = "users"
	tableNameBlogPosts      = "blog_posts"
	tableNameComments       = "comments"
	tableNameSessions       = "sessions"
	tableNameEmailHistories = "email_histories"

	// errDuplicateEntry is the MySQL error number of a unique key
	// violation.
	errDuplicateEntry = 1062
)

// tableUsers defines the users table. Emails use a binary collation so that
// lookups are case sensitive.
const tableUsers = `
  id VARCHAR(36) NOT NULL PRIMARY KEY,
  email VARCHAR(250) COLLATE utf8mb4_bin NOT NULL,
  name VARCHAR(250) NOT NULL,
  hashed_password BLOB NOT NULL,
  admin BOOL NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL,
  UNIQUE (email)
`

// tableBlogPosts defines the blog_posts table.
const tableBlogPosts = `
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  author_id VARCHAR(36) NOT NULL,
  title VARCHAR(250) NOT NULL,
  subtitle VARCHAR(250) NOT NULL,
  date VARCHAR(250) NOT NULL,
  body MEDIUMTEXT NOT NULL,
  img_url VARCHAR(250) NOT NULL,
  FOREIGN KEY (author_id) REFERENCES users(id)
`

// tableComments defines the comments table.
const tableComments = `
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  text TEXT NOT NULL,
  author_id VARCHAR(36) NOT NULL,
  post_id BIGINT UNSIGNED NOT NULL,
  FOREIGN KEY (author_id) REFERENCES users(id),
  FOREIGN KEY (post_id) REFERENCES blog_posts(id)
`

// tableSessions defines the sessions table.
const tableSessions = `
  k CHAR(64) NOT NULL PRIMARY KEY,
  encoded_values TEXT NOT NULL,
  saved_at BIGINT NOT NULL,
  INDEX (saved_at)
`

// tableEmailHistories defines the email_histories table.
const tableEmailHistories = `
  user_id VARCHAR(36) NOT NULL PRIMARY KEY,
  h_blob BLOB NOT NULL
`

var (
	_ database.Database = (*mysqldb)(nil)
	_ database.MailerDB = (*mysqldb)(nil)
	_ sessions.DB       = (*mysqldb)(nil)
)

// mysqldb implements the database interfaces using MySQL.
type mysqldb struct {
	sync.RWMutex

	shutdown bool     // Backend is shutdown
	db       *sqlx.DB // Database context
}

// userRow is a row of the users table.
type userRow struct {
	ID             string `db:"id"`
	Email          string `db:"email"`
	Name           string `db:"name"`
	HashedPassword []byte `db:"hashed_password"`
	Admin          bool   `db:"admin"`
	CreatedAt      int64  `db:"created_at"`
}

// postRow is a row of the blog_posts table joined with the author name.
type postRow struct {
	ID         uint64 `db:"id"`
	AuthorID   string `db:"author_id"`
	Title      string `db:"title"`
	Subtitle   string `db:"subtitle"`
	Date       string `db:"date"`
	Body       string `db:"body"`
	ImgURL     string `db:"img_url"`
	AuthorName string `db:"author_name"`
}

// commentRow is a row of the comments table. The author columns are only set
// by the queries that join the users table.
type commentRow struct {
	ID          uint64         `db:"id"`
	Text        string         `db:"text"`
	AuthorID    string         `db:"author_id"`
	PostID      uint64         `db:"post_id"`
	AuthorName  sql.NullString `db:"author_name"`
	AuthorEmail sql.NullString `db:"author_email"`
}

func ctxWithTimeout(ctx context.Context) (context.Context, func()) {
	return context.WithTimeout(ctx, connTimeout)
}

// isShutdown returns whether the backend has been shutdown.
func (m *mysqldb) isShutdown() bool {
	m.RLock()
	defer m.RUnlock()

	return m.shutdown
}

// isDuplicateEntry returns whether the error is a unique key violation.
func isDuplicateEntry(err error) bool {
	var e *mysqldriver.MySQLError
	return errors.As(err, &e) && e.Number == errDuplicateEntry
}

// commit commits the transaction. The process panics if the transaction
// fails to commit and cannot be rolled back.
func commit(tx *sqlx.Tx) error {
	if err := tx.Commit(); err != nil {
		if err2 := tx.Rollback(); err2 != nil && !errors.Is(err2, sql.ErrTxDone) {
			// We're in trouble!
			panic(fmt.Errorf("rollback tx failed: commit:'%v' rollback:'%v'",
				err, err2))
		}
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func convertUser(u userRow) (*database.User, error) {
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, err
	}
	return &database.User{
		ID:             id,
		Email:          u.Email,
		Name:           u.Name,
		HashedPassword: u.HashedPassword,
		Admin:          u.Admin,
		CreatedAt:      u.CreatedAt,
	}, nil
}

func convertPost(p postRow) (*database.PostWithAuthor, error) {
	authorID, err := uuid.Parse(p.AuthorID)
	if err != nil {
		return nil, err
	}
	return &database.PostWithAuthor{
		Post: database.Post{
			ID:       p.ID,
			Title:    p.Title,
			Subtitle: p.Subtitle,
			Body:     p.Body,
			ImgURL:   p.ImgURL,
			Date:     p.Date,
			AuthorID: authorID,
		},
		AuthorName: p.AuthorName,
	}, nil
}

func convertComment(c commentRow) (*database.CommentWithAuthor, error) {
	authorID, err := uuid.Parse(c.AuthorID)
	if err != nil {
		return nil, err
	}
	return &database.CommentWithAuthor{
		Comment: database.Comment{
			ID:       c.ID,
			Text:     c.Text,
			AuthorID: authorID,
			PostID:   c.PostID,
		},
		AuthorName:  c.AuthorName.String,
		AuthorEmail: c.AuthorEmail.String,
	}, nil
}

// UserNew creates a new user record in the database.
//
// UserNew satisfies the Database interface.
func (m *mysqldb) UserNew(ctx context.Context, u database.User) error {
	log.Tracef("UserNew: %v", u.Email)

	if m.isShutdown() {
		return database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	// Start transaction
	opts := &sql.TxOptions{
		Isolation: sql.LevelDefault,
	}
	tx, err := m.db.BeginTxx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	// Check the email before the insert
	var id string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM users WHERE email = ?", u.Email).Scan(&id)
	switch {
	case err == nil:
		return database.ErrUserExists
	case errors.Is(err, sql.ErrNoRows):
		// Email is available; continue
	default:
		return errors.Wrap(err, "lookup")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users
    (id, email, name, hashed_password, admin, created_at)
    VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID.String(), u.Email, u.Name, u.HashedPassword, u.Admin,
		u.CreatedAt)
	if err != nil {
		if isDuplicateEntry(err) {
			return database.ErrUserExists
		}
		return errors.Wrap(err, "insert user")
	}

	return commit(tx)
}

// UserUpdate updates an existing user.
//
// UserUpdate satisfies the Database interface.
func (m *mysqldb) UserUpdate(ctx context.Context, u database.User) error {
	log.Tracef("UserUpdate: %v", u.ID)

	if m.isShutdown() {
		return database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	res, err := m.db.ExecContext(ctx,
		`UPDATE users
    SET email = ?, name = ?, hashed_password = ?, admin = ?
    WHERE id = ?`,
		u.Email, u.Name, u.HashedPassword, u.Admin, u.ID.String())
	if err != nil {
		if isDuplicateEntry(err) {
			return database.ErrUserExists
		}
		return errors.Wrap(err, "update user")
	}

	// MySQL reports the changed rows, not the matched rows, so an update
	// that does not change any value must not be reported as a missing
	// user.
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		_, err := m.UserGetByID(ctx, u.ID)
		if err != nil {
			return err
		}
	}

	return nil
}

// userGet returns the user that matches the where clause.
func (m *mysqldb) userGet(ctx context.Context, where string, arg interface{}) (*database.User, error) {
	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	var u userRow
	err := m.db.GetContext(ctx, &u,
		`SELECT id, email, name, hashed_password, admin, created_at
    FROM users WHERE `+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, err
	}

	return convertUser(u)
}

// UserGetByID returns a user record given its UUID.
//
// UserGetByID satisfies the Database interface.
func (m *mysqldb) UserGetByID(ctx context.Context, id uuid.UUID) (*database.User, error) {
	log.Tracef("UserGetByID: %v", id)

	if m.isShutdown() {
		return nil, database.ErrShutdown
	}

	return m.userGet(ctx, "id = ?", id.String())
}

// UserGetByEmail returns a user record given its email.
//
// UserGetByEmail satisfies the Database interface.
func (m *mysqldb) UserGetByEmail(ctx context.Context, email string) (*database.User, error) {
	log.Tracef("UserGetByEmail: %v", email)

	if m.isShutdown() {
		return nil, database.ErrShutdown
	}

	return m.userGet(ctx, "email = ?", email)
}

// AllUsers iterates over every user in the database, invoking the given
// callback function on each user.
//
// AllUsers satisfies the Database interface.
func (m *mysqldb) AllUsers(ctx context.Context, callback func(u *database.User)) error {
	log.Tracef("AllUsers")

	if m.isShutdown() {
		return database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	rows, err := m.db.QueryxContext(ctx,
		`SELECT id, email, name, hashed_password, admin, created_at
    FROM users ORDER BY created_at`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ur userRow
		err := rows.StructScan(&ur)
		if err != nil {
			return err
		}
		u, err := convertUser(ur)
		if err != nil {
			return err
		}
		callback(u)
	}

	return rows.Err()
}

// PostNew creates a new blog post.
//
// PostNew satisfies the Database interface.
func (m *mysqldb) PostNew(ctx context.Context, p database.Post) (*database.Post, error) {
	log.Tracef("PostNew: %v", p.Title)

	if m.isShutdown() {
		return nil, database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	res, err := m.db.ExecContext(ctx,
		`INSERT INTO blog_posts
    (author_id, title, subtitle, date, body, img_url)
    VALUES (?, ?, ?, ?, ?, ?)`,
		p.AuthorID.String(), p.Title, p.Subtitle, p.Date, p.Body, p.ImgURL)
	if err != nil {
		return nil, errors.Wrap(err, "insert post")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	p.ID = uint64(id)
	return &p, nil
}

// PostUpdate updates an existing blog post.
//
// PostUpdate satisfies the Database interface.
func (m *mysqldb) PostUpdate(ctx context.Context, p database.Post) error {
	log.Tracef("PostUpdate: %v", p.ID)

	if m.isShutdown() {
		return database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	res, err := m.db.ExecContext(ctx,
		`UPDATE blog_posts
    SET author_id = ?, title = ?, subtitle = ?, date = ?, body = ?, img_url = ?
    WHERE id = ?`,
		p.AuthorID.String(), p.Title, p.Subtitle, p.Date, p.Body, p.ImgURL,
		p.ID)
	if err != nil {
		return errors.Wrap(err, "update post")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		_, err := m.PostGet(ctx, p.ID)
		if err != nil {
			return err
		}
	}

	return nil
}

// PostDel deletes a blog post and all of its comments using a single
// transaction.
//
// PostDel satisfies the Database interface.
func (m *mysqldb) PostDel(ctx context.Context, id uint64) error {
	log.Tracef("PostDel: %v", id)

	if m.isShutdown() {
		return database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	// Start transaction
	opts := &sql.TxOptions{
		Isolation: sql.LevelDefault,
	}
	tx, err := m.db.BeginTxx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "DELETE FROM comments WHERE post_id = ?", id)
	if err != nil {
		return errors.Wrap(err, "delete comments")
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM blog_posts WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "delete post")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrPostNotFound
	}

	return commit(tx)
}

// postsQuery selects the posts joined with the names of their authors.
const postsQuery = `SELECT p.id, p.author_id, p.title, p.subtitle, p.date,
    p.body, p.img_url, u.name AS author_name
  FROM blog_posts p
  JOIN users u ON u.id = p.author_id`

// PostGet returns a blog post given its ID.
//
// PostGet satisfies the Database interface.
func (m *mysqldb) PostGet(ctx context.Context, id uint64) (*database.PostWithAuthor, error) {
	log.Tracef("PostGet: %v", id)

	if m.isShutdown() {
		return nil, database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	var p postRow
	err := m.db.GetContext(ctx, &p, postsQuery+" WHERE p.id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPostNotFound
		}
		return nil, err
	}

	return convertPost(p)
}

// Posts returns the blog posts ordered by descending ID. A limit <= 0
// returns all posts.
//
// Posts satisfies the Database interface.
func (m *mysqldb) Posts(ctx context.Context, limit int) ([]database.PostWithAuthor, error) {
	log.Tracef("Posts: %v", limit)

	if m.isShutdown() {
		return nil, database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	var (
		rows []postRow
		err  error
	)
	q := postsQuery + " ORDER BY p.id DESC"
	if limit > 0 {
		err = m.db.SelectContext(ctx, &rows, q+" LIMIT ?", limit)
	} else {
		err = m.db.SelectContext(ctx, &rows, q)
	}
	if err != nil {
		return nil, err
	}

	posts := make([]database.PostWithAuthor, 0, len(rows))
	for _, v := range rows {
		p, err := convertPost(v)
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
func (m *mysqldb) CommentNew(ctx context.Context, c database.Comment) (*database.Comment, error) {
	log.Tracef("CommentNew: %v %v", c.PostID, c.AuthorID)

	if m.isShutdown() {
		return nil, database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	res, err := m.db.ExecContext(ctx,
		`INSERT INTO comments (text, author_id, post_id) VALUES (?, ?, ?)`,
		c.Text, c.AuthorID.String(), c.PostID)
	if err != nil {
		return nil, errors.Wrap(err, "insert comment")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	c.ID = uint64(id)
	return &c, nil
}

// CommentGet returns a comment given its ID.
//
// CommentGet satisfies the Database interface.
func (m *mysqldb) CommentGet(ctx context.Context, id uint64) (*database.Comment, error) {
	log.Tracef("CommentGet: %v", id)

	if m.isShutdown() {
		return nil, database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	var c commentRow
	err := m.db.GetContext(ctx, &c,
		"SELECT id, text, author_id, post_id FROM comments WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCommentNotFound
		}
		return nil, err
	}

	cwa, err := convertComment(c)
	if err != nil {
		return nil, err
	}
	return &cwa.Comment, nil
}

// CommentDel deletes a comment.
//
// CommentDel satisfies the Database interface.
func (m *mysqldb) CommentDel(ctx context.Context, id uint64) error {
	log.Tracef("CommentDel: %v", id)

	if m.isShutdown() {
		return database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	res, err := m.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "delete comment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrCommentNotFound
	}

	return nil
}

// CommentsByPost returns the comments of a post ordered by ascending ID.
//
// CommentsByPost satisfies the Database interface.
func (m *mysqldb) CommentsByPost(ctx context.Context, postID uint64) ([]database.CommentWithAuthor, error) {
	log.Tracef("CommentsByPost: %v", postID)

	if m.isShutdown() {
		return nil, database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	var rows []commentRow
	err := m.db.SelectContext(ctx, &rows,
		`SELECT c.id, c.text, c.author_id, c.post_id,
    u.name AS author_name, u.email AS author_email
  FROM comments c
  JOIN users u ON u.id = c.author_id
  WHERE c.post_id = ?
  ORDER BY c.id ASC`, postID)
	if err != nil {
		return nil, err
	}

	comments := make([]database.CommentWithAuthor, 0, len(rows))
	for _, v := range rows {
		c, err := convertComment(v)
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
func (m *mysqldb) Close() error {
	log.Tracef("Close")

	m.Lock()
	defer m.Unlock()

	m.shutdown = true
	return m.db.Close()
}

// New connects to the MySQL database and returns a new mysqldb context. The
// dsn uses the go-sql-driver format, e.g. user:pass@tcp(host:3306)/blog. The
// database tables are created if they do not exist.
func New(dsn string) (*mysqldb, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	log.Infof("MySQL host: %v:[password]@%v(%v)/%v", cfg.User, cfg.Net,
		cfg.Addr, cfg.DBName)

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Verify database connection
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err = db.PingContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "db ping")
	}

	// Setup database options
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	// Setup database tables. The order matters because of the foreign
	// keys.
	tables := []struct {
		name string
		def  string
	}{
		{tableNameUsers, tableUsers},
		{tableNameBlogPosts, tableBlogPosts},
		{tableNameComments, tableComments},
		{tableNameSessions, tableSessions},
		{tableNameEmailHistories, tableEmailHistories},
	}
	for _, t := range tables {
		q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %v (%v)`, t.name, t.def)
		_, err = db.Exec(q)
		if err != nil {
			return nil, errors.Wrapf(err, "create %v table", t.name)
		}
	}

	return &mysqldb{
		db: db,
	}, nil
}
