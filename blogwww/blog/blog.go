// Copyright (c) 2020-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blog implements the blog operations. The HTTP handlers decode and
// validate the submitted forms and then call into this package. Errors that
// are caused by the caller are returned as v1.UserError.
package blog

import (
	"errors"
	"time"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/mail"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/crypto/bcrypt"
)

const (
	// bcryptCost is the cost that is used to hash user passwords.
	bcryptCost = 12

	// DefaultTokenExpiry is the validity window of a password reset
	// token.
	DefaultTokenExpiry = time.Hour
)

// Opts contains the blog settings.
type Opts struct {
	// AdminEmails contains the emails of the users that are given the
	// admin role when they register.
	AdminEmails []string

	// WebServerAddress is the public address of the blog. It is used
	// to build the links that are sent by email.
	WebServerAddress string

	// ContactAddress is the email address that receives the contact
	// form messages.
	ContactAddress string

	// TokenKey is the HMAC key that password reset tokens are signed
	// with.
	TokenKey []byte

	// TokenExpiry is the validity window of a password reset token. It
	// defaults to DefaultTokenExpiry.
	TokenExpiry time.Duration

	// LegacyCommentDelete allows any visitor to delete any comment.
	LegacyCommentDelete bool

	// LegacyEditAuthor makes the editor of a post its new author.
	LegacyEditAuthor bool

	// Test hashes passwords using the minimum bcrypt cost.
	Test bool
}

// Blog is the context for the blog operations.
type Blog struct {
	db        database.Database
	mail      mail.Mailer
	sanitizer *bluemonday.Policy

	adminEmails         map[string]struct{}
	webServerAddress    string
	contactAddress      string
	tokenKey            []byte
	tokenExpiry         time.Duration
	legacyCommentDelete bool
	legacyEditAuthor    bool
	hashCost            int
	now                 func() time.Time
}

// New returns a new Blog context.
func New(db database.Database, m mail.Mailer, opts Opts) (*Blog, error) {
	if len(opts.TokenKey) == 0 {
		return nil, errors.New("token key is not set")
	}
	if opts.TokenExpiry <= 0 {
		opts.TokenExpiry = DefaultTokenExpiry
	}

	admins := make(map[string]struct{}, len(opts.AdminEmails))
	for _, v := range opts.AdminEmails {
		admins[v] = struct{}{}
	}

	hashCost := bcryptCost
	if opts.Test {
		hashCost = bcrypt.MinCost
	}

	if opts.LegacyCommentDelete {
		log.Warnf("Legacy comment deletion is enabled; any visitor " +
			"can delete any comment")
	}
	if opts.LegacyEditAuthor {
		log.Infof("Legacy edit authorship is enabled")
	}

	return &Blog{
		db:                  db,
		mail:                m,
		sanitizer:           bluemonday.UGCPolicy(),
		adminEmails:         admins,
		webServerAddress:    opts.WebServerAddress,
		contactAddress:      opts.ContactAddress,
		tokenKey:            opts.TokenKey,
		tokenExpiry:         opts.TokenExpiry,
		legacyCommentDelete: opts.LegacyCommentDelete,
		legacyEditAuthor:    opts.LegacyEditAuthor,
		hashCost:            hashCost,
		now:                 time.Now,
	}, nil
}
