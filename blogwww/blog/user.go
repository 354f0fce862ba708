// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blog

import (
	"context"
	"errors"
	"fmt"
	"time"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/database"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordMaxBytes is the longest password that bcrypt accepts.
const PasswordMaxBytes = 72

// hashPassword hashes the given password using the configured bcrypt cost.
// bcrypt generates a random salt for every hash. A password that bcrypt
// cannot hash is returned as a v1.ErrorCodeInvalidInput user error.
func (b *Blog) hashPassword(password string) ([]byte, error) {
	if len(password) > PasswordMaxBytes {
		return nil, v1.UserError{
			ErrorCode: v1.ErrorCodeInvalidInput,
			ErrorContext: fmt.Sprintf("password exceeds %v bytes",
				PasswordMaxBytes),
		}
	}
	return bcrypt.GenerateFromPassword([]byte(password), b.hashCost)
}

// isAdminEmail returns whether the email is configured as an admin email.
func (b *Blog) isAdminEmail(email string) bool {
	_, ok := b.adminEmails[email]
	return ok
}

// Register creates a new user account. A v1.ErrorCodeDuplicateUser user
// error is returned if the email is already registered.
func (b *Blog) Register(ctx context.Context, email, name, password string) (*database.User, error) {
	log.Tracef("Register: %v", email)

	// Check for an existing account
	_, err := b.db.UserGetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, v1.UserError{
			ErrorCode: v1.ErrorCodeDuplicateUser,
		}
	case errors.Is(err, database.ErrUserNotFound):
		// Email is available; continue
	default:
		return nil, err
	}

	hashed, err := b.hashPassword(password)
	if err != nil {
		return nil, err
	}

	u := database.User{
		ID:             uuid.New(),
		Email:          email,
		Name:           name,
		HashedPassword: hashed,
		Admin:          b.isAdminEmail(email),
		CreatedAt:      time.Now().Unix(),
	}
	err = b.db.UserNew(ctx, u)
	if err != nil {
		// The email might have been taken between the lookup and
		// the insert.
		if errors.Is(err, database.ErrUserExists) {
			return nil, v1.UserError{
				ErrorCode: v1.ErrorCodeDuplicateUser,
			}
		}
		return nil, err
	}

	log.Infof("User registered: %v %v", u.ID, u.Email)
	if u.Admin {
		log.Infof("User %v was granted the admin role", u.ID)
	}

	return &u, nil
}

// Login verifies the user credentials and returns the user.
func (b *Blog) Login(ctx context.Context, email, password string) (*database.User, error) {
	log.Tracef("Login: %v", email)

	u, err := b.db.UserGetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, v1.UserError{
				ErrorCode: v1.ErrorCodeUnknownEmail,
			}
		}
		return nil, err
	}

	err = bcrypt.CompareHashAndPassword(u.HashedPassword, []byte(password))
	if err != nil {
		log.Debugf("Login: invalid password for %v", u.ID)
		return nil, v1.UserError{
			ErrorCode: v1.ErrorCodeInvalidPassword,
		}
	}

	return u, nil
}

// User returns the user with the given ID. The error wraps
// database.ErrUserNotFound if the user does not exist.
func (b *Blog) User(ctx context.Context, id uuid.UUID) (*database.User, error) {
	log.Tracef("User: %v", id)

	return b.db.UserGetByID(ctx, id)
}
