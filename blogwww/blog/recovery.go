// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blog

import (
	"context"
	"errors"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/database"
	"github.com/google/uuid"
)

// RecoveryReply is the reply to a password recovery request.
type RecoveryReply struct {
	Token string // Password reset token
	Link  string // Password reset link that was emailed to the user
}

// RequestRecovery issues a password reset token for the user with the given
// email and emails the user the password reset link. A
// v1.ErrorCodeUserNotFound user error is returned if the email is not
// registered.
func (b *Blog) RequestRecovery(ctx context.Context, email string) (*RecoveryReply, error) {
	log.Tracef("RequestRecovery: %v", email)

	u, err := b.db.UserGetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, v1.UserError{
				ErrorCode: v1.ErrorCodeUserNotFound,
			}
		}
		return nil, err
	}

	token, err := b.newResetToken(*u)
	if err != nil {
		return nil, err
	}
	link := b.webServerAddress + v1.ResetPasswordPath(token)

	err = b.emailPasswordReset(*u, link)
	if err != nil {
		return nil, err
	}

	log.Infof("Password reset requested: %v", u.ID)

	return &RecoveryReply{
		Token: token,
		Link:  link,
	}, nil
}

// VerifyResetToken returns the user that a password reset token was issued
// for. A v1.ErrorCodeInvalidOrExpiredToken user error is returned if the
// token is not valid.
func (b *Blog) VerifyResetToken(ctx context.Context, token string) (*database.User, error) {
	log.Tracef("VerifyResetToken")

	errInvalid := v1.UserError{
		ErrorCode: v1.ErrorCodeInvalidOrExpiredToken,
	}

	claims, err := b.parseResetToken(token)
	if err != nil {
		log.Debugf("VerifyResetToken: %v", err)
		return nil, errInvalid
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errInvalid
	}
	u, err := b.db.UserGetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, errInvalid
		}
		return nil, err
	}

	// The token is consumed once the password has been changed
	if !b.fingerprintMatches(claims, *u) {
		log.Debugf("VerifyResetToken: password fingerprint mismatch %v",
			u.ID)
		return nil, errInvalid
	}

	return u, nil
}

// ResetPassword sets a new password for the user that the password reset
// token was issued for.
func (b *Blog) ResetPassword(ctx context.Context, token, password, confirmPassword string) error {
	log.Tracef("ResetPassword")

	u, err := b.VerifyResetToken(ctx, token)
	if err != nil {
		return err
	}
	if password != confirmPassword {
		return v1.UserError{
			ErrorCode: v1.ErrorCodePasswordMismatch,
		}
	}

	hashed, err := b.hashPassword(password)
	if err != nil {
		return err
	}
	u.HashedPassword = hashed
	err = b.db.UserUpdate(ctx, *u)
	if err != nil {
		return err
	}

	log.Infof("Password reset: %v", u.ID)

	// The password has been changed at this point. A failure to send
	// the notification is not returned to the caller.
	err = b.emailPasswordChanged(*u)
	if err != nil {
		log.Errorf("emailPasswordChanged %v: %v", u.ID, err)
	}

	return nil
}
