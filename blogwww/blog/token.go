// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blog

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/golang-jwt/jwt/v5"
)

// resetClaims are the claims of a password reset token. The subject is the
// user ID. The fingerprint commits to the password hash of the user at the
// time the token was issued, which invalidates the token once the password
// has been changed.
type resetClaims struct {
	Fingerprint string `json:"fpr"`
	jwt.RegisteredClaims
}

// passwordFingerprint returns the HMAC of a password hash.
func (b *Blog) passwordFingerprint(hashedPassword []byte) string {
	mac := hmac.New(sha256.New, b.tokenKey)
	mac.Write(hashedPassword)
	return hex.EncodeToString(mac.Sum(nil))
}

// newResetToken returns a new signed password reset token for the user.
func (b *Blog) newResetToken(u database.User) (string, error) {
	now := b.now()
	claims := resetClaims{
		Fingerprint: b.passwordFingerprint(u.HashedPassword),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.tokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(b.tokenKey)
}

// parseResetToken verifies the signature and the expiry of a password reset
// token and returns its claims.
func (b *Blog) parseResetToken(token string) (*resetClaims, error) {
	var claims resetClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) {
			return b.tokenKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.now))
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// fingerprintMatches returns whether the token was issued for the current
// password of the user.
func (b *Blog) fingerprintMatches(c *resetClaims, u database.User) bool {
	want := b.passwordFingerprint(u.HashedPassword)
	return hmac.Equal([]byte(c.Fingerprint), []byte(want))
}
