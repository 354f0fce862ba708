// Copyright (c) 2020-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mail

import (
	"fmt"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/google/uuid"
)

// Mailer is an interface used to send emails to a list of recipients.
type Mailer interface {
	// IsEnabled determines if the smtp server is enabled or not.
	IsEnabled() bool

	// SendTo sends an email to a list of recipients email addresses. This
	// function does not limit emails, and is used to send email to the
	// blog operator or similar cases.
	SendTo(subject, body string, recipients []string) error

	// SendToUsers sends an email to a list of recipients email addresses.
	// The recipients map contains map[userID]email. This function rate
	// limits the amount of emails a blog user can receive in a specific
	// time window.
	SendToUsers(subject, body string, recipients map[uuid.UUID]string) error
}

// DeliveryError is returned when the SMTP server could not be reached or
// rejected a message.
type DeliveryError struct {
	Err error
}

// Error satisfies the error interface.
func (e DeliveryError) Error() string {
	return fmt.Sprintf("mail delivery failed: %v", e.Err)
}

// Unwrap returns the underlying SMTP error.
func (e DeliveryError) Unwrap() error {
	return e.Err
}

// Config contains the settings of the SMTP client.
type Config struct {
	Host         string // SMTP host:port
	User         string // SMTP username
	Password     string // SMTP password
	EmailAddress string // From address, e.g. "Blog <noreply@example.org>"
	CertPath     string // Optional SMTP server cert
	SkipVerify   bool   // Skip SMTP TLS cert verification
	StartTLS     bool   // Use STARTTLS instead of implicit TLS
	RateLimit    int    // Max emails per user per rate limit period
}

// New returns a new client that implements Mailer.
func New(cfg Config, db database.MailerDB) (*client, error) {
	// Email is considered disabled if any of the required user
	// credentials are missing.
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		log.Infof("Mail: DISABLED")
		c := &client{
			disabled: true,
			mailerDB: db,
		}
		return c, nil
	}

	// Return a new mailer smtp client.
	return newClient(cfg, db)
}
