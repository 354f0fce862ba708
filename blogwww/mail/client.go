// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mail

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"time"

	"github.com/dajohi/goemail"
	"github.com/decred/dcrblog/blogwww/database"
	"github.com/google/uuid"
)

// defaultRateLimitPeriod is the window that the per user rate limit applies
// to.
const defaultRateLimitPeriod = 24 * time.Hour

// Rate limit warning email.
const (
	limitEmailSubject = "Email Rate Limit Hit"
	limitEmailBody    = `
Your email rate limit for the past 24 hours has been hit. This measure is used to keep the blog's mail server from being used for spam. You will not receive any account emails for 24 hours.

We apologize for any inconvenience.
`
)

// client sends plain text emails through an SMTP relay from a single sender
// address.
type client struct {
	smtp        *goemail.SMTP
	mailName    string // Sender display name
	mailAddress string // Sender address
	mailerDB    database.MailerDB
	disabled    bool

	// rateLimit is the number of emails that SendToUsers delivers to a
	// single user per rateLimitPeriod.
	rateLimit       int
	rateLimitPeriod time.Duration
}

var (
	_ Mailer = (*client)(nil)
)

// IsEnabled satisfies the Mailer interface.
func (c *client) IsEnabled() bool {
	return !c.disabled
}

// SendTo satisfies the Mailer interface. The recipients are added as BCC so
// that they do not see each other.
func (c *client) SendTo(subject, body string, recipients []string) error {
	if c.disabled {
		log.Debugf("Mail disabled, not sending '%v' to %v",
			subject, recipients)
		return nil
	}
	if len(recipients) == 0 {
		return nil
	}

	msg := goemail.NewMessage(c.mailAddress, subject, body)
	msg.SetName(c.mailName)
	for _, v := range recipients {
		msg.AddBCC(v)
	}

	if err := c.smtp.Send(msg); err != nil {
		return DeliveryError{Err: err}
	}

	log.Debugf("Sent '%v' to %v recipients", subject, len(recipients))
	return nil
}

// SendToUsers satisfies the Mailer interface. Users that are over the rate
// limit are skipped silently. A user that goes over the limit with this call
// is sent a single warning email instead.
func (c *client) SendToUsers(subject, body string, recipients map[uuid.UUID]string) error {
	if c.disabled {
		log.Debugf("Mail disabled, not sending '%v' to %v users",
			subject, len(recipients))
		return nil
	}
	if len(recipients) == 0 {
		return nil
	}

	f, err := c.filterRecipients(recipients)
	if err != nil {
		return err
	}
	if err := c.SendTo(subject, body, f.valid); err != nil {
		return err
	}
	if err := c.SendTo(limitEmailSubject, limitEmailBody, f.warning); err != nil {
		return err
	}

	return c.mailerDB.EmailHistoriesSave(f.histories)
}

// filteredRecipients splits the recipients of a SendToUsers call by the
// email they should receive.
type filteredRecipients struct {
	valid []string

	// warning contains the users that hit the limit with this email.
	// They receive the rate limit warning instead.
	warning []string

	histories map[uuid.UUID]database.EmailHistory
}

// filterRecipients applies the rate limit to the users map[userid]email.
// Users that were already warned are left out of all lists and their history
// is not updated.
func (c *client) filterRecipients(users map[uuid.UUID]string) (*filteredRecipients, error) {
	ids := make([]uuid.UUID, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	hs, err := c.mailerDB.EmailHistoriesGet(ids)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	f := filteredRecipients{
		histories: make(map[uuid.UUID]database.EmailHistory, len(users)),
	}
	for id, email := range users {
		h := hs[id]
		h.Timestamps = filterTimestamps(h.Timestamps, c.rateLimitPeriod)

		switch {
		case len(h.Timestamps) < c.rateLimit:
			h.Timestamps = append(h.Timestamps, now)
			h.LimitWarningSent = false
			f.valid = append(f.valid, email)
		case !h.LimitWarningSent:
			h.LimitWarningSent = true
			f.warning = append(f.warning, email)
		default:
			continue
		}
		f.histories[id] = h
	}

	return &f, nil
}

// filterTimestamps returns the timestamps that fall within the last period.
func filterTimestamps(in []int64, period time.Duration) []int64 {
	cutoff := time.Now().Add(-period).Unix()
	out := make([]int64, 0, len(in))
	for _, ts := range in {
		if ts >= cutoff {
			out = append(out, ts)
		}
	}
	return out
}

// smtpURL returns the goemail URL of the relay. Implicit TLS uses the smtps
// scheme, STARTTLS the smtp scheme.
func smtpURL(cfg Config) *url.URL {
	scheme := "smtps"
	if cfg.StartTLS {
		scheme = "smtp"
	}
	return &url.URL{
		Scheme: scheme,
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host,
	}
}

// tlsConfig returns the TLS config of the relay connection. A configured
// cert is trusted on top of the system roots.
func tlsConfig(cfg Config) (*tls.Config, error) {
	tc := &tls.Config{
		InsecureSkipVerify: cfg.SkipVerify,
	}
	if cfg.SkipVerify || cfg.CertPath == "" {
		return tc, nil
	}

	pem, err := os.ReadFile(cfg.CertPath)
	if err != nil {
		return nil, err
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certs found in %v", cfg.CertPath)
	}
	tc.RootCAs = pool
	return tc, nil
}

// newClient returns a new SMTP client.
func newClient(cfg Config, db database.MailerDB) (*client, error) {
	a, err := mail.ParseAddress(cfg.EmailAddress)
	if err != nil {
		return nil, fmt.Errorf("parse mail address: %v", err)
	}
	tc, err := tlsConfig(cfg)
	if err != nil {
		return nil, err
	}
	u := smtpURL(cfg)
	smtp, err := goemail.NewSMTP(u.String(), tc)
	if err != nil {
		return nil, err
	}

	log.Infof("Mail host: %v://%v:[password]@%v", u.Scheme, cfg.User,
		cfg.Host)
	log.Infof("Mail address: %v", a)

	return &client{
		smtp:            smtp,
		mailName:        a.Name,
		mailAddress:     a.Address,
		mailerDB:        db,
		rateLimit:       cfg.RateLimit,
		rateLimitPeriod: defaultRateLimitPeriod,
	}, nil
}
