// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blog

import (
	"context"
	"errors"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
)

// contactSubject is the subject of the contact form emails.
const contactSubject = "New Message"

// Contact sends the contact form message to the blog operator.
func (b *Blog) Contact(ctx context.Context, c v1.Contact) error {
	log.Tracef("Contact: %v", c.Email)

	if !b.mail.IsEnabled() {
		log.Infof("Contact message from %v not sent; mail is disabled",
			c.Email)
		return nil
	}
	if b.contactAddress == "" {
		return errors.New("contact address is not set")
	}

	body, err := createBody(contactMessageTmpl, contactMessage{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Message: c.Message,
	})
	if err != nil {
		return err
	}

	return b.mail.SendTo(contactSubject, body, []string{b.contactAddress})
}
