// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blog

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/google/uuid"
)

func createBody(tpl *template.Template, tplData interface{}) (string, error) {
	var buf bytes.Buffer
	err := tpl.Execute(&buf, tplData)
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

// emailPasswordReset emails the password reset link to the user.
func (b *Blog) emailPasswordReset(u database.User, link string) error {
	tplData := passwordReset{
		Name:   u.Name,
		Link:   link,
		Expiry: expiryText(b.tokenExpiry),
	}

	subject := "Reset Your Password"
	body, err := createBody(passwordResetTmpl, tplData)
	if err != nil {
		return err
	}
	recipients := map[uuid.UUID]string{
		u.ID: u.Email,
	}

	return b.mail.SendToUsers(subject, body, recipients)
}

// emailPasswordChanged notifies the user that their password was changed.
func (b *Blog) emailPasswordChanged(u database.User) error {
	tplData := passwordChanged{
		Name: u.Name,
	}

	subject := "Password Changed"
	body, err := createBody(passwordChangedTmpl, tplData)
	if err != nil {
		return err
	}
	recipients := map[uuid.UUID]string{
		u.ID: u.Email,
	}

	return b.mail.SendToUsers(subject, body, recipients)
}

// expiryText returns the duration in whole hours when possible, otherwise in
// minutes rounded up.
func expiryText(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if h := int64(d / time.Hour); h != 1 {
			return fmt.Sprintf("%v hours", h)
		}
		return "1 hour"
	}
	m := int64((d + time.Minute - 1) / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%v minutes", m)
}

// Password reset - Send the reset link to the user
type passwordReset struct {
	Name   string // User name
	Link   string // Password reset link
	Expiry string // Validity window of the link
}

const passwordResetText = `
Hi {{.Name}},

Click the link below to reset your password. The link is valid for
{{.Expiry}} and can only be used once.

{{.Link}}

If you did not request a password reset you can ignore this email.
`

var passwordResetTmpl = template.Must(
	template.New("passwordReset").Parse(passwordResetText))

// Password changed - Send to user
type passwordChanged struct {
	Name string // User name
}

const passwordChangedText = `
Hi {{.Name}},

The password of your blog account has been changed.

If you did not perform this action, it's possible that your account has been
compromised. Please request a new password reset link right away.
`

var passwordChangedTmpl = template.Must(
	template.New("passwordChanged").Parse(passwordChangedText))

// Contact form message - Send to the blog operator
type contactMessage struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

const contactMessageText = `Name: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}
Message:{{.Message}}
`

var contactMessageTmpl = template.Must(
	template.New("contactMessage").Parse(contactMessageText))
