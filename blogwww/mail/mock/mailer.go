// Copyright (c) 2020-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mock

import (
	"sync"

	"github.com/decred/dcrblog/blogwww/mail"
	"github.com/google/uuid"
)

// Ensure, that MailerMock does implement Mailer.
var _ mail.Mailer = &MailerMock{}

// Email records a single call to one of the send methods.
type Email struct {
	Subject    string
	Body       string
	Recipients []string
}

// MailerMock is a mock implementation of Mailer. A nil func field falls
// back to recording the call and returning Err.
type MailerMock struct {
	// IsEnabledFunc mocks the IsEnabled method.
	IsEnabledFunc func() bool

	// SendToFunc mocks the SendTo method.
	SendToFunc func(subject string, body string, recipients []string) error

	// SendToUsersFunc mocks the SendToUsers method.
	SendToUsersFunc func(subject string, body string, recipients map[uuid.UUID]string) error

	// Err is returned by the default send implementations.
	Err error

	mtx  sync.Mutex
	sent []Email
}

// IsEnabled calls IsEnabledFunc.
func (mock *MailerMock) IsEnabled() bool {
	if mock.IsEnabledFunc == nil {
		return true
	}
	return mock.IsEnabledFunc()
}

// SendTo calls SendToFunc.
func (mock *MailerMock) SendTo(subject string, body string, recipients []string) error {
	if mock.SendToFunc != nil {
		return mock.SendToFunc(subject, body, recipients)
	}
	return mock.record(subject, body, recipients)
}

// SendToUsers calls SendToUsersFunc.
func (mock *MailerMock) SendToUsers(subject string, body string, recipients map[uuid.UUID]string) error {
	if mock.SendToUsersFunc != nil {
		return mock.SendToUsersFunc(subject, body, recipients)
	}
	rs := make([]string, 0, len(recipients))
	for _, v := range recipients {
		rs = append(rs, v)
	}
	return mock.record(subject, body, rs)
}

func (mock *MailerMock) record(subject, body string, recipients []string) error {
	if mock.Err != nil {
		return mock.Err
	}

	mock.mtx.Lock()
	defer mock.mtx.Unlock()

	mock.sent = append(mock.sent, Email{
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
	})
	return nil
}

// Sent returns the emails that were recorded by the default send
// implementations.
func (mock *MailerMock) Sent() []Email {
	mock.mtx.Lock()
	defer mock.mtx.Unlock()

	s := make([]Email, len(mock.sent))
	copy(s, mock.sent)
	return s
}
