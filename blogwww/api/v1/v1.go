// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package v1

import "fmt"

const (
	// Page routes
	RouteIndex         = "/"
	RouteArchive       = "/blog-archive"
	RoutePost          = "/post/{id:[0-9]+}"
	RouteNewPost       = "/new-post"
	RouteEditPost      = "/edit-post/{id:[0-9]+}"
	RouteDeletePost    = "/delete/{id:[0-9]+}"
	RouteDeleteComment = "/delete-comment/{cid:[0-9]+}/{pid:[0-9]+}"
	RouteRegister      = "/register"
	RouteLogin         = "/login"
	RouteLogout        = "/logout"
	RouteRecovery      = "/recovery"
	RouteResetPassword = "/reset-password/{token}"
	RouteAbout         = "/about"
	RouteContact       = "/contact"

	// JSON routes
	RouteVersion = "/version"
	RouteMetrics = "/metrics"

	// CookieSession is the name of the cookie that carries the encoded
	// session ID of an authenticated user.
	CookieSession = "blogwww_session"

	// CookieFlash is the name of the cookie that carries the one-shot
	// flash messages.
	CookieFlash = "blogwww_flash"

	// CommentTextMaxLength is the maximum length of a comment.
	CommentTextMaxLength = 5000

	// RecentPostsLimit is the number of posts shown on the home page.
	RecentPostsLimit = 3

	// PostDateFormat is the format that post dates are stored and
	// displayed in.
	PostDateFormat = "January 02, 2006"
)

// PostPath returns the page path of a post.
func PostPath(id uint64) string {
	return fmt.Sprintf("/post/%v", id)
}

// EditPostPath returns the edit page path of a post.
func EditPostPath(id uint64) string {
	return fmt.Sprintf("/edit-post/%v", id)
}

// DeletePostPath returns the delete path of a post.
func DeletePostPath(id uint64) string {
	return fmt.Sprintf("/delete/%v", id)
}

// DeleteCommentPath returns the delete path of a comment.
func DeleteCommentPath(commentID, postID uint64) string {
	return fmt.Sprintf("/delete-comment/%v/%v", commentID, postID)
}

// ResetPasswordPath returns the reset password page path for a token.
func ResetPasswordPath(token string) string {
	return "/reset-password/" + token
}

// ErrorCodeT represents a user error code.
type ErrorCodeT int

const (
	// Error codes
	ErrorCodeInvalid               ErrorCodeT = 0
	ErrorCodeInvalidInput          ErrorCodeT = 1
	ErrorCodeDuplicateUser         ErrorCodeT = 2
	ErrorCodeUnknownEmail          ErrorCodeT = 3
	ErrorCodeInvalidPassword       ErrorCodeT = 4
	ErrorCodeInvalidOrExpiredToken ErrorCodeT = 5
	ErrorCodePasswordMismatch      ErrorCodeT = 6
	ErrorCodeNotFound              ErrorCodeT = 7
	ErrorCodeForbidden             ErrorCodeT = 8
	ErrorCodeAuthRequired          ErrorCodeT = 9
	ErrorCodeUserNotFound          ErrorCodeT = 10
	ErrorCodeRateLimited           ErrorCodeT = 11
)

var (
	// ErrorCodes contains the human readable error messages. These are
	// the messages that are flashed to the user.
	ErrorCodes = map[ErrorCodeT]string{
		ErrorCodeInvalid:               "invalid error",
		ErrorCodeInvalidInput:          "Invalid input, please check the form and try again.",
		ErrorCodeDuplicateUser:         "You've already signed up with that email, log in instead!",
		ErrorCodeUnknownEmail:          "That email does not exist, please try again.",
		ErrorCodeInvalidPassword:       "Password incorrect, please try again.",
		ErrorCodeInvalidOrExpiredToken: "That is an invalid or expired token.",
		ErrorCodePasswordMismatch:      "Passwords do not match, please try again.",
		ErrorCodeNotFound:              "The requested page could not be found.",
		ErrorCodeForbidden:             "You are not allowed to do that.",
		ErrorCodeAuthRequired:          "You need to login or register to comment.",
		ErrorCodeUserNotFound:          "No account is registered with that email.",
		ErrorCodeRateLimited:           "Too many requests, please try again later.",
	}
)

// UserError represents an error that is caused by something that the user
// did (malformed input, bad timing, etc).
type UserError struct {
	ErrorCode    ErrorCodeT
	ErrorContext string
}

// Error satisfies the error interface.
func (e UserError) Error() string {
	if e.ErrorContext == "" {
		return fmt.Sprintf("user error code: %v", e.ErrorCode)
	}
	return fmt.Sprintf("user error code %v: %v", e.ErrorCode,
		e.ErrorContext)
}

// Register is the form used to create a new user account. Passwords are
// bounded by the 72 byte input limit of bcrypt.
type Register struct {
	Email    string `schema:"email" validate:"required,email"`
	Password string `schema:"password" validate:"required,maxbytes=72"`
	Name     string `schema:"name" validate:"required"`
}

// Login is the form used to authenticate a user.
type Login struct {
	Email    string `schema:"email" validate:"required,email"`
	Password string `schema:"password" validate:"required"`
}

// Post is the form used to create and edit a blog post. The body is rich
// text HTML that is sanitized before it is stored.
type Post struct {
	Title    string `schema:"title" validate:"required"`
	Subtitle string `schema:"subtitle" validate:"required"`
	ImgURL   string `schema:"img_url" validate:"required,url"`
	Body     string `schema:"body" validate:"required"`
}

// Comment is the form used to comment on a blog post.
type Comment struct {
	Text string `schema:"comment_text" validate:"required,min=1,max=5000"`
}

// Recovery is the form used to request a password reset link.
type Recovery struct {
	Email string `schema:"email" validate:"required,email"`
}

// ResetPassword is the form used to set a new password using a reset
// token. The passwords are compared by the server so that a mismatch is
// reported as a PasswordMismatch error.
type ResetPassword struct {
	Password        string `schema:"password" validate:"required,maxbytes=72"`
	ConfirmPassword string `schema:"confirm_password" validate:"required,maxbytes=72"`
}

// Contact is the contact form.
type Contact struct {
	Name    string `schema:"name" validate:"required"`
	Email   string `schema:"email" validate:"required,email"`
	Phone   string `schema:"phone"`
	Message string `schema:"message" validate:"required"`
}

// VersionReply is the reply to the version route.
type VersionReply struct {
	Version      string `json:"version"`
	BuildVersion string `json:"buildversion"`
	GoVersion    string `json:"goversion,omitempty"`
}
