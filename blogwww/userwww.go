// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"net/http"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/sessions"
	"github.com/decred/dcrblog/util"
	"github.com/gorilla/mux"
)

const (
	// flashRecoverySent is shown after a recovery request regardless of
	// whether the email belongs to an account.
	flashRecoverySent = "If an account exists for that email, a password " +
		"reset link has been sent to it."

	flashPasswordReset = "Your password has been reset, please log in."
)

// handleRegisterPage renders the register page.
func (p *blogwww) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleRegisterPage")

	p.render(w, r, tmplRegister, http.StatusOK, pageData{
		Form: v1.Register{},
	})
}

// handleRegister handles the registration form. The new user is logged in
// on success.
func (p *blogwww) handleRegister(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleRegister")

	var form v1.Register
	fe, err := decodeForm(r, &form)
	if err != nil {
		p.respondWithError(w, r, "handleRegister: decodeForm: %v", err)
		return
	}
	if len(fe) > 0 {
		form.Password = ""
		p.respondWithFormErrors(w, r, tmplRegister, form, fe, nil)
		return
	}

	u, err := p.blog.Register(r.Context(), form.Email, form.Name,
		form.Password)
	if err != nil {
		p.respondWithError(w, r, "handleRegister: Register: %v", err)
		return
	}

	err = p.sessions.NewSession(w, r, u.ID.String())
	if err != nil {
		p.respondWithError(w, r, "handleRegister: NewSession: %v", err)
		return
	}

	http.Redirect(w, r, v1.RouteIndex, http.StatusFound)
}

// handleLoginPage renders the login page.
func (p *blogwww) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleLoginPage")

	p.render(w, r, tmplLogin, http.StatusOK, pageData{
		Form: v1.Login{},
	})
}

// handleLogin handles the login form.
func (p *blogwww) handleLogin(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleLogin")

	var form v1.Login
	fe, err := decodeForm(r, &form)
	if err != nil {
		p.respondWithError(w, r, "handleLogin: decodeForm: %v", err)
		return
	}
	if len(fe) > 0 {
		form.Password = ""
		p.respondWithFormErrors(w, r, tmplLogin, form, fe, nil)
		return
	}

	u, err := p.blog.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		p.respondWithError(w, r, "handleLogin: Login: %v", err)
		return
	}

	err = p.sessions.NewSession(w, r, u.ID.String())
	if err != nil {
		p.respondWithError(w, r, "handleLogin: NewSession: %v", err)
		return
	}

	log.Infof("%v Login: %v", util.RemoteAddr(r), u.ID)

	http.Redirect(w, r, v1.RouteIndex, http.StatusFound)
}

// handleLogout logs the user out. Visitors without a session are redirected
// as well.
func (p *blogwww) handleLogout(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleLogout")

	err := p.sessions.DelSession(w, r)
	if err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
		p.respondWithError(w, r, "handleLogout: DelSession: %v", err)
		return
	}

	http.Redirect(w, r, v1.RouteIndex, http.StatusFound)
}

// handleRecoveryPage renders the password recovery page.
func (p *blogwww) handleRecoveryPage(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleRecoveryPage")

	p.render(w, r, tmplRecovery, http.StatusOK, pageData{
		Form: v1.Recovery{},
	})
}

// handleRecovery handles the password recovery form. The same message is
// shown whether or not the email belongs to an account.
func (p *blogwww) handleRecovery(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleRecovery")

	var form v1.Recovery
	fe, err := decodeForm(r, &form)
	if err != nil {
		p.respondWithError(w, r, "handleRecovery: decodeForm: %v", err)
		return
	}
	if len(fe) > 0 {
		p.respondWithFormErrors(w, r, tmplRecovery, form, fe, nil)
		return
	}

	rr, err := p.blog.RequestRecovery(r.Context(), form.Email)
	var ue v1.UserError
	switch {
	case errors.As(err, &ue) && ue.ErrorCode == v1.ErrorCodeUserNotFound:
		log.Debugf("%v Recovery requested for unknown email %v",
			util.RemoteAddr(r), form.Email)
	case err != nil:
		p.respondWithError(w, r, "handleRecovery: RequestRecovery: %v",
			err)
		return
	case !p.mail.IsEnabled():
		// Log the reset link so that the server operator is able to
		// hand it out when email has been disabled.
		log.Infof("Password reset link for %v: %v", form.Email, rr.Link)
	}

	p.flashRedirect(w, r, flashRecoverySent, v1.RouteLogin)
}

// handleResetPasswordPage renders the reset password page if the token of
// the request path is valid.
func (p *blogwww) handleResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleResetPasswordPage")

	token := mux.Vars(r)["token"]
	_, err := p.blog.VerifyResetToken(r.Context(), token)
	if err != nil {
		p.respondWithError(w, r,
			"handleResetPasswordPage: VerifyResetToken: %v", err)
		return
	}

	p.render(w, r, tmplResetPassword, http.StatusOK, pageData{
		Form: v1.ResetPassword{},
		Data: token,
	})
}

// handleResetPassword handles the reset password form.
func (p *blogwww) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleResetPassword")

	token := mux.Vars(r)["token"]

	var form v1.ResetPassword
	fe, err := decodeForm(r, &form)
	if err != nil {
		p.respondWithError(w, r, "handleResetPassword: decodeForm: %v", err)
		return
	}
	if len(fe) > 0 {
		p.respondWithFormErrors(w, r, tmplResetPassword,
			v1.ResetPassword{}, fe, token)
		return
	}

	err = p.blog.ResetPassword(r.Context(), token, form.Password,
		form.ConfirmPassword)
	if err != nil {
		p.respondWithError(w, r, "handleResetPassword: ResetPassword: %v",
			err)
		return
	}

	p.flashRedirect(w, r, flashPasswordReset, v1.RouteLogin)
}
