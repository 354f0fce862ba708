// Copyright (c) 2022-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httputil"
	"runtime/debug"
	"strconv"
	"time"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/forms"
	"github.com/decred/dcrblog/blogwww/mail"
	"github.com/decred/dcrblog/util"
	"github.com/decred/dcrblog/util/version"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
)

// pageData is the data that every page template is executed with.
type pageData struct {
	User    *database.User // Session user, nil for anonymous visitors
	Flashes []string       // One-shot messages
	CSRF    template.HTML  // Hidden CSRF form field
	Form    interface{}    // Submitted or prefilled form values
	Errors  forms.Errors   // Form validation errors
	Data    interface{}    // Page specific data
}

// errorPage is the data of the error page.
type errorPage struct {
	Status    int
	Message   string
	ErrorCode int64 // Set for internal errors
}

// render executes the page template and writes it to the response with the
// provided status code.
func (p *blogwww) render(w http.ResponseWriter, r *http.Request, page string, status int, pd pageData) {
	t, ok := p.templates[page]
	if !ok {
		errorCode := time.Now().Unix()
		log.Errorf("%v %v %v %v Internal error %v: template not found: %v",
			util.RemoteAddr(r), r.Method, r.URL, r.Proto, errorCode, page)
		http.Error(w, fmt.Sprintf("Internal error %v", errorCode),
			http.StatusInternalServerError)
		return
	}

	pd.User = sessionUser(r)
	pd.CSRF = csrf.TemplateField(r)
	flashes, err := p.sessions.Flashes(w, r)
	if err != nil {
		log.Errorf("render: Flashes: %v", err)
	}
	pd.Flashes = flashes

	// Execute the template into a buffer so that a template error does
	// not result in a partially written response.
	var b bytes.Buffer
	err = t.Execute(&b, pd)
	if err != nil {
		errorCode := time.Now().Unix()
		log.Errorf("%v %v %v %v Internal error %v: render %v: %v",
			util.RemoteAddr(r), r.Method, r.URL, r.Proto, errorCode,
			page, err)
		http.Error(w, fmt.Sprintf("Internal error %v", errorCode),
			http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(b.Bytes())
}

// renderError renders the error page.
func (p *blogwww) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	p.render(w, r, tmplError, status, pageData{
		Data: errorPage{
			Status:  status,
			Message: msg,
		},
	})
}

// renderInternalError renders the error page of an internal server error.
func (p *blogwww) renderInternalError(w http.ResponseWriter, r *http.Request, errorCode int64) {
	p.render(w, r, tmplError, http.StatusInternalServerError, pageData{
		Data: errorPage{
			Status:    http.StatusInternalServerError,
			Message:   "Internal server error.",
			ErrorCode: errorCode,
		},
	})
}

// flashRedirect adds a flash message to the client session and redirects
// the client to the provided path.
func (p *blogwww) flashRedirect(w http.ResponseWriter, r *http.Request, msg, path string) {
	err := p.sessions.AddFlash(w, r, msg)
	if err != nil {
		log.Errorf("flashRedirect: AddFlash: %v", err)
	}
	http.Redirect(w, r, path, http.StatusFound)
}

// respondWithError checks the error type and responds with the appropriate
// page or redirect.
func (p *blogwww) respondWithError(w http.ResponseWriter, r *http.Request, format string, err error) {
	// Check if the client dropped the connection
	if err := r.Context().Err(); err == context.Canceled {
		log.Infof("%v %v %v %v client aborted connection",
			util.RemoteAddr(r), r.Method, r.URL, r.Proto)

		// The client dropped the connection. There is no need to
		// send a response.
		return
	}

	// Check if this a user error
	var ue v1.UserError
	if errors.As(err, &ue) {
		msg := v1.ErrorCodes[ue.ErrorCode]
		m := fmt.Sprintf("%v User error: %v %v", util.RemoteAddr(r),
			ue.ErrorCode, msg)
		if ue.ErrorContext != "" {
			m += fmt.Sprintf(": %v", ue.ErrorContext)
		}
		log.Infof(m)

		switch ue.ErrorCode {
		case v1.ErrorCodeNotFound:
			p.renderError(w, r, http.StatusNotFound, msg)
		case v1.ErrorCodeForbidden:
			p.renderError(w, r, http.StatusForbidden, msg)
		case v1.ErrorCodeRateLimited:
			p.renderError(w, r, http.StatusTooManyRequests, msg)
		case v1.ErrorCodeAuthRequired, v1.ErrorCodeDuplicateUser:
			p.flashRedirect(w, r, msg, v1.RouteLogin)
		case v1.ErrorCodeInvalidOrExpiredToken:
			p.flashRedirect(w, r, msg, v1.RouteRecovery)
		default:
			// Send the client back to the form
			p.flashRedirect(w, r, msg, r.URL.Path)
		}
		return
	}

	// Check if this is a mail delivery error. The client is sent back
	// to the form with a failure message.
	var de mail.DeliveryError
	if errors.As(err, &de) {
		t := time.Now().Unix()
		log.Errorf("%v %v %v %v Mail delivery error %v: %v",
			util.RemoteAddr(r), r.Method, r.URL, r.Proto, t,
			fmt.Sprintf(format, err))
		p.flashRedirect(w, r, fmt.Sprintf("The email could not be "+
			"sent, please try again later (error code %v).", t),
			r.URL.Path)
		return
	}

	// This is an internal server error. Log it and return a 500.
	t := time.Now().Unix()
	e := fmt.Sprintf(format, err)
	log.Errorf("%v %v %v %v Internal error %v: %v",
		util.RemoteAddr(r), r.Method, r.URL, r.Proto, t, e)

	// If this is a pkg/errors error then we can pull the stack trace out
	// of the error, otherwise, we use the stack trace that points to
	// this function.
	stack, ok := util.StackTrace(err)
	if !ok {
		stack = string(debug.Stack())
	}

	log.Errorf("Stacktrace (NOT A REAL CRASH): %v", stack)

	p.renderInternalError(w, r, t)
}

// respondWithFormErrors re-renders a form page with the validation errors.
func (p *blogwww) respondWithFormErrors(w http.ResponseWriter, r *http.Request, page string, form interface{}, errs forms.Errors, data interface{}) {
	log.Debugf("%v Form errors: %v", util.RemoteAddr(r), errs)

	p.render(w, r, page, http.StatusBadRequest, pageData{
		Form:   form,
		Errors: errs,
		Data:   data,
	})
}

// pathID parses an integer ID path variable. A v1.ErrorCodeNotFound user
// error is returned if the variable is not a valid ID.
func pathID(r *http.Request, name string) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, v1.UserError{
			ErrorCode:    v1.ErrorCodeNotFound,
			ErrorContext: fmt.Sprintf("invalid %v", name),
		}
	}
	return id, nil
}

// handleNotFound handles all invalid routes and renders the not found page.
func (p *blogwww) handleNotFound(w http.ResponseWriter, r *http.Request) {
	// Log incoming connection
	log.Debugf("Invalid route: %v %v %v %v",
		util.RemoteAddr(r), r.Method, r.URL, r.Proto)

	// Trace incoming request
	log.Tracef("%v", newLogClosure(func() string {
		trace, err := httputil.DumpRequest(r, true)
		if err != nil {
			trace = []byte(fmt.Sprintf("handleNotFound: DumpRequest %v", err))
		}
		return string(trace)
	}))

	p.renderError(w, r, http.StatusNotFound,
		v1.ErrorCodes[v1.ErrorCodeNotFound])
}

// handleCSRFFailure renders the error page for requests that failed the
// CSRF check.
func (p *blogwww) handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	log.Infof("%v CSRF failure: %v %v: %v", util.RemoteAddr(r),
		r.Method, r.URL, csrf.FailureReason(r))

	p.renderError(w, r, http.StatusForbidden,
		"The form has expired, please reload the page and try again.")
}

// handleVersion is the request handler for the VersionRoute.
func (p *blogwww) handleVersion(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleVersion")

	util.RespondWithJSON(w, http.StatusOK,
		v1.VersionReply{
			Version:      version.String(),
			BuildVersion: version.BuildMetadata,
			GoVersion:    version.GoVersion(),
		})
}

// decodeForm decodes and validates the posted form into dst. A form that
// cannot be parsed, e.g. because it exceeds the request body size limit, is
// returned as a v1.ErrorCodeInvalidInput user error.
func decodeForm(r *http.Request, dst interface{}) (forms.Errors, error) {
	fe, err := forms.Decode(r, dst)
	if err != nil {
		return nil, v1.UserError{
			ErrorCode:    v1.ErrorCodeInvalidInput,
			ErrorContext: err.Error(),
		}
	}
	return fe, nil
}
