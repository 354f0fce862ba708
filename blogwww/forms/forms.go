// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package forms decodes and validates the url encoded HTML forms that are
// submitted to blogwww.
package forms

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	decoder  = newDecoder()
	validate = newValidator()
)

// Errors contains the validation errors of a form. The map is keyed by the
// form field name and contains a human readable error message.
type Errors map[string]string

// Get returns the error message for the form field or an empty string if
// the field is valid.
func (e Errors) Get(field string) string {
	return e[field]
}

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()

	// Forms contain a csrf token field that is not part of the form
	// structs.
	d.IgnoreUnknownKeys(true)
	return d
}

func newValidator() *validator.Validate {
	v := validator.New()

	// Report errors using the form field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("schema"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// maxbytes bounds the encoded length of a string. The builtin max
	// tag counts runes.
	err := v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			panic(fmt.Sprintf("invalid maxbytes param %q", fl.Param()))
		}
		return len(fl.Field().String()) <= n
	})
	if err != nil {
		panic(err)
	}

	return v
}

// Decode parses the posted form of the request into dst and validates it.
// dst must be a pointer to a struct that is defined with schema and validate
// tags. Field values are trimmed of surrounding whitespace.
//
// A validation failure is returned as a non-empty Errors map and a nil
// error. The error is only set when the form could not be parsed.
func Decode(r *http.Request, dst interface{}) (Errors, error) {
	err := r.ParseForm()
	if err != nil {
		return nil, err
	}
	for k, vs := range r.PostForm {
		for i := range vs {
			vs[i] = strings.TrimSpace(vs[i])
		}
		r.PostForm[k] = vs
	}

	err = decoder.Decode(dst, r.PostForm)
	if err != nil {
		return nil, fmt.Errorf("decode form: %v", err)
	}

	return Validate(dst)
}

// Validate validates a struct that is defined with validate tags.
func Validate(s interface{}) (Errors, error) {
	err := validate.Struct(s)
	if err == nil {
		return nil, nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, err
	}
	fe := make(Errors, len(ve))
	for _, v := range ve {
		fe[v.Field()] = message(v)
	}
	return fe, nil
}

// message returns the human readable message of a field error.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "url":
		return "Invalid URL."
	case "min":
		return fmt.Sprintf("Field must be at least %v characters long.",
			fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %v characters.",
			fe.Param())
	case "maxbytes":
		return fmt.Sprintf("Field cannot be longer than %v bytes.",
			fe.Param())
	}
	return "Invalid value."
}
