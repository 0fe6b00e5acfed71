package errdef

import (
	"errors"
	"fmt"
	"strings"
)

type Code string

const (
	CodeUnknown     Code = "unknown"
	CodeValidation  Code = "validation"
	CodeHTTP        Code = "http"
	CodePersistence Code = "persistence"
	CodeNotFound    Code = "not_found"
	CodeConfig      Code = "config"
	CodeFilesystem  Code = "filesystem"
	CodeHistory     Code = "history"
	CodeCredential  Code = "credential"
)

// Error carries a classification code alongside a human readable message and
// an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	switch {
	case msg == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return msg + ": " + e.Err.Error()
	default:
		return msg
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches other coded errors by code so errors.Is(err, &Error{Code: c}) works.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return other.Message == "" && other.Err == nil && other.Code == e.Code
}

func New(code Code, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Message: msg}
}

func Wrap(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the outermost code found in the chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return CodeUnknown
}

func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) || e == nil {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

// Message returns the outermost message without the cause chain.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e != nil {
		if msg := strings.TrimSpace(e.Message); msg != "" {
			return msg
		}
	}
	return err.Error()
}
