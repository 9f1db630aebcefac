package compiler

import (
	"errors"
	"fmt"
)

// ErrorKind tags compiler failures for the notification layer.
type ErrorKind string

const (
	KindUnresolvedProvider ErrorKind = "UnresolvedProviderError"
	KindLocalParse         ErrorKind = "LocalParseError"
	KindUnknown            ErrorKind = "UnknownError"
)

// UnresolvedProviderError means a provider value has no backend token.
type UnresolvedProviderError struct {
	Field    string
	Provider string
}

func (e *UnresolvedProviderError) Error() string {
	return "unknown provider: " + e.Provider
}

// LocalParseError means a form field could not be decoded.
type LocalParseError struct {
	Field string
	Msg   string
	Err   error
}

func (e *LocalParseError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field == "" {
		return "failed to parse configuration: " + msg
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Field, msg)
}

func (e *LocalParseError) Unwrap() error { return e.Err }

// KindOf returns the tag of a compiler error.
func KindOf(err error) ErrorKind {
	var upe *UnresolvedProviderError
	if errors.As(err, &upe) {
		return KindUnresolvedProvider
	}
	var lpe *LocalParseError
	if errors.As(err, &lpe) {
		return KindLocalParse
	}
	return KindUnknown
}

// FieldOf returns the offending form field of a compiler error, if known.
func FieldOf(err error) string {
	var upe *UnresolvedProviderError
	if errors.As(err, &upe) {
		return upe.Field
	}
	var lpe *LocalParseError
	if errors.As(err, &lpe) {
		return lpe.Field
	}
	return ""
}

// IsUnresolvedProvider reports whether err is an unknown-provider failure.
func IsUnresolvedProvider(err error) bool { return KindOf(err) == KindUnresolvedProvider }

// IsLocalParse reports whether err is a parse failure.
func IsLocalParse(err error) bool { return KindOf(err) == KindLocalParse }
