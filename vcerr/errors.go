/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vcerr defines the rejection kinds reported by token decoding, signature checks,
// selective disclosure processing, key binding and status checks.
package vcerr

import (
	"errors"
	"fmt"
)

// Kind discriminates the reason a token was rejected.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors that carry no kind.
	KindUnknown Kind = iota
	// KindMalformedEncoding is a structure, base64url or JSON violation.
	KindMalformedEncoding
	// KindUnsupportedAlgorithm is an absent, unregistered or mismatched algorithm.
	KindUnsupportedAlgorithm
	// KindSignatureVerificationFailed is a cryptographic signature mismatch.
	KindSignatureVerificationFailed
	// KindDisclosureIntegrityViolation is a duplicate, dangling or mismatched disclosure digest.
	KindDisclosureIntegrityViolation
	// KindClaimsConstraintViolation is a temporal, issuer, subject or index check failure.
	KindClaimsConstraintViolation
	// KindKeyBindingViolation is a missing, unexpected or invalid key binding token.
	KindKeyBindingViolation
	// KindRevocationViolation means the credential is revoked or suspended.
	KindRevocationViolation
	// KindResolutionFailed is a failure of an external collaborator (key resolver, status fetcher).
	KindResolutionFailed
)

// nolint: gochecknoglobals
var kindNames = map[Kind]string{
	KindUnknown:                      "unknown",
	KindMalformedEncoding:            "malformed encoding",
	KindUnsupportedAlgorithm:         "unsupported algorithm",
	KindSignatureVerificationFailed:  "signature verification failed",
	KindDisclosureIntegrityViolation: "disclosure integrity violation",
	KindClaimsConstraintViolation:    "claims constraint violation",
	KindKeyBindingViolation:          "key binding violation",
	KindRevocationViolation:          "revocation violation",
	KindResolutionFailed:             "resolution failed",
}

// String returns kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels to be used with errors.Is.
var (
	ErrMalformedEncoding            = &Error{Kind: KindMalformedEncoding}
	ErrUnsupportedAlgorithm         = &Error{Kind: KindUnsupportedAlgorithm}
	ErrSignatureVerificationFailed  = &Error{Kind: KindSignatureVerificationFailed}
	ErrDisclosureIntegrityViolation = &Error{Kind: KindDisclosureIntegrityViolation}
	ErrClaimsConstraintViolation    = &Error{Kind: KindClaimsConstraintViolation}
	ErrKeyBindingViolation          = &Error{Kind: KindKeyBindingViolation}
	ErrRevocationViolation          = &Error{Kind: KindRevocationViolation}
	ErrResolutionFailed             = &Error{Kind: KindResolutionFailed}
)

// Error is an error tagged with a rejection kind.
type Error struct {
	Kind Kind
	Err  error
}

// Error returns error message.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}

	return e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// New creates an error of the given kind. The format supports %w.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with the given kind. Errors that already carry a kind are returned as is.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}

	if KindOf(err) != KindUnknown {
		return err
	}

	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of the outermost *Error in the err chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}
