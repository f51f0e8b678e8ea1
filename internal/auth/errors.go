// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned by repositories when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Sentinel errors for the failure taxonomy. Stores wrap them in coded oops
// errors; use errors.Is or KindOf to test for them.
var (
	ErrUsernameTaken     = errors.New("username already taken")
	ErrHashing           = errors.New("password hashing failed")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrUnknownToken      = errors.New("unknown session token")
	ErrInvalidInput      = errors.New("invalid input")
)

// ErrorKind classifies an error returned by the stores or the orchestrator.
type ErrorKind int

// Error kinds. KindStorageFailure covers every error that is not one of the
// named sentinels: the system, not the caller, is at fault.
const (
	KindNone ErrorKind = iota
	KindUsernameTaken
	KindHashingFailure
	KindInvalidCredential
	KindUnknownToken
	KindInvalidInput
	KindStorageFailure
)

// String returns the snake_case name used in logs and metric labels.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUsernameTaken:
		return "username_taken"
	case KindHashingFailure:
		return "hashing_failure"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindUnknownToken:
		return "unknown_token"
	case KindInvalidInput:
		return "invalid_input"
	case KindStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of err. A nil error is KindNone.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUsernameTaken):
		return KindUsernameTaken
	case errors.Is(err, ErrHashing):
		return KindHashingFailure
	case errors.Is(err, ErrInvalidCredential):
		return KindInvalidCredential
	case errors.Is(err, ErrUnknownToken):
		return KindUnknownToken
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindStorageFailure
	}
}

// IsStorageFailure reports whether err indicates a backend or resource fault.
func IsStorageFailure(err error) bool {
	return KindOf(err) == KindStorageFailure
}
