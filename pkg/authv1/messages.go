// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authv1 defines the holoauth.auth.v1.Auth gRPC service: its wire
// messages, service descriptor, protobuf codec and typed client. The wire
// format is described by proto/holoauth/auth/v1/auth.proto.
//
// A FAILURE response carries empty strings for the identity and token fields.
package authv1

import "google.golang.org/protobuf/encoding/protowire"

// StatusCode is the outcome reported by every RPC.
type StatusCode int32

// Status codes. FAILURE is the proto3 zero value.
const (
	StatusFailure StatusCode = 0
	StatusSuccess StatusCode = 1
)

// String returns the enum value name.
func (s StatusCode) String() string {
	switch s {
	case StatusFailure:
		return "FAILURE"
	case StatusSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// SignUpRequest registers a credential.
type SignUpRequest struct {
	Username string
	Password string
}

// GetUsername returns the username, or "" for a nil request.
func (r *SignUpRequest) GetUsername() string {
	if r == nil {
		return ""
	}
	return r.Username
}

// GetPassword returns the password, or "" for a nil request.
func (r *SignUpRequest) GetPassword() string {
	if r == nil {
		return ""
	}
	return r.Password
}

func (r *SignUpRequest) appendWire(b []byte) []byte {
	b = appendString(b, 1, r.GetUsername())
	return appendString(b, 2, r.GetPassword())
}

func (r *SignUpRequest) unmarshalWire(b []byte) error {
	*r = SignUpRequest{}
	return decodeFields(b, fields{1: &r.Username, 2: &r.Password})
}

// SignUpResponse reports whether the credential was created.
type SignUpResponse struct {
	StatusCode StatusCode
}

// GetStatusCode returns the status, or FAILURE for a nil response.
func (r *SignUpResponse) GetStatusCode() StatusCode {
	if r == nil {
		return StatusFailure
	}
	return r.StatusCode
}

func (r *SignUpResponse) appendWire(b []byte) []byte {
	return appendEnum(b, 1, r.GetStatusCode())
}

func (r *SignUpResponse) unmarshalWire(b []byte) error {
	*r = SignUpResponse{}
	return decodeFields(b, fields{1: &r.StatusCode})
}

// SignInRequest exchanges a credential for a session.
type SignInRequest struct {
	Username string
	Password string
}

// GetUsername returns the username, or "" for a nil request.
func (r *SignInRequest) GetUsername() string {
	if r == nil {
		return ""
	}
	return r.Username
}

// GetPassword returns the password, or "" for a nil request.
func (r *SignInRequest) GetPassword() string {
	if r == nil {
		return ""
	}
	return r.Password
}

func (r *SignInRequest) appendWire(b []byte) []byte {
	b = appendString(b, 1, r.GetUsername())
	return appendString(b, 2, r.GetPassword())
}

func (r *SignInRequest) unmarshalWire(b []byte) error {
	*r = SignInRequest{}
	return decodeFields(b, fields{1: &r.Username, 2: &r.Password})
}

// SignInResponse carries the identity and session token on success.
type SignInResponse struct {
	StatusCode   StatusCode
	UserUUID     string
	SessionToken string
}

// GetStatusCode returns the status, or FAILURE for a nil response.
func (r *SignInResponse) GetStatusCode() StatusCode {
	if r == nil {
		return StatusFailure
	}
	return r.StatusCode
}

// GetUserUUID returns the identity, or "" for a nil response.
func (r *SignInResponse) GetUserUUID() string {
	if r == nil {
		return ""
	}
	return r.UserUUID
}

// GetSessionToken returns the token, or "" for a nil response.
func (r *SignInResponse) GetSessionToken() string {
	if r == nil {
		return ""
	}
	return r.SessionToken
}

func (r *SignInResponse) appendWire(b []byte) []byte {
	b = appendEnum(b, 1, r.GetStatusCode())
	b = appendString(b, 2, r.GetUserUUID())
	return appendString(b, 3, r.GetSessionToken())
}

func (r *SignInResponse) unmarshalWire(b []byte) error {
	*r = SignInResponse{}
	return decodeFields(b, fields{1: &r.StatusCode, 2: &r.UserUUID, 3: &r.SessionToken})
}

// SignOutRequest invalidates a session.
type SignOutRequest struct {
	SessionToken string
}

// GetSessionToken returns the token, or "" for a nil request.
func (r *SignOutRequest) GetSessionToken() string {
	if r == nil {
		return ""
	}
	return r.SessionToken
}

func (r *SignOutRequest) appendWire(b []byte) []byte {
	return appendString(b, 1, r.GetSessionToken())
}

func (r *SignOutRequest) unmarshalWire(b []byte) error {
	*r = SignOutRequest{}
	return decodeFields(b, fields{1: &r.SessionToken})
}

// SignOutResponse reports whether a session was invalidated.
type SignOutResponse struct {
	StatusCode StatusCode
}

// GetStatusCode returns the status, or FAILURE for a nil response.
func (r *SignOutResponse) GetStatusCode() StatusCode {
	if r == nil {
		return StatusFailure
	}
	return r.StatusCode
}

func (r *SignOutResponse) appendWire(b []byte) []byte {
	return appendEnum(b, 1, r.GetStatusCode())
}

func (r *SignOutResponse) unmarshalWire(b []byte) error {
	*r = SignOutResponse{}
	return decodeFields(b, fields{1: &r.StatusCode})
}

// ValidateSessionRequest looks up the identity behind a session token.
type ValidateSessionRequest struct {
	SessionToken string
}

// GetSessionToken returns the token, or "" for a nil request.
func (r *ValidateSessionRequest) GetSessionToken() string {
	if r == nil {
		return ""
	}
	return r.SessionToken
}

func (r *ValidateSessionRequest) appendWire(b []byte) []byte {
	return appendString(b, 1, r.GetSessionToken())
}

func (r *ValidateSessionRequest) unmarshalWire(b []byte) error {
	*r = ValidateSessionRequest{}
	return decodeFields(b, fields{1: &r.SessionToken})
}

// ValidateSessionResponse carries the identity bound to a live session.
type ValidateSessionResponse struct {
	StatusCode StatusCode
	UserUUID   string
}

// GetStatusCode returns the status, or FAILURE for a nil response.
func (r *ValidateSessionResponse) GetStatusCode() StatusCode {
	if r == nil {
		return StatusFailure
	}
	return r.StatusCode
}

// GetUserUUID returns the identity, or "" for a nil response.
func (r *ValidateSessionResponse) GetUserUUID() string {
	if r == nil {
		return ""
	}
	return r.UserUUID
}

func (r *ValidateSessionResponse) appendWire(b []byte) []byte {
	b = appendEnum(b, 1, r.GetStatusCode())
	return appendString(b, 2, r.GetUserUUID())
}

func (r *ValidateSessionResponse) unmarshalWire(b []byte) error {
	*r = ValidateSessionResponse{}
	return decodeFields(b, fields{1: &r.StatusCode, 2: &r.UserUUID})
}

// fields maps field numbers to *string or *StatusCode destinations.
type fields map[protowire.Number]any
