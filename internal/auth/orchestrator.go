// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/pkg/errutil"
)

// Status is the two-valued outcome reported to callers.
type Status int

// Status values.
const (
	StatusFailure Status = iota
	StatusSuccess
)

// String returns the wire name of the status.
func (s Status) String() string {
	if s == StatusSuccess {
		return "SUCCESS"
	}
	return "FAILURE"
}

// Operation names an orchestrator entry point.
type Operation string

// Operations.
const (
	OpSignUp          Operation = "sign_up"
	OpSignIn          Operation = "sign_in"
	OpSignOut         Operation = "sign_out"
	OpValidateSession Operation = "validate_session"
)

// SignUpResult is the caller-safe outcome of SignUp.
type SignUpResult struct {
	Status Status
}

// SignInResult is the caller-safe outcome of SignIn.
// Identity and Token are empty unless Status is StatusSuccess.
type SignInResult struct {
	Status   Status
	Identity string
	Token    string
}

// SignOutResult is the caller-safe outcome of SignOut.
type SignOutResult struct {
	Status Status
}

// ValidateResult is the caller-safe outcome of ValidateSession.
// Identity is empty unless Status is StatusSuccess.
type ValidateResult struct {
	Status   Status
	Identity string
}

// Observer receives the uncollapsed outcome of every orchestrator call.
type Observer interface {
	ObserveAuth(ctx context.Context, op Operation, status Status, kind ErrorKind, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveAuth(context.Context, Operation, Status, ErrorKind, time.Duration) {}

// Orchestrator composes a CredentialStore and a SessionStore into the
// SignUp, SignIn, SignOut and ValidateSession operations.
//
// Every method returns a result that is safe to hand to any caller: failures
// carry no detail and empty strings. The error return holds the typed cause
// (see KindOf) and is nil exactly when the status is StatusSuccess.
type Orchestrator struct {
	credentials CredentialStore
	sessions    SessionStore
	logger      *slog.Logger
	observer    Observer

	// now is used for latency measurement. Can be overridden for testing.
	now func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver sets the observer notified after every call.
func WithObserver(observer Observer) OrchestratorOption {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// NewOrchestrator creates an Orchestrator over the given stores.
func NewOrchestrator(credentials CredentialStore, sessions SessionStore, opts ...OrchestratorOption) (*Orchestrator, error) {
	if credentials == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("credential store is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session store is required")
	}

	o := &Orchestrator{
		credentials: credentials,
		sessions:    sessions,
		logger:      slog.Default(),
		observer:    nopObserver{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SignUp registers a new credential.
func (o *Orchestrator) SignUp(ctx context.Context, username, password string) (SignUpResult, error) {
	start := o.now()

	err := o.credentials.Create(ctx, username, password)
	o.finish(ctx, OpSignUp, start, err)
	if err != nil {
		return SignUpResult{Status: StatusFailure}, err
	}
	return SignUpResult{Status: StatusSuccess}, nil
}

// SignIn verifies a credential and issues a session token. The credential
// store is released before the session store is called.
func (o *Orchestrator) SignIn(ctx context.Context, username, password string) (SignInResult, error) {
	start := o.now()

	identity, err := o.credentials.Authenticate(ctx, username, password)
	if err != nil {
		o.finish(ctx, OpSignIn, start, err)
		return SignInResult{Status: StatusFailure}, err
	}

	token, err := o.sessions.Create(ctx, identity)
	if err != nil {
		o.finish(ctx, OpSignIn, start, err)
		return SignInResult{Status: StatusFailure}, err
	}

	o.finish(ctx, OpSignIn, start, nil)
	return SignInResult{
		Status:   StatusSuccess,
		Identity: identity.String(),
		Token:    token,
	}, nil
}

// SignOut invalidates the session bound to token. Unrecognized tokens fail
// without touching other sessions.
func (o *Orchestrator) SignOut(ctx context.Context, token string) (SignOutResult, error) {
	start := o.now()

	_, err := o.sessions.Revoke(ctx, token)
	o.finish(ctx, OpSignOut, start, err)
	if err != nil {
		return SignOutResult{Status: StatusFailure}, err
	}
	return SignOutResult{Status: StatusSuccess}, nil
}

// ValidateSession resolves token to the identity it was issued for.
func (o *Orchestrator) ValidateSession(ctx context.Context, token string) (ValidateResult, error) {
	start := o.now()

	identity, err := o.sessions.Resolve(ctx, token)
	o.finish(ctx, OpValidateSession, start, err)
	if err != nil {
		return ValidateResult{Status: StatusFailure}, err
	}
	return ValidateResult{Status: StatusSuccess, Identity: identity.String()}, nil
}

func (o *Orchestrator) finish(ctx context.Context, op Operation, start time.Time, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	kind := KindOf(err)

	switch kind {
	case KindNone:
		o.logger.DebugContext(ctx, "auth operation succeeded", "operation", string(op))
	case KindStorageFailure, KindHashingFailure:
		errutil.LogErrorContext(ctx, o.logger.With("operation", string(op), "kind", kind.String()), "auth operation failed", err)
	default:
		o.logger.InfoContext(ctx, "auth operation rejected",
			"operation", string(op),
			"kind", kind.String())
	}

	o.observer.ObserveAuth(ctx, op, status, kind, o.now().Sub(start))
}
