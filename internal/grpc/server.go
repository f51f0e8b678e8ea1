// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package grpc exposes the auth orchestrator as the holoauth.auth.v1.Auth
// gRPC service and provides a client for it.
package grpc

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/pkg/authv1"
)

// unavailableMessage is the only detail a client sees for backend faults.
const unavailableMessage = "authentication service unavailable"

// Orchestrator is the auth surface the server adapts.
type Orchestrator interface {
	SignUp(ctx context.Context, username, password string) (auth.SignUpResult, error)
	SignIn(ctx context.Context, username, password string) (auth.SignInResult, error)
	SignOut(ctx context.Context, token string) (auth.SignOutResult, error)
	ValidateSession(ctx context.Context, token string) (auth.ValidateResult, error)
}

// AuthServer implements authv1.AuthServer over an Orchestrator.
type AuthServer struct {
	authv1.UnimplementedAuthServer

	orchestrator Orchestrator
	logger       *slog.Logger
}

var _ authv1.AuthServer = (*AuthServer)(nil)

// AuthServerOption configures an AuthServer.
type AuthServerOption func(*AuthServer)

// WithServerLogger sets the logger. A nil logger is ignored.
func WithServerLogger(logger *slog.Logger) AuthServerOption {
	return func(s *AuthServer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAuthServer creates an AuthServer.
func NewAuthServer(orchestrator Orchestrator, opts ...AuthServerOption) (*AuthServer, error) {
	if orchestrator == nil {
		return nil, oops.Code("GRPC_INVALID_CONFIG").Errorf("orchestrator is required")
	}
	s := &AuthServer{orchestrator: orchestrator, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignUp registers a credential.
func (s *AuthServer) SignUp(ctx context.Context, req *authv1.SignUpRequest) (*authv1.SignUpResponse, error) {
	res, err := s.orchestrator.SignUp(ctx, req.GetUsername(), req.GetPassword())
	if err := s.transportError(ctx, authv1.SignUpMethod, err); err != nil {
		return nil, err
	}
	return &authv1.SignUpResponse{StatusCode: statusCode(res.Status)}, nil
}

// SignIn exchanges a credential for a session token.
func (s *AuthServer) SignIn(ctx context.Context, req *authv1.SignInRequest) (*authv1.SignInResponse, error) {
	res, err := s.orchestrator.SignIn(ctx, req.GetUsername(), req.GetPassword())
	if err := s.transportError(ctx, authv1.SignInMethod, err); err != nil {
		return nil, err
	}
	return &authv1.SignInResponse{
		StatusCode:   statusCode(res.Status),
		UserUUID:     res.Identity,
		SessionToken: res.Token,
	}, nil
}

// SignOut invalidates a session token.
func (s *AuthServer) SignOut(ctx context.Context, req *authv1.SignOutRequest) (*authv1.SignOutResponse, error) {
	res, err := s.orchestrator.SignOut(ctx, req.GetSessionToken())
	if err := s.transportError(ctx, authv1.SignOutMethod, err); err != nil {
		return nil, err
	}
	return &authv1.SignOutResponse{StatusCode: statusCode(res.Status)}, nil
}

// ValidateSession resolves a session token to its identity.
func (s *AuthServer) ValidateSession(ctx context.Context, req *authv1.ValidateSessionRequest) (*authv1.ValidateSessionResponse, error) {
	res, err := s.orchestrator.ValidateSession(ctx, req.GetSessionToken())
	if err := s.transportError(ctx, authv1.ValidateSessionMethod, err); err != nil {
		return nil, err
	}
	return &authv1.ValidateSessionResponse{
		StatusCode: statusCode(res.Status),
		UserUUID:   res.Identity,
	}, nil
}

// transportError turns a storage failure into codes.Unavailable. Every other
// outcome travels as a response payload.
func (s *AuthServer) transportError(ctx context.Context, method string, err error) error {
	if err == nil || !auth.IsStorageFailure(err) {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return status.FromContextError(ctxErr).Err()
	}
	s.logger.WarnContext(ctx, "rpc failed on backend", "method", method)
	return status.Error(codes.Unavailable, unavailableMessage)
}

func statusCode(st auth.Status) authv1.StatusCode {
	if st == auth.StatusSuccess {
		return authv1.StatusSuccess
	}
	return authv1.StatusFailure
}
