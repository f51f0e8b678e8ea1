// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "holoauth.auth.v1.Auth"

// Full method names.
const (
	SignUpMethod          = "/" + ServiceName + "/SignUp"
	SignInMethod          = "/" + ServiceName + "/SignIn"
	SignOutMethod         = "/" + ServiceName + "/SignOut"
	ValidateSessionMethod = "/" + ServiceName + "/ValidateSession"
)

// AuthServer is the server API for the Auth service.
type AuthServer interface {
	SignUp(context.Context, *SignUpRequest) (*SignUpResponse, error)
	SignIn(context.Context, *SignInRequest) (*SignInResponse, error)
	SignOut(context.Context, *SignOutRequest) (*SignOutResponse, error)
	ValidateSession(context.Context, *ValidateSessionRequest) (*ValidateSessionResponse, error)
}

// UnimplementedAuthServer answers every RPC with codes.Unimplemented. Embed it
// to stay forward compatible.
type UnimplementedAuthServer struct{}

// SignUp is not implemented.
func (UnimplementedAuthServer) SignUp(context.Context, *SignUpRequest) (*SignUpResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SignUp not implemented")
}

// SignIn is not implemented.
func (UnimplementedAuthServer) SignIn(context.Context, *SignInRequest) (*SignInResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SignIn not implemented")
}

// SignOut is not implemented.
func (UnimplementedAuthServer) SignOut(context.Context, *SignOutRequest) (*SignOutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SignOut not implemented")
}

// ValidateSession is not implemented.
func (UnimplementedAuthServer) ValidateSession(context.Context, *ValidateSessionRequest) (*ValidateSessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ValidateSession not implemented")
}

// RegisterAuthServer registers srv on s.
func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the Auth service for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SignUp",
			Handler:    unaryHandler(SignUpMethod, AuthServer.SignUp),
		},
		{
			MethodName: "SignIn",
			Handler:    unaryHandler(SignInMethod, AuthServer.SignIn),
		},
		{
			MethodName: "SignOut",
			Handler:    unaryHandler(SignOutMethod, AuthServer.SignOut),
		},
		{
			MethodName: "ValidateSession",
			Handler:    unaryHandler(ValidateSessionMethod, AuthServer.ValidateSession),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "holoauth/auth/v1/auth.proto",
}

func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(AuthServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
