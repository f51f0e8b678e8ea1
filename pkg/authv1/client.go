// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authv1

import (
	"context"

	"google.golang.org/grpc"
)

// AuthClient is the client API for the Auth service.
type AuthClient interface {
	SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*SignUpResponse, error)
	SignIn(ctx context.Context, in *SignInRequest, opts ...grpc.CallOption) (*SignInResponse, error)
	SignOut(ctx context.Context, in *SignOutRequest, opts ...grpc.CallOption) (*SignOutResponse, error)
	ValidateSession(ctx context.Context, in *ValidateSessionRequest, opts ...grpc.CallOption) (*ValidateSessionResponse, error)
}

// Client calls the Auth service over cc.
type Client struct {
	cc grpc.ClientConnInterface
}

var _ AuthClient = (*Client)(nil)

// NewClient creates a Client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// SignUp registers a credential.
func (c *Client) SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*SignUpResponse, error) {
	out := new(SignUpResponse)
	if err := c.invoke(ctx, SignUpMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// SignIn exchanges a credential for a session token.
func (c *Client) SignIn(ctx context.Context, in *SignInRequest, opts ...grpc.CallOption) (*SignInResponse, error) {
	out := new(SignInResponse)
	if err := c.invoke(ctx, SignInMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// SignOut invalidates a session token.
func (c *Client) SignOut(ctx context.Context, in *SignOutRequest, opts ...grpc.CallOption) (*SignOutResponse, error) {
	out := new(SignOutResponse)
	if err := c.invoke(ctx, SignOutMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateSession resolves a session token to its identity.
func (c *Client) ValidateSession(ctx context.Context, in *ValidateSessionRequest, opts ...grpc.CallOption) (*ValidateSessionResponse, error) {
	out := new(ValidateSessionResponse)
	if err := c.invoke(ctx, ValidateSessionMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
