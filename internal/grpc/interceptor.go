// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package grpc

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RPCObserver receives the outcome of every unary RPC.
type RPCObserver interface {
	ObserveRPC(method string, code codes.Code, elapsed time.Duration)
}

// LoggingInterceptor logs every RPC with its method, code and duration.
// Request and response bodies are never logged.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		level := slog.LevelDebug
		if code != codes.OK {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "rpc handled",
			"method", info.FullMethod,
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds())
		return resp, err
	}
}

// ObserverInterceptor reports every RPC to observer.
func ObserverInterceptor(observer RPCObserver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observer.ObserveRPC(info.FullMethod, status.Code(err), time.Since(start))
		return resp, err
	}
}

// RecoveryInterceptor converts a handler panic into codes.Internal.
func RecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "rpc handler panicked",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
