// Package grpcbreaker integrates circuit breakers into gRPC clients.
//
// The interceptor runs every unary RPC through a per-service breaker
// looked up in a breaker.Registry, so one tripped service does not need
// to take the whole client down with it.
package grpcbreaker

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fusebox/pkg/breaker"
)

// UnaryClientInterceptor returns an interceptor that routes each unary
// RPC through the registry breaker for its target service.
//
// Breakers are keyed by the fully qualified service name parsed from the
// method ("/pkg.Service/Method" -> "pkg.Service"). Contexts carrying
// breaker.WithSkip bypass the breaker.
func UnaryClientInterceptor(registry *breaker.Registry) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if breaker.Skipped(ctx) {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		cb := registry.Get(serviceFromMethod(method))
		return cb.Call(ctx, func(ctx context.Context) error {
			return invoker(ctx, method, req, reply, cc, opts...)
		})
	}
}

// MatchCodes returns an ErrorMatcher for RPC errors carrying one of the
// given status codes.
//
// Use it to keep business responses like codes.NotFound or
// codes.InvalidArgument from counting as breaker failures:
//
//	breaker.Config{
//	    Excluded: []breaker.ErrorMatcher{
//	        grpcbreaker.MatchCodes(codes.NotFound, codes.InvalidArgument),
//	    },
//	}
func MatchCodes(match ...codes.Code) breaker.ErrorMatcher {
	return func(err error) bool {
		st, ok := status.FromError(err)
		if !ok {
			return false
		}
		for _, code := range match {
			if st.Code() == code {
				return true
			}
		}
		return false
	}
}

// serviceFromMethod extracts "pkg.Service" from "/pkg.Service/Method".
func serviceFromMethod(method string) string {
	method = strings.TrimPrefix(method, "/")
	if i := strings.Index(method, "/"); i >= 0 {
		return method[:i]
	}
	return method
}
