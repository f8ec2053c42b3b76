package auth

import (
	"context"
	"errors"

	domainauth "github.com/NordCoder/Homeroom/internal/domain/auth"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var DefaultPublicMethods = []string{
	"/grpc.health.v1.Health/Check",
	"/grpc.health.v1.Health/Watch",
	"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo",
	"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo",
}

// UnaryAuthInterceptor authenticates every unary call except the listed public methods.
func UnaryAuthInterceptor(gw *Gateway, publicMethods []string) grpc.UnaryServerInterceptor {
	public := make(map[string]bool, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if public[info.FullMethod] {
			return next(ctx, req)
		}
		p, err := gw.Authenticate(ctx, authorizationFromMD(ctx))
		if err != nil {
			return nil, grpcErr(err)
		}
		return next(WithPrincipal(ctx, p), req)
	}
}

func authorizationFromMD(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get("authorization"); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func grpcErr(err error) error {
	switch {
	case errors.Is(err, domainauth.ErrMissingToken):
		return status.Error(codes.Unauthenticated, "missing bearer token")
	case errors.Is(err, domainauth.ErrTokenInvalid):
		return status.Error(codes.Unauthenticated, "invalid or expired token")
	case errors.Is(err, domainauth.ErrUnauthorized):
		return status.Error(codes.PermissionDenied, "unauthorized")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
