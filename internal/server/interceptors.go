package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// healthCheckMethod stays open so probes need no token.
const healthCheckMethod = "/grpc.health.v1.Health/Check"

var (
	errNoAuthHeader = errors.New("missing authorization header")
	errAuthScheme   = errors.New("invalid authorization scheme")
	errBadToken     = errors.New("invalid token")
)

// bearerAuth checks "Authorization: Bearer <token>". The zero value lets
// everything through.
type bearerAuth struct {
	token []byte
}

func newBearerAuth(token string) bearerAuth {
	if token == "" {
		return bearerAuth{}
	}
	return bearerAuth{token: []byte(token)}
}

func (a bearerAuth) enabled() bool { return a.token != nil }

func (a bearerAuth) check(header string) error {
	if header == "" {
		return errNoAuthHeader
	}
	provided, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return errAuthScheme
	}
	if subtle.ConstantTimeCompare([]byte(provided), a.token) != 1 {
		return errBadToken
	}
	return nil
}

// checkRPC authenticates an incoming call from its metadata.
func (a bearerAuth) checkRPC(ctx context.Context, method string) error {
	if !a.enabled() || method == healthCheckMethod {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	var header string
	if v := md.Get("authorization"); len(v) > 0 {
		header = v[0]
	}
	if err := a.check(header); err != nil {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	return nil
}

// AuthInterceptor requires a bearer token on unary calls other than
// health checks. An empty token disables it.
func AuthInterceptor(token string) grpc.UnaryServerInterceptor {
	auth := newBearerAuth(token)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if err := auth.checkRPC(ctx, info.FullMethod); err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

// AuthStreamInterceptor guards health Watch and reflection the same way.
func AuthStreamInterceptor(token string) grpc.StreamServerInterceptor {
	auth := newBearerAuth(token)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, next grpc.StreamHandler) error {
		if err := auth.checkRPC(ss.Context(), info.FullMethod); err != nil {
			return err
		}
		return next(srv, ss)
	}
}

// AuthMiddleware applies the bearer check to HTTP requests, leaving
// GET /v1/health open.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	auth := newBearerAuth(token)
	if !auth.enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/health" {
			if err := auth.check(r.Header.Get("Authorization")); err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// LoggingInterceptor logs each unary call: failures at error level with
// the status code, successes at debug.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	log := slog.With("method", info.FullMethod, "duration", time.Since(start))
	if err != nil {
		log.Error("rpc failed", "code", status.Code(err).String(), "error", err)
	} else {
		log.Debug("rpc completed")
	}
	return resp, err
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
	defer recoverRPC(info.FullMethod, &err)
	return next(ctx, req)
}

// RecoveryStreamInterceptor is RecoveryInterceptor for streams.
func RecoveryStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, next grpc.StreamHandler) (err error) {
	defer recoverRPC(info.FullMethod, &err)
	return next(srv, ss)
}

func recoverRPC(method string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	slog.Error("panic in rpc handler", "method", method, "panic", r, "stack", string(debug.Stack()))
	*err = status.Error(codes.Internal, "internal server error")
}
