package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/identityapi"
	"github.com/dmitrijs2005/hrkeeper/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const claimsKey ctxKey = "sessionClaims"

// authenticated lists the methods that require a session.
var authenticated = map[string]bool{
	identityapi.FullMethod(identityapi.MethodMe):             true,
	identityapi.FullMethod(identityapi.MethodChangePassword): true,
}

// ClaimsFromContext returns the session claims stored by sessionInterceptor.
func ClaimsFromContext(ctx context.Context) (*auth.SessionClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.SessionClaims)
	return c, ok
}

func (s *GRPCServer) sessionInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if authenticated[info.FullMethod] {

		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AuthorizationHeaderName)
			if len(values) > 0 {
				header = values[0]
			}
		}

		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing session token")
		}

		claims, err := s.identities.VerifySession(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid session token")
		}

		ctx = context.WithValue(ctx, claimsKey, claims)
	}

	return handler(ctx, req)
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	method := info.FullMethod[strings.LastIndex(info.FullMethod, "/")+1:]
	s.metrics.ObserveRPC(method, status.Code(err).String(), time.Since(start))
	return resp, err
}
