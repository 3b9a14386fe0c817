// Package grpc exposes the IdentityService over gRPC, together with the
// standard health service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/hrkeeper/internal/identityapi"
	"github.com/dmitrijs2005/hrkeeper/internal/logging"
	"github.com/dmitrijs2005/hrkeeper/internal/server/auth"
	"github.com/dmitrijs2005/hrkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/dmitrijs2005/hrkeeper/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// IdentityService is what the handlers need from the business layer.
type IdentityService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.Identity, error)
	Verify(ctx context.Context, userName, code string) error
	ResendVerification(ctx context.Context, userName string) error
	Login(ctx context.Context, userName, password string) (string, error)
	Me(ctx context.Context, identityID string) (*models.Identity, error)
	RequestPasswordReset(ctx context.Context, userName string) error
	CheckPasswordReset(ctx context.Context, userName, token string) error
	ResetPassword(ctx context.Context, userName, token, newPassword string) error
	ChangePassword(ctx context.Context, identityID, oldPassword, newPassword string) error
	VerifySession(token string) (*auth.SessionClaims, error)
}

type GRPCServer struct {
	identityapi.UnimplementedIdentityServiceServer
	address    string
	identities IdentityService
	logger     logging.Logger
	metrics    *metrics.Metrics
	health     *health.Server
}

func NewGRPCServer(a string, l logging.Logger, is IdentityService, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		identities: is,
		metrics:    m,
		health:     health.NewServer(),
	}
}

// newServer builds the grpc.Server with interceptors and services registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.sessionInterceptor))

	identityapi.RegisterIdentityServiceServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(identityapi.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
