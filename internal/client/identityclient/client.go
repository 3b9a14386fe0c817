// Package identityclient talks to the hrkeeper IdentityService over gRPC
// and turns transport errors into messages a person can act on.
package identityclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/identityapi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// api is the subset of identityapi.IdentityServiceClient used here.
type api interface {
	Register(ctx context.Context, in *identityapi.RegisterRequest, opts ...grpc.CallOption) (*identityapi.RegisterResponse, error)
	Verify(ctx context.Context, in *identityapi.VerifyRequest, opts ...grpc.CallOption) (*identityapi.Empty, error)
	ResendVerification(ctx context.Context, in *identityapi.ResendVerificationRequest, opts ...grpc.CallOption) (*identityapi.Empty, error)
	Login(ctx context.Context, in *identityapi.LoginRequest, opts ...grpc.CallOption) (*identityapi.LoginResponse, error)
	Me(ctx context.Context, in *identityapi.Empty, opts ...grpc.CallOption) (*identityapi.MeResponse, error)
	RequestPasswordReset(ctx context.Context, in *identityapi.RequestPasswordResetRequest, opts ...grpc.CallOption) (*identityapi.Empty, error)
	CheckPasswordReset(ctx context.Context, in *identityapi.CheckPasswordResetRequest, opts ...grpc.CallOption) (*identityapi.Empty, error)
	ResetPassword(ctx context.Context, in *identityapi.ResetPasswordRequest, opts ...grpc.CallOption) (*identityapi.Empty, error)
	ChangePassword(ctx context.Context, in *identityapi.ChangePasswordRequest, opts ...grpc.CallOption) (*identityapi.Empty, error)
}

type GRPCClient struct {
	endpointURL  string
	timeout      time.Duration
	conn         *grpc.ClientConn
	client       api
	sessionToken string
}

// withSessionToken replaces any authorization header on ctx with token.
func withSessionToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) sessionTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if s.sessionToken != "" {
		ctx = withSessionToken(ctx, s.sessionToken)
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

func New(endpointURL string, timeout time.Duration) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	if err := c.initGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) initGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithUnaryInterceptor(s.sessionTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = identityapi.NewIdentityServiceClient(conn)
	return nil
}

// SetSessionToken makes later calls carry token.
func (s *GRPCClient) SetSessionToken(token string) {
	s.sessionToken = token
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Register creates an identity and returns its id and status.
func (s *GRPCClient) Register(ctx context.Context, userName, email string, password []byte, role string) (string, string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Register(ctx, &identityapi.RegisterRequest{
		Username: userName, Email: email, Password: string(password), Role: role,
	})
	if err != nil {
		return "", "", s.mapError(err)
	}
	return resp.IdentityID, resp.Status, nil
}

func (s *GRPCClient) Verify(ctx context.Context, userName, code string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.Verify(ctx, &identityapi.VerifyRequest{Username: userName, Code: code})
	return s.mapError(err)
}

func (s *GRPCClient) ResendVerification(ctx context.Context, userName string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.ResendVerification(ctx, &identityapi.ResendVerificationRequest{Username: userName})
	return s.mapError(err)
}

// Login returns the session token and keeps it for later calls.
func (s *GRPCClient) Login(ctx context.Context, userName string, password []byte) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Login(ctx, &identityapi.LoginRequest{Username: userName, Password: string(password)})
	if err != nil {
		return "", s.mapError(err)
	}

	s.sessionToken = resp.SessionToken
	return resp.SessionToken, nil
}

func (s *GRPCClient) Me(ctx context.Context) (*identityapi.MeResponse, error) {
	if s.sessionToken == "" {
		return nil, ErrNoSession
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Me(ctx, &identityapi.Empty{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) RequestPasswordReset(ctx context.Context, userName string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.RequestPasswordReset(ctx, &identityapi.RequestPasswordResetRequest{Username: userName})
	return s.mapError(err)
}

func (s *GRPCClient) CheckPasswordReset(ctx context.Context, userName, token string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.CheckPasswordReset(ctx, &identityapi.CheckPasswordResetRequest{Username: userName, Token: token})
	return s.mapError(err)
}

func (s *GRPCClient) ResetPassword(ctx context.Context, userName, token string, newPassword []byte) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.ResetPassword(ctx, &identityapi.ResetPasswordRequest{
		Username: userName, Token: token, NewPassword: string(newPassword),
	})
	return s.mapError(err)
}

func (s *GRPCClient) ChangePassword(ctx context.Context, oldPassword, newPassword []byte) error {
	if s.sessionToken == "" {
		return ErrNoSession
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.ChangePassword(ctx, &identityapi.ChangePasswordRequest{
		OldPassword: string(oldPassword), NewPassword: string(newPassword),
	})
	return s.mapError(err)
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.Internal, codes.Unknown:
		return fmt.Errorf("rpc error: %w", err)
	default:
		return errors.New(st.Message())
	}
}
