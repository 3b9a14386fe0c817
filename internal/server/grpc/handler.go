package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/identityapi"
	"github.com/dmitrijs2005/hrkeeper/internal/server/models"
	"github.com/dmitrijs2005/hrkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var empty = &identityapi.Empty{}

func (s *GRPCServer) Register(ctx context.Context, req *identityapi.RegisterRequest) (*identityapi.RegisterResponse, error) {

	s.logger.Info(ctx, "Registration request")

	identity, err := s.identities.Register(ctx, services.RegisterRequest{
		UserName: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "identity_id", identity.ID)
	return &identityapi.RegisterResponse{IdentityID: identity.ID, Status: string(identity.Status)}, nil
}

func (s *GRPCServer) Verify(ctx context.Context, req *identityapi.VerifyRequest) (*identityapi.Empty, error) {
	if err := s.identities.Verify(ctx, req.Username, req.Code); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return empty, nil
}

func (s *GRPCServer) ResendVerification(ctx context.Context, req *identityapi.ResendVerificationRequest) (*identityapi.Empty, error) {
	if err := s.identities.ResendVerification(ctx, req.Username); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return empty, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *identityapi.LoginRequest) (*identityapi.LoginResponse, error) {
	token, err := s.identities.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &identityapi.LoginResponse{SessionToken: token}, nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *identityapi.Empty) (*identityapi.MeResponse, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing session")
	}

	identity, err := s.identities.Me(ctx, claims.IdentityID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &identityapi.MeResponse{
		IdentityID: identity.ID,
		Username:   identity.UserName,
		Email:      identity.Email,
		Role:       string(identity.Role),
		Status:     string(identity.Status),
	}, nil
}

func (s *GRPCServer) RequestPasswordReset(ctx context.Context, req *identityapi.RequestPasswordResetRequest) (*identityapi.Empty, error) {
	if err := s.identities.RequestPasswordReset(ctx, req.Username); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return empty, nil
}

func (s *GRPCServer) CheckPasswordReset(ctx context.Context, req *identityapi.CheckPasswordResetRequest) (*identityapi.Empty, error) {
	if err := s.identities.CheckPasswordReset(ctx, req.Username, req.Token); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return empty, nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *identityapi.ResetPasswordRequest) (*identityapi.Empty, error) {
	if err := s.identities.ResetPassword(ctx, req.Username, req.Token, req.NewPassword); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return empty, nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *identityapi.ChangePasswordRequest) (*identityapi.Empty, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing session")
	}
	if err := s.identities.ChangePassword(ctx, claims.IdentityID, req.OldPassword, req.NewPassword); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return empty, nil
}

// statusCodes maps domain errors to gRPC codes. Order matters only for
// errors wrapping more than one kind, which the services never produce.
var statusCodes = []struct {
	err  error
	code codes.Code
	msg  string
}{
	{common.ErrInvalidArgument, codes.InvalidArgument, ""},
	{common.ErrIncorrectCredential, codes.Unauthenticated, "incorrect username or password"},
	{common.ErrInvalidToken, codes.Unauthenticated, "invalid session token"},
	{common.ErrorUnauthorized, codes.Unauthenticated, "unauthorized"},
	{common.ErrIdentityNotActive, codes.FailedPrecondition, ""},
	{common.ErrAlreadyVerified, codes.FailedPrecondition, "identity already verified"},
	{common.ErrInvalidCode, codes.InvalidArgument, "invalid verification code"},
	{common.ErrWrongToken, codes.InvalidArgument, "wrong reset token"},
	{common.ErrExpiredToken, codes.FailedPrecondition, "reset token expired"},
	{common.ErrorNotFound, codes.NotFound, "not found"},
	{common.ErrorAlreadyExists, codes.AlreadyExists, "username or email already taken"},
}

// toStatus converts a service error into a gRPC status. Internal errors
// are logged and returned without detail.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	for _, m := range statusCodes {
		if errors.Is(err, m.err) {
			msg := m.msg
			if msg == "" {
				msg = err.Error()
			}
			return status.Error(m.code, msg)
		}
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
