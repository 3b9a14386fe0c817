package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/dmitrijs2005/hrkeeper/internal/identityapi"
	"github.com/dmitrijs2005/hrkeeper/internal/logging"
	"github.com/dmitrijs2005/hrkeeper/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	s := NewGRPCServer("", logging.Nop{}, &fakeIdentities{}, nil)
	ctx := context.Background()

	tests := []struct {
		err  error
		want codes.Code
	}{
		{common.ErrInvalidArgument, codes.InvalidArgument},
		{fmt.Errorf("username: %w", common.ErrInvalidArgument), codes.InvalidArgument},
		{common.ErrIncorrectCredential, codes.Unauthenticated},
		{common.ErrInvalidToken, codes.Unauthenticated},
		{common.ErrIdentityNotActive, codes.FailedPrecondition},
		{common.ErrAlreadyVerified, codes.FailedPrecondition},
		{common.ErrExpiredToken, codes.FailedPrecondition},
		{common.ErrInvalidCode, codes.InvalidArgument},
		{common.ErrWrongToken, codes.InvalidArgument},
		{common.ErrorNotFound, codes.NotFound},
		{common.ErrorAlreadyExists, codes.AlreadyExists},
		{common.ErrorInternal, codes.Internal},
		{errors.New("db is down"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(s.toStatus(ctx, tt.err)))
		})
	}
}

func TestToStatus_HidesInternalDetail(t *testing.T) {
	s := NewGRPCServer("", logging.Nop{}, &fakeIdentities{}, nil)

	err := s.toStatus(context.Background(), errors.New("pq: password authentication failed"))
	assert.Equal(t, "internal error", status.Convert(err).Message())
}

func TestRegister_PassesFields(t *testing.T) {
	fake := &fakeIdentities{}
	s := NewGRPCServer("", logging.Nop{}, fake, nil)

	resp, err := s.Register(context.Background(), &identityapi.RegisterRequest{
		Username: "bob", Email: "bob@example.com", Password: "password1", Role: "manager",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-bob", resp.IdentityID)
	assert.Equal(t, "bob", fake.lastUser)
	assert.Equal(t, "password1", fake.lastPassword)
}

func TestVerify_MapsInvalidCode(t *testing.T) {
	fake := &fakeIdentities{err: common.ErrInvalidCode}
	s := NewGRPCServer("", logging.Nop{}, fake, nil)

	_, err := s.Verify(context.Background(), &identityapi.VerifyRequest{Username: "bob", Code: "ABC123"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "ABC123", fake.lastSecret)
}

func TestLogin_Failure(t *testing.T) {
	s := NewGRPCServer("", logging.Nop{}, &fakeIdentities{err: common.ErrIncorrectCredential}, nil)

	_, err := s.Login(context.Background(), &identityapi.LoginRequest{Username: "bob", Password: "x"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestMe_WithoutClaims(t *testing.T) {
	s := NewGRPCServer("", logging.Nop{}, &fakeIdentities{}, nil)

	_, err := s.Me(context.Background(), &identityapi.Empty{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = s.ChangePassword(context.Background(), &identityapi.ChangePasswordRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestMe_WithClaims(t *testing.T) {
	fake := &fakeIdentities{}
	s := NewGRPCServer("", logging.Nop{}, fake, nil)
	ctx := context.WithValue(context.Background(), claimsKey, &auth.SessionClaims{IdentityID: "id-7"})

	resp, err := s.Me(ctx, &identityapi.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "id-7", resp.IdentityID)
	assert.Equal(t, "Active", resp.Status)
}

func TestPasswordResetHandlers(t *testing.T) {
	fake := &fakeIdentities{}
	s := NewGRPCServer("", logging.Nop{}, fake, nil)
	ctx := context.Background()

	_, err := s.RequestPasswordReset(ctx, &identityapi.RequestPasswordResetRequest{Username: "bob"})
	require.NoError(t, err)

	_, err = s.CheckPasswordReset(ctx, &identityapi.CheckPasswordResetRequest{Username: "bob", Token: "0123456789abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", fake.lastSecret)

	fake.err = common.ErrExpiredToken
	_, err = s.ResetPassword(ctx, &identityapi.ResetPasswordRequest{Username: "bob", Token: "0123456789abcdef", NewPassword: "password9"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	fake.err = common.ErrIdentityNotActive
	_, err = s.ResendVerification(ctx, &identityapi.ResendVerificationRequest{Username: "bob"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}
