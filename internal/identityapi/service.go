package identityapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "hrkeeper.identity.v1.IdentityService"

const (
	MethodRegister             = "Register"
	MethodVerify               = "Verify"
	MethodResendVerification   = "ResendVerification"
	MethodLogin                = "Login"
	MethodMe                   = "Me"
	MethodRequestPasswordReset = "RequestPasswordReset"
	MethodCheckPasswordReset   = "CheckPasswordReset"
	MethodResetPassword        = "ResetPassword"
	MethodChangePassword       = "ChangePassword"
)

// FullMethod returns "/<service>/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// IdentityServiceServer is implemented by the server.
type IdentityServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Verify(context.Context, *VerifyRequest) (*Empty, error)
	ResendVerification(context.Context, *ResendVerificationRequest) (*Empty, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Me(context.Context, *Empty) (*MeResponse, error)
	RequestPasswordReset(context.Context, *RequestPasswordResetRequest) (*Empty, error)
	CheckPasswordReset(context.Context, *CheckPasswordResetRequest) (*Empty, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*Empty, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*Empty, error)
}

// UnimplementedIdentityServiceServer answers every method with
// codes.Unimplemented. Embed it to stay forward compatible.
type UnimplementedIdentityServiceServer struct{}

func (UnimplementedIdentityServiceServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedIdentityServiceServer) Verify(context.Context, *VerifyRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Verify not implemented")
}
func (UnimplementedIdentityServiceServer) ResendVerification(context.Context, *ResendVerificationRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method ResendVerification not implemented")
}
func (UnimplementedIdentityServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedIdentityServiceServer) Me(context.Context, *Empty) (*MeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Me not implemented")
}
func (UnimplementedIdentityServiceServer) RequestPasswordReset(context.Context, *RequestPasswordResetRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method RequestPasswordReset not implemented")
}
func (UnimplementedIdentityServiceServer) CheckPasswordReset(context.Context, *CheckPasswordResetRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method CheckPasswordReset not implemented")
}
func (UnimplementedIdentityServiceServer) ResetPassword(context.Context, *ResetPasswordRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method ResetPassword not implemented")
}
func (UnimplementedIdentityServiceServer) ChangePassword(context.Context, *ChangePasswordRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method ChangePassword not implemented")
}

// unary builds the MethodDesc for one request/response method.
func unary[Req, Resp any](method string, call func(IdentityServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(IdentityServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(IdentityServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes IdentityService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdentityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegister, IdentityServiceServer.Register),
		unary(MethodVerify, IdentityServiceServer.Verify),
		unary(MethodResendVerification, IdentityServiceServer.ResendVerification),
		unary(MethodLogin, IdentityServiceServer.Login),
		unary(MethodMe, IdentityServiceServer.Me),
		unary(MethodRequestPasswordReset, IdentityServiceServer.RequestPasswordReset),
		unary(MethodCheckPasswordReset, IdentityServiceServer.CheckPasswordReset),
		unary(MethodResetPassword, IdentityServiceServer.ResetPassword),
		unary(MethodChangePassword, IdentityServiceServer.ChangePassword),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "identity.json",
}

func RegisterIdentityServiceServer(s grpc.ServiceRegistrar, srv IdentityServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
