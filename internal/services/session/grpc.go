package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/auth"
)

const (
	serviceName       = "gritsaflow.session.v1.SessionService"
	methodWhoAmI      = "/" + serviceName + "/WhoAmI"
	methodRole        = "/" + serviceName + "/Role"
	healthCheckPrefix = "/grpc.health.v1.Health/"
)

// UnaryAuthInterceptor verifies credentials carried in metadata the same way
// the HTTP verifier does. A reissued access token is sent back as a
// set-cookie header.
func UnaryAuthInterceptor(v *Verifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthCheckPrefix) {
			return next(ctx, req)
		}

		access, refresh := v.credentialsFromMD(ctx)
		id, reissued, ok := v.Resolve(ctx, access, refresh)
		if reissued != nil {
			c := v.cookies.cookie(v.cookies.AccessName, reissued.Access, reissued.AccessExpiresAt, v.issuer.Now())
			if err := grpc.SetHeader(ctx, metadata.Pairs("set-cookie", c.String())); err != nil {
				v.log.Debug("set reissued cookie header", zap.Error(err))
			}
		}
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return next(auth.WithIdentity(ctx, id), req)
	}
}

func (v *Verifier) credentialsFromMD(ctx context.Context) (access, refresh string) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ""
	}
	for _, key := range []string{"grpcgateway-cookie", "cookie"} {
		for _, raw := range md.Get(key) {
			if access == "" {
				access = parseCookie(raw, v.cookies.AccessName)
			}
			if refresh == "" {
				refresh = parseCookie(raw, v.cookies.RefreshName)
			}
		}
	}
	if access == "" {
		if vals := md.Get("authorization"); len(vals) > 0 {
			access = bearer(vals[0])
		}
	}
	return access, refresh
}

func parseCookie(header, name string) string {
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// SessionServiceServer is the gRPC view of the identity endpoints. Messages
// are well-known types so no generated stubs are needed.
type SessionServiceServer interface {
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Role(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type GRPCServer struct {
	uc *UseCase
}

func NewGRPCServer(uc *UseCase) *GRPCServer { return &GRPCServer{uc: uc} }

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	id, ok := auth.IdentityFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	u, err := s.uc.WhoAmI(ctx, *id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	if err != nil {
		return nil, grpcErr(err)
	}
	return structpb.NewStruct(map[string]any{
		"userId":    u.ID,
		"name":      u.Name,
		"userName":  u.Username,
		"role":      u.Role.String(),
		"email":     u.Email,
		"avatarUrl": u.AvatarURL,
	})
}

func (s *GRPCServer) Role(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	id, ok := auth.IdentityFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	role, err := s.uc.Role(ctx, *id)
	if err != nil {
		return nil, grpcErr(err)
	}
	return structpb.NewStruct(map[string]any{"role": role.String()})
}

func grpcErr(err error) error {
	code, msg := mapErr(err)
	switch code {
	case http.StatusUnauthorized:
		return status.Error(codes.Unauthenticated, msg)
	case http.StatusForbidden:
		return status.Error(codes.PermissionDenied, msg)
	case http.StatusNotFound:
		return status.Error(codes.NotFound, msg)
	case http.StatusServiceUnavailable:
		return status.Error(codes.Unavailable, msg)
	case http.StatusBadRequest:
		return status.Error(codes.InvalidArgument, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&sessionServiceDesc, srv)
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "WhoAmI", Handler: unaryHandler(methodWhoAmI, SessionServiceServer.WhoAmI)},
		{MethodName: "Role", Handler: unaryHandler(methodRole, SessionServiceServer.Role)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gritsaflow/session/v1/session.proto",
}

func unaryHandler(
	fullMethod string,
	call func(SessionServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SessionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(SessionServiceServer), ctx, req.(*emptypb.Empty))
		})
	}
}
