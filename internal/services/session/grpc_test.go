package session

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
)

func startGRPC(t *testing.T, h *harness) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryAuthInterceptor(h.server.Verifier())))
	RegisterSessionServiceServer(srv, NewGRPCServer(h.uc))
	healthpb.RegisterHealthServer(srv, health.NewServer())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func rpcCtx(t *testing.T, kv ...string) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

func TestGRPCHealthIsPublic(t *testing.T) {
	h := newHarness(t)
	conn := startGRPC(t, h)

	resp, err := healthpb.NewHealthClient(conn).Check(rpcCtx(t), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestGRPCWhoAmIAndRole(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "U-07", "tess", "pw", user.RoleTeamLead)
	access, refresh := loginTokens(t, h, "tess", "pw")
	conn := startGRPC(t, h)

	t.Run("anonymous", func(t *testing.T) {
		out := new(structpb.Struct)
		err := conn.Invoke(rpcCtx(t), methodWhoAmI, &emptypb.Empty{}, out)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("bearer", func(t *testing.T) {
		out := new(structpb.Struct)
		err := conn.Invoke(rpcCtx(t, "authorization", "Bearer "+access), methodWhoAmI, &emptypb.Empty{}, out)
		require.NoError(t, err)
		assert.Equal(t, "U-07", out.GetFields()["userId"].GetStringValue())
		assert.Equal(t, "teamlead", out.GetFields()["role"].GetStringValue())
	})

	t.Run("cookie", func(t *testing.T) {
		out := new(structpb.Struct)
		err := conn.Invoke(rpcCtx(t, "cookie", DefaultAccessCookie+"="+access), methodRole, &emptypb.Empty{}, out)
		require.NoError(t, err)
		assert.Equal(t, "teamlead", out.GetFields()["role"].GetStringValue())
	})

	t.Run("silent refresh sets cookie header", func(t *testing.T) {
		h.clock.Advance(15 * time.Minute)
		var hdr metadata.MD
		out := new(structpb.Struct)
		ctx := rpcCtx(t, "cookie", DefaultAccessCookie+"="+access+"; "+DefaultRefreshCookie+"="+refresh)
		err := conn.Invoke(ctx, methodRole, &emptypb.Empty{}, out, grpc.Header(&hdr))
		require.NoError(t, err)
		require.Len(t, hdr.Get("set-cookie"), 1)
		assert.True(t, strings.HasPrefix(hdr.Get("set-cookie")[0], DefaultAccessCookie+"="))
	})

	t.Run("deleted user", func(t *testing.T) {
		fresh, err := h.issuer.IssueTokens(user.Identity{SubjectID: "U-07", DisplayName: "Tess", Role: user.RoleTeamLead}, false)
		require.NoError(t, err)
		h.users.remove("U-07")
		ctx := rpcCtx(t, "authorization", "Bearer "+fresh.Access)

		err = conn.Invoke(ctx, methodWhoAmI, &emptypb.Empty{}, new(structpb.Struct))
		assert.Equal(t, codes.Unauthenticated, status.Code(err))

		err = conn.Invoke(ctx, methodRole, &emptypb.Empty{}, new(structpb.Struct))
		assert.Equal(t, codes.NotFound, status.Code(err))
	})
}

func TestParseCookie(t *testing.T) {
	assert.Equal(t, "b", parseCookie("x=a; y=b", "y"))
	assert.Empty(t, parseCookie("x=a", "y"))
	assert.Empty(t, parseCookie("", "y"))
}
