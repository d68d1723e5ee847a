package handlers

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestServer_StartAndStop(t *testing.T) {
	h, _ := newRegistryHandler(t)

	srv := NewServer("127.0.0.1:0", "127.0.0.1:0", zaptest.NewLogger(t))
	srv.RegisterHTTPHandler(h)
	require.NoError(t, srv.Start())

	resp, err := http.Get("http://" + srv.HTTPAddr().String() + "/rest/v1/companies")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1,"name":"Acme Corp"},{"id":2,"name":"Beta Ltd"}]`, string(body))

	conn, err := grpc.NewClient(srv.GRPCAddr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	check, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check.GetStatus())

	srv.Stop()

	select {
	case err := <-srv.Errors():
		t.Fatalf("unexpected serve error: %v", err)
	default:
	}
}

func TestServer_GRPCDisabled(t *testing.T) {
	h, _ := newRegistryHandler(t)

	srv := NewServer("127.0.0.1:0", "", zaptest.NewLogger(t))
	srv.RegisterHTTPHandler(h)
	require.NoError(t, srv.Start())
	defer srv.Stop()

	assert.NotNil(t, srv.HTTPAddr())
	assert.Nil(t, srv.GRPCAddr())
}

func TestServer_StartWithoutHandler(t *testing.T) {
	srv := NewServer("127.0.0.1:0", "", zaptest.NewLogger(t))
	assert.Error(t, srv.Start())
}

func TestServer_StartBindError(t *testing.T) {
	h, _ := newRegistryHandler(t)

	first := NewServer("127.0.0.1:0", "", zaptest.NewLogger(t))
	first.RegisterHTTPHandler(h)
	require.NoError(t, first.Start())
	defer first.Stop()

	second := NewServer(first.HTTPAddr().String(), "", zaptest.NewLogger(t))
	second.RegisterHTTPHandler(h)
	err := second.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP listen error")
}
