package control_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/localmesh/fsminer/internal/control"
)

func startTestServer(t *testing.T, srv *control.Server) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "minerd.sock")

	listener, err := control.Listener(path)
	require.NoError(t, err)

	grpcServer := grpc.NewServer()
	control.RegisterControlServer(grpcServer, srv)
	go grpcServer.Serve(listener)
	t.Cleanup(grpcServer.Stop)

	return path
}

func TestListenerRemovesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minerd.sock")

	first, err := control.Listener(path)
	require.NoError(t, err)
	first.Close()

	second, err := control.Listener(path)
	require.NoError(t, err)
	defer second.Close()
}

func TestDialFailsWithoutServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.sock")
	_, err := control.Dial(path)
	require.Error(t, err)
}

func TestAddDirectoryInvokesCallback(t *testing.T) {
	var gotPath string
	var gotRecurse bool
	srv := &control.Server{
		OnAddDirectory: func(path string, recurse bool) {
			gotPath, gotRecurse = path, recurse
		},
	}
	path := startTestServer(t, srv)

	conn, err := control.Dial(path)
	require.NoError(t, err)
	defer conn.Close()

	client := control.NewControlClient(conn)
	req, err := structpb.NewStruct(map[string]any{"path": "/tmp/data", "recurse": true})
	require.NoError(t, err)

	resp, err := client.AddDirectory(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.GetFields()["ok"].GetBoolValue())
	require.Equal(t, "/tmp/data", gotPath)
	require.True(t, gotRecurse)
}

func TestStatusReturnsCurrentSnapshot(t *testing.T) {
	srv := &control.Server{
		OnStatus: func() (bool, float64) { return true, 0.5 },
	}
	path := startTestServer(t, srv)

	conn, err := control.Dial(path)
	require.NoError(t, err)
	defer conn.Close()

	client := control.NewControlClient(conn)
	resp, err := client.Status(context.Background(), &structpb.Struct{})
	require.NoError(t, err)
	require.True(t, resp.GetFields()["crawling"].GetBoolValue())
	require.Equal(t, 0.5, resp.GetFields()["progress"].GetNumberValue())
}

func TestSetThrottleRejectsMissingValue(t *testing.T) {
	srv := &control.Server{
		OnSetThrottle: func(float64) { t.Fatal("callback must not run without a value field") },
	}
	path := startTestServer(t, srv)

	conn, err := control.Dial(path)
	require.NoError(t, err)
	defer conn.Close()

	client := control.NewControlClient(conn)
	_, err = client.SetThrottle(context.Background(), &structpb.Struct{})
	require.Error(t, err)
}
