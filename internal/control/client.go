package control

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/localmesh/fsminer/internal/grpcutil"
)

// DialTimeout is how long a CLI subcommand waits to reach a running minerd
// before giving up, matching the teacher's dialTimeout for daemon IPC.
const DialTimeout = 2 * time.Second

// Dial connects to a running control socket and returns a gRPC connection
// ready to back a ControlClient, following the teacher's daemon Connect
// (UNIX-socket dialer, insecure transport since the socket's filesystem
// permissions are the access control, bounded message sizes).
func Dial(path string) (*grpc.ClientConn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DialTimeout)
	defer cancel()

	return grpc.DialContext(ctx, path,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			var dialer net.Dialer
			return dialer.DialContext(ctx, "unix", addr)
		}),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(grpcutil.MaximumMessageSize),
			grpc.MaxCallRecvMsgSize(grpcutil.MaximumMessageSize),
		),
	)
}
