// Package control implements minerd's client-daemon RPC surface: a gRPC
// Control service (see service.go) served over a UNIX domain socket. The
// transport setup below follows the teacher's pkg/ipc/ipc_posix.go and
// pkg/daemon/paths.go (socket path placement, removing a stale listener left
// behind by an uncleanly terminated run before binding); the RPC layer on
// top of that socket is the teacher's actual client/daemon protocol
// (pkg/service/*, google.golang.org/grpc), not a hand-rolled text protocol.
package control

import (
	"fmt"
	"net"
	"os"

	"github.com/pkg/errors"
)

// SocketPath computes the default control socket path for the current user,
// placing it alongside other transient state the way the teacher's daemon
// subpath helper does, scoped to the current user's temp directory.
func SocketPath() string {
	return fmt.Sprintf("%s/minerd-%d.sock", os.TempDir(), os.Getuid())
}

// Listener creates the control socket, removing any stale socket left
// behind by a previous, uncleanly terminated run. It assumes any existing
// endpoint is stale and removes it; no lock guards against a second running
// instance.
func Listener(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "unable to remove stale control socket")
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0600); err != nil {
		listener.Close()
		return nil, errors.Wrap(err, "unable to set socket permissions")
	}
	return listener, nil
}
