// Package grpcutil holds the small set of gRPC conventions shared between
// minerd's control server and its CLI clients, adapted from the teacher's
// pkg/grpcutil (MaximumMessageSize, PeelAwayRPCErrorLayer).
package grpcutil

import (
	"github.com/pkg/errors"

	"google.golang.org/grpc/status"
)

const (
	// MaximumMessageSize bounds request/response sizes over the control
	// socket. A directory path list is tiny, but this keeps the limit
	// explicit rather than relying on gRPC's default.
	MaximumMessageSize = 4 * 1024 * 1024
)

// PeelAwayRPCErrorLayer strips the gRPC status wrapper from err, returning a
// plain error with the underlying message so CLI output doesn't leak RPC
// framing ("rpc error: code = ...") to the operator.
func PeelAwayRPCErrorLayer(err error) error {
	if s, ok := status.FromError(err); ok {
		return errors.New(s.Message())
	}
	return err
}
