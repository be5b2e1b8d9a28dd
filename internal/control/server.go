package control

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server implements ControlServer by forwarding each RPC to a callback
// supplied by the host process, the same indirection the teacher's
// pkg/service/daemon.Server uses so this package never imports the miner
// package directly (cmd/minerd wires the two together).
type Server struct {
	UnimplementedControlServer

	OnAddDirectory    func(path string, recurse bool)
	OnRemoveDirectory func(path string)
	OnSetThrottle     func(value float64)
	OnStatus          func() (crawling bool, progress float64)
}

func (s *Server) AddDirectory(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path, ok := stringField(req, "path")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "missing \"path\" field")
	}
	recurse, _ := boolField(req, "recurse")
	s.OnAddDirectory(path, recurse)
	return okResponse()
}

func (s *Server) RemoveDirectory(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path, ok := stringField(req, "path")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "missing \"path\" field")
	}
	s.OnRemoveDirectory(path)
	return okResponse()
}

func (s *Server) SetThrottle(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	value, ok := numberField(req, "value")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "missing \"value\" field")
	}
	s.OnSetThrottle(value)
	return okResponse()
}

func (s *Server) Status(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	crawling, progress := s.OnStatus()
	return structpb.NewStruct(map[string]any{
		"crawling": crawling,
		"progress": progress,
	})
}

func okResponse() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"ok": true})
}

func stringField(req *structpb.Struct, name string) (string, bool) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", false
	}
	return v.GetStringValue(), true
}

func boolField(req *structpb.Struct, name string) (bool, bool) {
	v, ok := req.GetFields()[name]
	if !ok {
		return false, false
	}
	return v.GetBoolValue(), true
}

func numberField(req *structpb.Struct, name string) (float64, bool) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, false
	}
	return v.GetNumberValue(), true
}
