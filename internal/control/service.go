package control

// This file plays the role protoc-gen-go-grpc would normally generate from a
// control.proto definition (service Control { rpc AddDirectory ... }),
// hand-written in the same shape the generator produces (mirrored from the
// retrieval pack's own generated *_grpc.pb.go output) since no protoc
// toolchain runs as part of building this module. Every request and response
// is a google.protobuf.Struct, so no custom message types need hand-written
// wire marshaling: structpb's generated code does that work for us.

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
	structpb "google.golang.org/protobuf/types/known/structpb"
)

const _ = grpc.SupportPackageIsVersion9

const (
	Control_AddDirectory_FullMethodName    = "/fsminer.control.Control/AddDirectory"
	Control_RemoveDirectory_FullMethodName = "/fsminer.control.Control/RemoveDirectory"
	Control_SetThrottle_FullMethodName     = "/fsminer.control.Control/SetThrottle"
	Control_Status_FullMethodName          = "/fsminer.control.Control/Status"
)

// ControlClient is the client API for the Control service, the RPC surface
// minerd's CLI subcommands use to reach a running "minerd run" instance.
type ControlClient interface {
	AddDirectory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RemoveDirectory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetThrottle(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Status(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type controlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient wraps an established connection (dialed over the minerd
// control socket) as a ControlClient.
func NewControlClient(cc grpc.ClientConnInterface) ControlClient {
	return &controlClient{cc}
}

func (c *controlClient) AddDirectory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Control_AddDirectory_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) RemoveDirectory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Control_RemoveDirectory_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) SetThrottle(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Control_SetThrottle_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) Status(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Control_Status_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ControlServer is the server API for the Control service.
type ControlServer interface {
	AddDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetThrottle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
	mustEmbedUnimplementedControlServer()
}

// UnimplementedControlServer must be embedded by any ControlServer
// implementation for forward compatibility with new RPCs.
type UnimplementedControlServer struct{}

func (UnimplementedControlServer) AddDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AddDirectory not implemented")
}
func (UnimplementedControlServer) RemoveDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RemoveDirectory not implemented")
}
func (UnimplementedControlServer) SetThrottle(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SetThrottle not implemented")
}
func (UnimplementedControlServer) Status(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Status not implemented")
}
func (UnimplementedControlServer) mustEmbedUnimplementedControlServer() {}

// RegisterControlServer registers srv on s under the Control service
// descriptor.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&Control_ServiceDesc, srv)
}

func _Control_AddDirectory_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).AddDirectory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Control_AddDirectory_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).AddDirectory(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Control_RemoveDirectory_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).RemoveDirectory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Control_RemoveDirectory_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).RemoveDirectory(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Control_SetThrottle_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).SetThrottle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Control_SetThrottle_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).SetThrottle(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Control_Status_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Control_Status_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).Status(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Control_ServiceDesc is the grpc.ServiceDesc for the Control service.
var Control_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "fsminer.control.Control",
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddDirectory", Handler: _Control_AddDirectory_Handler},
		{MethodName: "RemoveDirectory", Handler: _Control_RemoveDirectory_Handler},
		{MethodName: "SetThrottle", Handler: _Control_SetThrottle_Handler},
		{MethodName: "Status", Handler: _Control_Status_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "control.proto",
}
