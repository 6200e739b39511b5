package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service uses only well-known protobuf types, so its descriptor is
// written out here instead of generated from a .proto file. The wire
// contract is:
//
//	service ModelService {
//	  rpc Parse(google.protobuf.StringValue) returns (google.protobuf.Struct);
//	  rpc Export(google.protobuf.StringValue) returns (google.protobuf.Struct);
//	}
const (
	ServiceName = "ppl.v1.ModelService"

	ParseFullMethod  = "/" + ServiceName + "/Parse"
	ExportFullMethod = "/" + ServiceName + "/Export"
)

// ModelServiceServer is the server API for ppl.v1.ModelService.
type ModelServiceServer interface {
	// Parse parses the PPL text and describes the resulting model.
	Parse(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// Export parses the PPL text and writes it to the configured sink.
	Export(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterModelServiceServer attaches srv to s.
func RegisterModelServiceServer(s grpc.ServiceRegistrar, srv ModelServiceServer) {
	s.RegisterService(&modelServiceDesc, srv)
}

var modelServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ModelServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Parse", Handler: parseHandler},
		{MethodName: "Export", Handler: exportHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ppl/v1/model_service.proto",
}

func parseHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ModelServiceServer).Parse(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ParseFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ModelServiceServer).Parse(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func exportHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ModelServiceServer).Export(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExportFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ModelServiceServer).Export(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ModelServiceClient is the client API for ppl.v1.ModelService.
type ModelServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewModelServiceClient wraps a client connection.
func NewModelServiceClient(cc grpc.ClientConnInterface) *ModelServiceClient {
	return &ModelServiceClient{cc: cc}
}

// Parse sends text to the server for parsing.
func (c *ModelServiceClient) Parse(ctx context.Context, text string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ParseFullMethod, wrapperspb.String(text), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Export sends text to the server for parsing and export.
func (c *ModelServiceClient) Export(ctx context.Context, text string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExportFullMethod, wrapperspb.String(text), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
