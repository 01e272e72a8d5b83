package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "lease.v1.LeaseService"

// leaseHandler is the HandlerType of the service description.
type leaseHandler interface {
	serviceDesc() *grpc.ServiceDesc
}

// Register exposes the lease service on a gRPC server
func Register(server *grpc.Server, svc *LeaseService) {
	server.RegisterService(svc.serviceDesc(), svc)
}

// FullMethod returns the gRPC path of a LeaseService method
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary adapts a typed call into a gRPC method. A request that cannot be
// decoded is rejected with InvalidArgument before the call runs.
func unary[Req any](name string, call func(context.Context, *Req) (*Envelope, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "malformed %s request: %v", name, err)
			}
			handler := func(ctx context.Context, r any) (any, error) {
				return call(ctx, r.(*Req))
			}
			if interceptor == nil {
				return handler(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, req, info, handler)
		},
	}
}

// LoggingInterceptor logs every unary call with its duration and status code
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	log.Debug().
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("duration", time.Since(start)).
		Msg("Handled gRPC request")
	return resp, err
}
