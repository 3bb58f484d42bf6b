package intercepters

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const RealIPKey contextKey = "real-ip"

// realIP returns the x-real-ip metadata value, if any.
func realIP(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if ips := md.Get("x-real-ip"); len(ips) > 0 {
		return ips[0]
	}
	return ""
}

// SubnetIPInterceptor stores x-real-ip in the context under RealIPKey.
func SubnetIPInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	if ip := realIP(ctx); ip != "" {
		ctx = context.WithValue(ctx, RealIPKey, ip)
	}
	return handler(ctx, req)
}

// WithTrustedSubnet rejects calls whose real ip is outside subnet. It reads
// RealIPKey, so SubnetIPInterceptor must run first. A nil subnet allows everything.
func WithTrustedSubnet(subnet *net.IPNet) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := checkSubnet(ctx, subnet); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func checkSubnet(ctx context.Context, subnet *net.IPNet) error {
	if subnet == nil {
		return nil
	}

	raw, _ := ctx.Value(RealIPKey).(string)
	if raw == "" {
		return status.Error(codes.PermissionDenied, "X-Real-IP header missing")
	}

	ip := net.ParseIP(raw)
	if ip == nil || !subnet.Contains(ip) {
		return status.Error(codes.PermissionDenied, "IP not in trusted subnet")
	}
	return nil
}

// serverStream overrides the context of a wrapped stream.
type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *serverStream) Context() context.Context {
	return s.ctx
}

// StreamSubnetIPInterceptor is the streaming form of SubnetIPInterceptor.
func StreamSubnetIPInterceptor(
	srv interface{},
	ss grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	ctx := ss.Context()
	if ip := realIP(ctx); ip != "" {
		ss = &serverStream{ServerStream: ss, ctx: context.WithValue(ctx, RealIPKey, ip)}
	}
	return handler(srv, ss)
}

// WithTrustedSubnetStream is the streaming form of WithTrustedSubnet.
func WithTrustedSubnetStream(subnet *net.IPNet) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := checkSubnet(ss.Context(), subnet); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}
