package grpcPack

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	genverr "github.com/sajjad-MoBe/genv/internal/errors"
)

// UnaryErrorInterceptor is a gRPC interceptor that converts typed errors
// and panics into status errors
func UnaryErrorInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, convertError(genverr.RecoverError(r))
		}
	}()

	resp, err = handler(ctx, req)
	if err != nil {
		return nil, convertError(err)
	}
	return resp, nil
}

// StreamErrorInterceptor is a gRPC interceptor that handles errors in streams
func StreamErrorInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = convertError(genverr.RecoverError(r))
		}
	}()

	return convertError(handler(srv, ss))
}

// UnaryLoggingInterceptor logs every unary call
func UnaryLoggingInterceptor(logger logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		entry := logger.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"code":     status.Code(err).String(),
			"duration": time.Since(start).String(),
		})
		if err != nil {
			entry.WithError(err).Debug("grpc call failed")
		} else {
			entry.Debug("grpc call handled")
		}
		return resp, err
	}
}

// convertError converts a GenvError to a gRPC status error. Errors that
// already carry a status pass through. The health service only returns
// status errors; the typed mapping covers services registered next to it.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case genverr.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case genverr.IsInvalidInput(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case genverr.IsUnauthorized(err):
		return status.Error(codes.Unauthenticated, err.Error())
	case genverr.IsUnknownOperation(err):
		return status.Error(codes.Unimplemented, err.Error())
	case genverr.IsStorage(err):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
