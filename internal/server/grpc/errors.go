package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps err onto a gRPC status. Auth errors keep their numeric code
// in the message.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case auth.IsAuthError(err):
		return status.Error(codes.Unauthenticated, err.Error())
	case access.IsAccessError(err):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrNoRowsUpdated):
		return status.Error(codes.NotFound, "user not found")
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
