package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// public methods are served without an access token.
var public = map[string]bool{
	methodLogin: true,
	methodPing:  true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if public[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	res, err := s.auth.Authenticate(ctx, access.AuthReader(), auth.Credentials{AccessToken: accessToken})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if res.Issued {
		if err := grpc.SetHeader(ctx, metadata.Pairs(common.AccessTokenHeaderName, res.Session.AccessToken)); err != nil {
			s.logger.Warn(ctx, "refreshed token not sent", "login", res.Session.Login, "error", err)
		}
	}

	return handler(access.WithUserContext(ctx, access.FromSession(res.Session)), req)
}
