package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func stringField(in *structpb.Struct, name string) string {
	if in == nil {
		return ""
	}
	return in.GetFields()[name].GetStringValue()
}

func userContextStruct(uc *access.UserContext) *structpb.Struct {
	u := uc.User
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"authenticated": structpb.NewBoolValue(uc.Authenticated),
		"isAdmin":       structpb.NewBoolValue(uc.IsAdmin),
		"user": structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"id":       structpb.NewStringValue(u.ID),
			"login":    structpb.NewStringValue(u.Login),
			"name":     structpb.NewStringValue(u.Name),
			"email":    structpb.NewStringValue(u.Email),
			"avatar":   structpb.NewStringValue(u.Avatar),
			"canLogin": structpb.NewBoolValue(u.CanLogin),
			"isAdmin":  structpb.NewBoolValue(u.IsAdmin),
			"builtin":  structpb.NewBoolValue(u.Builtin),
		}}),
	}}
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	login := stringField(req, "login")
	res, err := s.auth.Authenticate(ctx, access.AuthReader(), auth.Credentials{
		Login:    login,
		Password: stringField(req, "password"),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if err := grpc.SetHeader(ctx, metadata.Pairs(common.AccessTokenHeaderName, res.Session.AccessToken)); err != nil {
		s.logger.Warn(ctx, "token header not sent", "login", login, "error", err)
	}

	s.logger.Info(ctx, "Logged in", "login", login)

	out := userContextStruct(access.FromSession(res.Session))
	out.Fields["accessToken"] = structpb.NewStringValue(res.Session.AccessToken)
	out.Fields["validUntil"] = structpb.NewStringValue(res.Session.ValidUntil.UTC().Format(time.RFC3339))
	return out, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uc, ok := access.FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing user context")
	}
	return userContextStruct(uc), nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uc, ok := access.FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing user context")
	}

	login := stringField(req, "login")
	if login == "" {
		login = uc.User.Login
	}

	if err := s.auth.ChangePassword(ctx, uc, login, stringField(req, "password")); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &structpb.Struct{}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"status": structpb.NewStringValue("OK"),
	}}, nil
}
