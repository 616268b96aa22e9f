package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/feedhub/internal/api"
	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const identityKey ctxKey = "identity"

// publicMethods serve anonymous callers; a token, when present, is still
// verified so the viewer is known.
var publicMethods = map[string]bool{
	api.FullMethod(api.MethodRegister):      true,
	api.FullMethod(api.MethodLogin):         true,
	api.FullMethod(api.MethodFeed):          true,
	api.FullMethod(api.MethodUserPosts):     true,
	api.FullMethod(api.MethodFavoritePosts): true,
	api.FullMethod(api.MethodListFollows):   true,
	api.FullMethod(api.MethodListFollowers): true,
	api.FullMethod(api.MethodProfile):       true,
}

func withIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// identityFrom returns the caller, or nil for anonymous requests.
func identityFrom(ctx context.Context) *models.Identity {
	id, _ := ctx.Value(identityKey).(*models.Identity)
	return id
}

func viewerID(ctx context.Context) string {
	if id := identityFrom(ctx); id != nil {
		return id.UserID
	}
	return ""
}

func firstValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// requestIDInterceptor reuses the caller's x-request-id or mints one, echoes
// it in the response header and logs the call outcome under it.
func (s *GRPCServer) requestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	reqID := firstValue(ctx, common.RequestIDHeaderName)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx = logging.WithRequestID(ctx, reqID)
	// no transport stream in direct calls; the header is best effort
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, reqID))

	start := time.Now()
	resp, err := handler(ctx, req)

	s.logger.Debug(ctx, "request", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	return resp, err
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	accessToken := firstValue(ctx, common.AccessTokenHeaderName)

	if accessToken == "" {
		if !publicMethods[info.FullMethod] {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}
		return handler(ctx, req)
	}

	id, err := s.accounts.VerifyToken(accessToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(withIdentity(ctx, id), req)
}
