package grpc

import (
	"context"

	"github.com/dmitrijs2005/feedhub/internal/api"
	"google.golang.org/grpc"
)

// FeedHubServer is the server side of the feedhub.FeedHub service.
type FeedHubServer interface {
	Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error)
	Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error)
	Feed(ctx context.Context, req *api.FeedRequest) (*api.PostsResponse, error)
	UserPosts(ctx context.Context, req *api.UserRequest) (*api.PostsResponse, error)
	FavoritePosts(ctx context.Context, req *api.UserRequest) (*api.PostsResponse, error)
	CreatePost(ctx context.Context, req *api.CreatePostRequest) (*api.CreatePostResponse, error)
	DeletePost(ctx context.Context, req *api.PostRequest) (*api.Empty, error)
	Follow(ctx context.Context, req *api.FollowRequest) (*api.FollowResponse, error)
	Unfollow(ctx context.Context, req *api.FollowRequest) (*api.FollowResponse, error)
	ListFollows(ctx context.Context, req *api.UserRequest) (*api.FollowListResponse, error)
	ListFollowers(ctx context.Context, req *api.UserRequest) (*api.FollowListResponse, error)
	AddFavorite(ctx context.Context, req *api.PostRequest) (*api.FavoriteResponse, error)
	RemoveFavorite(ctx context.Context, req *api.PostRequest) (*api.FavoriteResponse, error)
	Profile(ctx context.Context, req *api.UserRequest) (*api.ProfileResponse, error)
	UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.UpdateProfileResponse, error)
}

var _ FeedHubServer = (*GRPCServer)(nil)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*FeedHubServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(api.MethodRegister, FeedHubServer.Register),
		unary(api.MethodLogin, FeedHubServer.Login),
		unary(api.MethodFeed, FeedHubServer.Feed),
		unary(api.MethodUserPosts, FeedHubServer.UserPosts),
		unary(api.MethodFavoritePosts, FeedHubServer.FavoritePosts),
		unary(api.MethodCreatePost, FeedHubServer.CreatePost),
		unary(api.MethodDeletePost, FeedHubServer.DeletePost),
		unary(api.MethodFollow, FeedHubServer.Follow),
		unary(api.MethodUnfollow, FeedHubServer.Unfollow),
		unary(api.MethodListFollows, FeedHubServer.ListFollows),
		unary(api.MethodListFollowers, FeedHubServer.ListFollowers),
		unary(api.MethodAddFavorite, FeedHubServer.AddFavorite),
		unary(api.MethodRemoveFavorite, FeedHubServer.RemoveFavorite),
		unary(api.MethodProfile, FeedHubServer.Profile),
		unary(api.MethodUpdateProfile, FeedHubServer.UpdateProfile),
	},
	Metadata: "feedhub",
}

// unary adapts a typed method to grpc.MethodDesc, decoding the request with
// the connection's codec and running the interceptor chain.
func unary[Req, Resp any](name string, call func(FeedHubServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(FeedHubServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: api.FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(FeedHubServer), ctx, req.(*Req))
			})
		},
	}
}
