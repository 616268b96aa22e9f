package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/feedhub/internal/api"
	"github.com/dmitrijs2005/feedhub/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	cc          grpc.ClientConnInterface
	accessToken string
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the current token, if any, to every call.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewFeedHubClient connects lazily to endpointURL using the JSON codec.
func NewFeedHubClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.cc = conn
	return c, nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) SetToken(token string) { s.accessToken = token }
func (s *GRPCClient) Token() string         { return s.accessToken }

func (s *GRPCClient) invoke(ctx context.Context, method string, req, resp any) error {
	if err := s.cc.Invoke(ctx, api.FullMethod(method), req, resp); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, email, password, passwordCheck, name string) (*api.RegisterResponse, error) {
	req := &api.RegisterRequest{Email: email, Password: password, PasswordCheck: passwordCheck, Name: name}
	resp := &api.RegisterResponse{}
	if err := s.invoke(ctx, api.MethodRegister, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Login stores the returned token for subsequent calls.
func (s *GRPCClient) Login(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	resp := &api.LoginResponse{}
	if err := s.invoke(ctx, api.MethodLogin, &api.LoginRequest{Email: email, Password: password}, resp); err != nil {
		return nil, err
	}
	s.accessToken = resp.AccessToken
	return resp, nil
}

func (s *GRPCClient) posts(ctx context.Context, method string, req any) ([]*api.Post, error) {
	resp := &api.PostsResponse{}
	if err := s.invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

func (s *GRPCClient) Feed(ctx context.Context) ([]*api.Post, error) {
	return s.posts(ctx, api.MethodFeed, &api.FeedRequest{})
}

func (s *GRPCClient) UserPosts(ctx context.Context, userID string) ([]*api.Post, error) {
	return s.posts(ctx, api.MethodUserPosts, &api.UserRequest{UserID: userID})
}

func (s *GRPCClient) FavoritePosts(ctx context.Context, userID string) ([]*api.Post, error) {
	return s.posts(ctx, api.MethodFavoritePosts, &api.UserRequest{UserID: userID})
}

func (s *GRPCClient) CreatePost(ctx context.Context, req *api.CreatePostRequest) (*api.CreatePostResponse, error) {
	resp := &api.CreatePostResponse{}
	if err := s.invoke(ctx, api.MethodCreatePost, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) DeletePost(ctx context.Context, postID string) error {
	return s.invoke(ctx, api.MethodDeletePost, &api.PostRequest{PostID: postID}, &api.Empty{})
}

func (s *GRPCClient) follow(ctx context.Context, method, userID string) (*api.FollowResponse, error) {
	resp := &api.FollowResponse{}
	if err := s.invoke(ctx, method, &api.FollowRequest{UserID: userID}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) Follow(ctx context.Context, userID string) (*api.FollowResponse, error) {
	return s.follow(ctx, api.MethodFollow, userID)
}

func (s *GRPCClient) Unfollow(ctx context.Context, userID string) (*api.FollowResponse, error) {
	return s.follow(ctx, api.MethodUnfollow, userID)
}

func (s *GRPCClient) followList(ctx context.Context, method, userID string) ([]*api.FollowEntry, error) {
	resp := &api.FollowListResponse{}
	if err := s.invoke(ctx, method, &api.UserRequest{UserID: userID}, resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (s *GRPCClient) ListFollows(ctx context.Context, userID string) ([]*api.FollowEntry, error) {
	return s.followList(ctx, api.MethodListFollows, userID)
}

func (s *GRPCClient) ListFollowers(ctx context.Context, userID string) ([]*api.FollowEntry, error) {
	return s.followList(ctx, api.MethodListFollowers, userID)
}

func (s *GRPCClient) favorite(ctx context.Context, method, postID string) (*api.FavoriteResponse, error) {
	resp := &api.FavoriteResponse{}
	if err := s.invoke(ctx, method, &api.PostRequest{PostID: postID}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) AddFavorite(ctx context.Context, postID string) (*api.FavoriteResponse, error) {
	return s.favorite(ctx, api.MethodAddFavorite, postID)
}

func (s *GRPCClient) RemoveFavorite(ctx context.Context, postID string) (*api.FavoriteResponse, error) {
	return s.favorite(ctx, api.MethodRemoveFavorite, postID)
}

func (s *GRPCClient) Profile(ctx context.Context, userID string) (*api.ProfileResponse, error) {
	resp := &api.ProfileResponse{}
	if err := s.invoke(ctx, api.MethodProfile, &api.UserRequest{UserID: userID}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.UpdateProfileResponse, error) {
	resp := &api.UpdateProfileResponse{}
	if err := s.invoke(ctx, api.MethodUpdateProfile, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		if st.Message() == "token expired" {
			return ErrTokenExpired
		}
		return ErrUnauthorized
	case codes.PermissionDenied:
		return ErrForbidden
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrTooLarge, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
