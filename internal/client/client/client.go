// Package client is the CLI's gRPC client for the feedhub service.
package client

import (
	"context"

	"github.com/dmitrijs2005/feedhub/internal/api"
)

// Client is the feedhub API as the CLI uses it. Calls that act on behalf
// of a user need a token set with SetToken or obtained through Login.
type Client interface {
	Close() error
	SetToken(token string)
	Token() string

	Register(ctx context.Context, email, password, passwordCheck, name string) (*api.RegisterResponse, error)
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)

	Feed(ctx context.Context) ([]*api.Post, error)
	UserPosts(ctx context.Context, userID string) ([]*api.Post, error)
	FavoritePosts(ctx context.Context, userID string) ([]*api.Post, error)
	CreatePost(ctx context.Context, req *api.CreatePostRequest) (*api.CreatePostResponse, error)
	DeletePost(ctx context.Context, postID string) error

	Follow(ctx context.Context, userID string) (*api.FollowResponse, error)
	Unfollow(ctx context.Context, userID string) (*api.FollowResponse, error)
	ListFollows(ctx context.Context, userID string) ([]*api.FollowEntry, error)
	ListFollowers(ctx context.Context, userID string) ([]*api.FollowEntry, error)

	AddFavorite(ctx context.Context, postID string) (*api.FavoriteResponse, error)
	RemoveFavorite(ctx context.Context, postID string) (*api.FavoriteResponse, error)

	Profile(ctx context.Context, userID string) (*api.ProfileResponse, error)
	UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.UpdateProfileResponse, error)
}
