package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/feedhub/internal/api"
	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {
	u, err := s.accounts.Register(ctx, req.Email, req.Password, req.PasswordCheck, req.Name)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "user_id", u.ID)
	return &api.RegisterResponse{UserID: u.ID, Name: u.Name}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	token, id, err := s.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.LoginResponse{AccessToken: token, UserID: id.UserID, Name: id.Name}, nil
}

func (s *GRPCServer) Feed(ctx context.Context, req *api.FeedRequest) (*api.PostsResponse, error) {
	entries, err := s.feed.BuildFeed(ctx, viewerID(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toPostsResponse(entries), nil
}

func (s *GRPCServer) UserPosts(ctx context.Context, req *api.UserRequest) (*api.PostsResponse, error) {
	userID, err := s.targetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	entries, err := s.posts.UserPosts(ctx, userID, viewerID(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toPostsResponse(entries), nil
}

func (s *GRPCServer) FavoritePosts(ctx context.Context, req *api.UserRequest) (*api.PostsResponse, error) {
	userID, err := s.targetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	entries, err := s.posts.FavoritePosts(ctx, userID, viewerID(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toPostsResponse(entries), nil
}

func (s *GRPCServer) CreatePost(ctx context.Context, req *api.CreatePostRequest) (*api.CreatePostResponse, error) {
	var image *models.Image
	if req.Picture != nil {
		if len(req.Picture.Data) > api.MaxPictureBytes {
			return nil, status.Errorf(codes.InvalidArgument, "picture exceeds %d bytes", api.MaxPictureBytes)
		}
		image = &models.Image{Filename: req.Picture.Filename, ContentType: req.Picture.ContentType, Data: req.Picture.Data}
	}

	id, err := s.posts.Create(ctx, viewerID(ctx), req.Title, req.Description, image)
	if err != nil {
		if id == "" {
			return nil, s.toStatus(ctx, err)
		}
		// the post exists, only its picture is missing
		s.logger.Warn(ctx, "post created without picture", "post_id", id, "err", err)
		msg := "picture could not be stored"
		if !errors.Is(err, common.ErrorImageUpload) {
			msg = "picture could not be recorded"
		}
		return &api.CreatePostResponse{PostID: id, PictureError: msg}, nil
	}
	return &api.CreatePostResponse{PostID: id}, nil
}

func (s *GRPCServer) DeletePost(ctx context.Context, req *api.PostRequest) (*api.Empty, error) {
	if err := s.posts.Delete(ctx, viewerID(ctx), req.PostID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

// Follow is a no-op when the edge already exists; Changed reports whether
// a write happened.
func (s *GRPCServer) Follow(ctx context.Context, req *api.FollowRequest) (*api.FollowResponse, error) {
	viewer := viewerID(ctx)
	following, err := s.graph.IsFollowing(ctx, viewer, req.UserID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if following {
		return &api.FollowResponse{Following: true}, nil
	}
	if err := s.graph.Follow(ctx, viewer, req.UserID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.FollowResponse{Following: true, Changed: true}, nil
}

func (s *GRPCServer) Unfollow(ctx context.Context, req *api.FollowRequest) (*api.FollowResponse, error) {
	viewer := viewerID(ctx)
	following, err := s.graph.IsFollowing(ctx, viewer, req.UserID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if !following {
		return &api.FollowResponse{}, nil
	}
	if err := s.graph.Unfollow(ctx, viewer, req.UserID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.FollowResponse{Changed: true}, nil
}

func (s *GRPCServer) ListFollows(ctx context.Context, req *api.UserRequest) (*api.FollowListResponse, error) {
	return s.followList(ctx, req, s.graph.ListFollows)
}

func (s *GRPCServer) ListFollowers(ctx context.Context, req *api.UserRequest) (*api.FollowListResponse, error) {
	return s.followList(ctx, req, s.graph.ListFollowers)
}

func (s *GRPCServer) followList(ctx context.Context, req *api.UserRequest,
	list func(ctx context.Context, userID, viewerID string) ([]*models.FollowEntry, error)) (*api.FollowListResponse, error) {

	userID, err := s.targetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	entries, err := list(ctx, userID, viewerID(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &api.FollowListResponse{Users: make([]*api.FollowEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Users = append(resp.Users, &api.FollowEntry{ID: e.ID, Name: e.Name, IsFollowing: e.IsFollowing})
	}
	return resp, nil
}

func (s *GRPCServer) AddFavorite(ctx context.Context, req *api.PostRequest) (*api.FavoriteResponse, error) {
	viewer := viewerID(ctx)
	fav, err := s.favs.IsFavoriting(ctx, viewer, req.PostID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if fav {
		return &api.FavoriteResponse{Favoriting: true}, nil
	}
	if err := s.favs.Add(ctx, viewer, req.PostID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.FavoriteResponse{Favoriting: true, Changed: true}, nil
}

func (s *GRPCServer) RemoveFavorite(ctx context.Context, req *api.PostRequest) (*api.FavoriteResponse, error) {
	viewer := viewerID(ctx)
	fav, err := s.favs.IsFavoriting(ctx, viewer, req.PostID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if !fav {
		return &api.FavoriteResponse{}, nil
	}
	if err := s.favs.Remove(ctx, viewer, req.PostID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.FavoriteResponse{Changed: true}, nil
}

func (s *GRPCServer) Profile(ctx context.Context, req *api.UserRequest) (*api.ProfileResponse, error) {
	userID, err := s.targetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	u, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	viewer := viewerID(ctx)
	resp := &api.ProfileResponse{
		UserID:         u.ID,
		Name:           u.Name,
		FollowsCount:   len(u.Follows),
		FollowersCount: len(u.Followers),
		IsMine:         viewer != "" && viewer == u.ID,
	}
	switch {
	case resp.IsMine:
		resp.Email = u.Email
	case viewer != "":
		following, err := s.graph.IsFollowing(ctx, viewer, u.ID)
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}
		resp.IsFollowing = &following
	}
	return resp, nil
}

// UpdateProfile applies the name first and then the credentials. A change of
// credentials means the caller should log in again.
func (s *GRPCServer) UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.UpdateProfileResponse, error) {
	viewer := viewerID(ctx)
	if viewer == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	resp := &api.UpdateProfileResponse{}
	if req.Name != "" {
		if err := s.profiles.UpdateName(ctx, viewer, req.Name); err != nil {
			return nil, s.toStatus(ctx, err)
		}
		resp.NameChanged = true
	}

	changed, err := s.profiles.UpdateSecureInfo(ctx, viewer, req.Email, req.NewPassword, req.NewPasswordCheck)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp.CredentialsChanged = changed

	return resp, nil
}

// targetUser resolves the user a listing is about: the requested one or,
// when omitted, the caller.
func (s *GRPCServer) targetUser(ctx context.Context, requested string) (string, error) {
	userID := requested
	if userID == "" {
		userID = viewerID(ctx)
	}
	if userID == "" {
		return "", status.Error(codes.InvalidArgument, "user_id is required")
	}

	ok, err := s.profiles.Exists(ctx, userID)
	if err != nil {
		return "", s.toStatus(ctx, err)
	}
	if !ok {
		return "", status.Error(codes.NotFound, "user not found")
	}
	return userID, nil
}

func toPostsResponse(entries []*models.FeedEntry) *api.PostsResponse {
	resp := &api.PostsResponse{Posts: make([]*api.Post, 0, len(entries))}
	for _, e := range entries {
		resp.Posts = append(resp.Posts, &api.Post{
			ID:           e.ID,
			UserID:       e.UserID,
			UserName:     e.UserName,
			CreatedAt:    e.CreatedAt,
			Title:        e.Title,
			Description:  e.Description,
			PictureURL:   e.PictureURL,
			IsMine:       e.IsMine,
			IsFavoriting: e.IsFavoriting,
		})
	}
	return resp
}
