// Package grpc exposes the feedhub services over gRPC. Messages are the
// plain structs of package api carried by its JSON codec; the service
// descriptor is declared here by hand.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/feedhub/internal/api"
	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
	"google.golang.org/grpc"
)

type accountService interface {
	Register(ctx context.Context, email, password, passwordCheck, name string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.Identity, error)
	VerifyToken(token string) (*models.Identity, error)
}

type profileService interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Get(ctx context.Context, userID string) (*models.User, error)
	UpdateName(ctx context.Context, userID, name string) error
	UpdateSecureInfo(ctx context.Context, userID, email, newPassword, newPasswordCheck string) (bool, error)
}

type graphService interface {
	Follow(ctx context.Context, viewerID, targetID string) error
	Unfollow(ctx context.Context, viewerID, targetID string) error
	IsFollowing(ctx context.Context, viewerID, targetID string) (bool, error)
	ListFollows(ctx context.Context, userID, viewerID string) ([]*models.FollowEntry, error)
	ListFollowers(ctx context.Context, userID, viewerID string) ([]*models.FollowEntry, error)
}

type favoriteService interface {
	Add(ctx context.Context, userID, postID string) error
	Remove(ctx context.Context, userID, postID string) error
	IsFavoriting(ctx context.Context, userID, postID string) (bool, error)
}

type postService interface {
	Create(ctx context.Context, authorID, title, description string, image *models.Image) (string, error)
	Delete(ctx context.Context, requesterID, postID string) error
	UserPosts(ctx context.Context, userID, viewerID string) ([]*models.FeedEntry, error)
	FavoritePosts(ctx context.Context, userID, viewerID string) ([]*models.FeedEntry, error)
}

type feedService interface {
	BuildFeed(ctx context.Context, viewerID string) ([]*models.FeedEntry, error)
}

// Services bundles what the server dispatches to.
type Services struct {
	Accounts  accountService
	Profiles  profileService
	Graph     graphService
	Favorites favoriteService
	Posts     postService
	Feed      feedService
}

type GRPCServer struct {
	address  string
	maxRecv  int
	logger   logging.Logger
	accounts accountService
	profiles profileService
	graph    graphService
	favs     favoriteService
	posts    postService
	feed     feedService
}

// NewGRPCServer serves svc on address. maxRecv bounds incoming messages in
// bytes; zero keeps the grpc default.
func NewGRPCServer(address string, maxRecv int, l logging.Logger, svc Services) *GRPCServer {
	return &GRPCServer{
		address:  address,
		maxRecv:  maxRecv,
		logger:   l.With("module", "grpc_server"),
		accounts: svc.Accounts,
		profiles: svc.Profiles,
		graph:    svc.Graph,
		favs:     svc.Favorites,
		posts:    svc.Posts,
		feed:     svc.Feed,
	}
}

// NewServer builds a grpc.Server with the request interceptors installed
// and this service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	if s.maxRecv > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(s.maxRecv))
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(s.requestIDInterceptor, s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&serviceDesc, s)
	return srv
}

// Run serves on the configured address until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String(), "service", api.ServiceName)

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
