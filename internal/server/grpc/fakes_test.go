package grpc

import (
	"context"

	"github.com/dmitrijs2005/feedhub/internal/api"
	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
)

// ---- fakes ----

type fakeAccounts struct {
	regResp *models.User
	regErr  error

	loginToken string
	loginID    *models.Identity
	loginErr   error

	// tokens maps an access token to its identity; anything else is invalid
	tokens map[string]*models.Identity
}

func (f *fakeAccounts) Register(ctx context.Context, email, password, passwordCheck, name string) (*models.User, error) {
	return f.regResp, f.regErr
}

func (f *fakeAccounts) Login(ctx context.Context, email, password string) (string, *models.Identity, error) {
	return f.loginToken, f.loginID, f.loginErr
}

func (f *fakeAccounts) VerifyToken(token string) (*models.Identity, error) {
	if token == "expired" {
		return nil, common.ErrTokenExpired
	}
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return nil, common.ErrInvalidToken
}

type fakeProfiles struct {
	users     map[string]*models.User
	existsErr error
	nameErr   error
	secure    bool
	secureErr error
	gotName   string
	gotSecure []string
}

func (f *fakeProfiles) Exists(ctx context.Context, userID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.users[userID]
	return ok, nil
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeProfiles) UpdateName(ctx context.Context, userID, name string) error {
	f.gotName = name
	return f.nameErr
}

func (f *fakeProfiles) UpdateSecureInfo(ctx context.Context, userID, email, newPassword, newPasswordCheck string) (bool, error) {
	f.gotSecure = []string{userID, email, newPassword, newPasswordCheck}
	return f.secure, f.secureErr
}

type fakeGraph struct {
	following map[string]bool
	calls     []string
	err       error
	entries   []*models.FollowEntry
}

func (f *fakeGraph) key(viewer, target string) string { return viewer + "->" + target }

func (f *fakeGraph) Follow(ctx context.Context, viewerID, targetID string) error {
	f.calls = append(f.calls, "follow")
	if f.err != nil {
		return f.err
	}
	f.following[f.key(viewerID, targetID)] = true
	return nil
}

func (f *fakeGraph) Unfollow(ctx context.Context, viewerID, targetID string) error {
	f.calls = append(f.calls, "unfollow")
	delete(f.following, f.key(viewerID, targetID))
	return f.err
}

func (f *fakeGraph) IsFollowing(ctx context.Context, viewerID, targetID string) (bool, error) {
	return f.following[f.key(viewerID, targetID)], nil
}

func (f *fakeGraph) ListFollows(ctx context.Context, userID, viewerID string) ([]*models.FollowEntry, error) {
	f.calls = append(f.calls, "follows:"+userID+":"+viewerID)
	return f.entries, f.err
}

func (f *fakeGraph) ListFollowers(ctx context.Context, userID, viewerID string) ([]*models.FollowEntry, error) {
	f.calls = append(f.calls, "followers:"+userID+":"+viewerID)
	return f.entries, f.err
}

type fakeFavorites struct {
	favs  map[string]bool
	calls []string
	err   error
}

func (f *fakeFavorites) Add(ctx context.Context, userID, postID string) error {
	f.calls = append(f.calls, "add")
	if f.err != nil {
		return f.err
	}
	f.favs[userID+":"+postID] = true
	return nil
}

func (f *fakeFavorites) Remove(ctx context.Context, userID, postID string) error {
	f.calls = append(f.calls, "remove")
	delete(f.favs, userID+":"+postID)
	return f.err
}

func (f *fakeFavorites) IsFavoriting(ctx context.Context, userID, postID string) (bool, error) {
	return f.favs[userID+":"+postID], nil
}

type fakePosts struct {
	createID  string
	createErr error
	gotImage  *models.Image
	deleteErr error
	entries   []*models.FeedEntry
	listErr   error
	lastQuery []string
}

func (f *fakePosts) Create(ctx context.Context, authorID, title, description string, image *models.Image) (string, error) {
	f.gotImage = image
	return f.createID, f.createErr
}

func (f *fakePosts) Delete(ctx context.Context, requesterID, postID string) error {
	f.lastQuery = []string{requesterID, postID}
	return f.deleteErr
}

func (f *fakePosts) UserPosts(ctx context.Context, userID, viewerID string) ([]*models.FeedEntry, error) {
	f.lastQuery = []string{"user", userID, viewerID}
	return f.entries, f.listErr
}

func (f *fakePosts) FavoritePosts(ctx context.Context, userID, viewerID string) ([]*models.FeedEntry, error) {
	f.lastQuery = []string{"favorites", userID, viewerID}
	return f.entries, f.listErr
}

type fakeFeed struct {
	entries []*models.FeedEntry
	err     error
	viewer  string
}

func (f *fakeFeed) BuildFeed(ctx context.Context, viewerID string) ([]*models.FeedEntry, error) {
	f.viewer = viewerID
	return f.entries, f.err
}

// ---- helpers ----

type fixture struct {
	accounts  *fakeAccounts
	profiles  *fakeProfiles
	graph     *fakeGraph
	favorites *fakeFavorites
	posts     *fakePosts
	feed      *fakeFeed
	server    *GRPCServer
}

func newFixture() *fixture {
	f := &fixture{
		accounts: &fakeAccounts{tokens: map[string]*models.Identity{
			"tok-u1": {UserID: "u1", Email: "ann@example.com", Name: "Ann"},
		}},
		profiles: &fakeProfiles{users: map[string]*models.User{
			"u1": {ID: "u1", Email: "ann@example.com", Name: "Ann", Follows: []string{"u2"}},
			"u2": {ID: "u2", Email: "bob@example.com", Name: "Bob", Followers: []string{"u1"}},
		}},
		graph:     &fakeGraph{following: map[string]bool{}},
		favorites: &fakeFavorites{favs: map[string]bool{}},
		posts:     &fakePosts{},
		feed:      &fakeFeed{},
	}
	f.server = NewGRPCServer("127.0.0.1:0", api.DefaultMaxMsgBytes, logging.Nop(), Services{
		Accounts:  f.accounts,
		Profiles:  f.profiles,
		Graph:     f.graph,
		Favorites: f.favorites,
		Posts:     f.posts,
		Feed:      f.feed,
	})
	return f
}

func asUser(id string) context.Context {
	return withIdentity(context.Background(), &models.Identity{UserID: id})
}
