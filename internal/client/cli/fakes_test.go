package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/feedhub/internal/api"
	"github.com/dmitrijs2005/feedhub/internal/client/client"
	"github.com/dmitrijs2005/feedhub/internal/client/config"
)

type fakeClient struct {
	client.Client

	token  string
	closed bool
	err    error

	loginResp   *api.LoginResponse
	posts       []*api.Post
	users       []*api.FollowEntry
	profileResp *api.ProfileResponse
	followResp  *api.FollowResponse
	favResp     *api.FavoriteResponse
	createResp  *api.CreatePostResponse
	updateResp  *api.UpdateProfileResponse

	lastUserID string
	lastPostID string
	created    *api.CreatePostRequest
	updated    *api.UpdateProfileRequest
	registered []string
}

func (f *fakeClient) Close() error          { f.closed = true; return nil }
func (f *fakeClient) SetToken(token string) { f.token = token }
func (f *fakeClient) Token() string         { return f.token }

func (f *fakeClient) Register(_ context.Context, email, password, check, name string) (*api.RegisterResponse, error) {
	f.registered = []string{email, password, check, name}
	if f.err != nil {
		return nil, f.err
	}
	return &api.RegisterResponse{UserID: "u1", Name: name}, nil
}

func (f *fakeClient) Login(_ context.Context, email, password string) (*api.LoginResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.token = f.loginResp.AccessToken
	return f.loginResp, nil
}

func (f *fakeClient) Feed(context.Context) ([]*api.Post, error) {
	return f.posts, f.err
}

func (f *fakeClient) UserPosts(_ context.Context, userID string) ([]*api.Post, error) {
	f.lastUserID = userID
	return f.posts, f.err
}

func (f *fakeClient) FavoritePosts(_ context.Context, userID string) ([]*api.Post, error) {
	f.lastUserID = userID
	return f.posts, f.err
}

func (f *fakeClient) CreatePost(_ context.Context, req *api.CreatePostRequest) (*api.CreatePostResponse, error) {
	f.created = req
	return f.createResp, f.err
}

func (f *fakeClient) DeletePost(_ context.Context, postID string) error {
	f.lastPostID = postID
	return f.err
}

func (f *fakeClient) Follow(_ context.Context, userID string) (*api.FollowResponse, error) {
	f.lastUserID = userID
	return f.followResp, f.err
}

func (f *fakeClient) Unfollow(_ context.Context, userID string) (*api.FollowResponse, error) {
	f.lastUserID = userID
	return f.followResp, f.err
}

func (f *fakeClient) ListFollows(_ context.Context, userID string) ([]*api.FollowEntry, error) {
	f.lastUserID = userID
	return f.users, f.err
}

func (f *fakeClient) ListFollowers(_ context.Context, userID string) ([]*api.FollowEntry, error) {
	f.lastUserID = userID
	return f.users, f.err
}

func (f *fakeClient) AddFavorite(_ context.Context, postID string) (*api.FavoriteResponse, error) {
	f.lastPostID = postID
	return f.favResp, f.err
}

func (f *fakeClient) RemoveFavorite(_ context.Context, postID string) (*api.FavoriteResponse, error) {
	f.lastPostID = postID
	return f.favResp, f.err
}

func (f *fakeClient) Profile(_ context.Context, userID string) (*api.ProfileResponse, error) {
	f.lastUserID = userID
	return f.profileResp, f.err
}

func (f *fakeClient) UpdateProfile(_ context.Context, req *api.UpdateProfileRequest) (*api.UpdateProfileResponse, error) {
	f.updated = req
	return f.updateResp, f.err
}

func newTestApp(t *testing.T, fc *fakeClient, input string) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		ServerEndpointAddr: "127.0.0.1:0",
		TokenFile:          filepath.Join(t.TempDir(), "token"),
		RequestTimeout:     time.Second,
	}
	out := &bytes.Buffer{}
	return newApp(cfg, fc, strings.NewReader(input), out), out
}

// stubPrompts replaces the interactive helpers; passwords are served in order.
func stubPrompts(t *testing.T, passwords ...string) {
	t.Helper()
	oldText, oldPw, oldMulti := getSimpleText, getPassword, getMultiline
	t.Cleanup(func() {
		getSimpleText, getPassword, getMultiline = oldText, oldPw, oldMulti
	})

	getSimpleText = func(r *bufio.Reader, prompt string, w io.Writer) (string, error) {
		return GetSimpleText(r, prompt, io.Discard)
	}
	getMultiline = func(r *bufio.Reader, prompt string, w io.Writer) (string, error) {
		return GetMultiline(r, prompt, io.Discard)
	}
	getPassword = func(prompt string, w io.Writer) (string, error) {
		if len(passwords) == 0 {
			return "", io.EOF
		}
		pw := passwords[0]
		passwords = passwords[1:]
		return pw, nil
	}
}

func ptr[T any](v T) *T { return &v }
