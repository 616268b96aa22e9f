package api

import "time"

type RegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	PasswordCheck string `json:"password_check"`
	Name          string `json:"name,omitempty"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
}

type FeedRequest struct{}

// UserRequest addresses another user's listing. An empty UserID means the
// caller.
type UserRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// Post is a post as seen by the caller.
type Post struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	CreatedAt    time.Time `json:"created_at"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	PictureURL   *string   `json:"picture_url,omitempty"`
	IsMine       bool      `json:"is_mine"`
	IsFavoriting *bool     `json:"is_favoriting,omitempty"`
}

type PostsResponse struct {
	Posts []*Post `json:"posts"`
}

type Picture struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type CreatePostRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Picture     *Picture `json:"picture,omitempty"`
}

// CreatePostResponse carries the new id even when the picture could not be
// stored; PictureError explains why in that case.
type CreatePostResponse struct {
	PostID       string `json:"post_id"`
	PictureError string `json:"picture_error,omitempty"`
}

type PostRequest struct {
	PostID string `json:"post_id"`
}

type Empty struct{}

type FollowRequest struct {
	UserID string `json:"user_id"`
}

// FollowResponse reports the edge state after the call and whether the
// call changed it.
type FollowResponse struct {
	Following bool `json:"following"`
	Changed   bool `json:"changed"`
}

type FavoriteResponse struct {
	Favoriting bool `json:"favoriting"`
	Changed    bool `json:"changed"`
}

type FollowEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsFollowing *bool  `json:"is_following,omitempty"`
}

type FollowListResponse struct {
	Users []*FollowEntry `json:"users"`
}

type ProfileResponse struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	FollowsCount   int    `json:"follows_count"`
	FollowersCount int    `json:"followers_count"`
	IsMine         bool   `json:"is_mine"`
	IsFollowing    *bool  `json:"is_following,omitempty"`
}

// UpdateProfileRequest edits the caller. Empty fields are left alone.
type UpdateProfileRequest struct {
	Name             string `json:"name,omitempty"`
	Email            string `json:"email,omitempty"`
	NewPassword      string `json:"new_password,omitempty"`
	NewPasswordCheck string `json:"new_password_check,omitempty"`
}

// UpdateProfileResponse tells the client whether credentials changed, in
// which case the current token should be discarded.
type UpdateProfileResponse struct {
	NameChanged        bool `json:"name_changed"`
	CredentialsChanged bool `json:"credentials_changed"`
}
