// Package api holds the wire contract shared by the feedhub server and
// client: the service and method names, the request/response messages and
// the JSON codec both sides speak.
package api

const ServiceName = "feedhub.FeedHub"

// MaxPictureBytes caps the raw size of a picture attached to CreatePost.
const MaxPictureBytes = 8 << 20

// DefaultMaxMsgBytes is the server's default receive limit. It fits a
// MaxPictureBytes picture after base64 encoding plus the rest of the
// message.
const DefaultMaxMsgBytes = 12 << 20

const (
	MethodRegister       = "Register"
	MethodLogin          = "Login"
	MethodFeed           = "Feed"
	MethodUserPosts      = "UserPosts"
	MethodFavoritePosts  = "FavoritePosts"
	MethodCreatePost     = "CreatePost"
	MethodDeletePost     = "DeletePost"
	MethodFollow         = "Follow"
	MethodUnfollow       = "Unfollow"
	MethodListFollows    = "ListFollows"
	MethodListFollowers  = "ListFollowers"
	MethodAddFavorite    = "AddFavorite"
	MethodRemoveFavorite = "RemoveFavorite"
	MethodProfile        = "Profile"
	MethodUpdateProfile  = "UpdateProfile"
)

// FullMethod returns the gRPC path of a method, e.g. "/feedhub.FeedHub/Feed".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}
