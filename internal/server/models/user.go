package models

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Follows      []string
	Followers    []string
	// Favorities holds ids of posts the user marked as favorite.
	Favorities []string
	CreatedAt  time.Time
}

// Identity is what an authenticated caller is known by.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// FollowEntry is one row of a follows/followers listing.
// IsFollowing is nil for anonymous viewers and for the viewer's own row.
type FollowEntry struct {
	ID          string
	Name        string
	IsFollowing *bool
}
