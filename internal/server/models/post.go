package models

import "time"

type Post struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	Title     string
	// Description is nil when the author left it empty.
	Description *string
	// PictureName is set only after the image upload succeeded.
	PictureName *string
	Favorities  []string
}

// FeedEntry is a post annotated for one viewer.
type FeedEntry struct {
	Post
	UserName   string
	PictureURL *string
	// IsFavoriting is nil when the viewer is anonymous.
	IsFavoriting *bool
	IsMine       bool
}

// Image is an attachment submitted with a new post.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}
