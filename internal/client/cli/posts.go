package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/feedhub/internal/api"
)

func (a *App) feed(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	posts, err := a.client.Feed(ctx)
	if err != nil {
		return err
	}
	a.printPosts(posts)
	return nil
}

func (a *App) userPosts(ctx context.Context, args []string) error {
	userID, err := optionalArg(args)
	if err != nil {
		return err
	}
	posts, err := a.client.UserPosts(ctx, userID)
	if err != nil {
		return err
	}
	a.printPosts(posts)
	return nil
}

func (a *App) favoritePosts(ctx context.Context, args []string) error {
	userID, err := optionalArg(args)
	if err != nil {
		return err
	}
	posts, err := a.client.FavoritePosts(ctx, userID)
	if err != nil {
		return err
	}
	a.printPosts(posts)
	return nil
}

func (a *App) createPost(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	title := fs.String("title", "", "post title")
	desc := fs.String("desc", "", "post description")
	picture := fs.String("picture", "", "path to an image file")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return ErrUsage
	}

	req := &api.CreatePostRequest{Title: *title, Description: *desc}

	var err error
	if req.Title == "" {
		if req.Title, err = getSimpleText(a.reader, "Title", a.out); err != nil {
			return err
		}
		if req.Description, err = getMultiline(a.reader, "Description", a.out); err != nil {
			return err
		}
	}

	if *picture != "" {
		if req.Picture, err = readPicture(*picture); err != nil {
			return err
		}
	}

	resp, err := a.client.CreatePost(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Post %s created\n", resp.PostID)
	if resp.PictureError != "" {
		fmt.Fprintf(a.out, "Picture was not saved: %s\n", resp.PictureError)
	}
	return nil
}

func readPicture(path string) (*api.Picture, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.Size() > api.MaxPictureBytes {
		return nil, fmt.Errorf("%s is larger than %d bytes", path, api.MaxPictureBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &api.Picture{Filename: filepath.Base(path), ContentType: contentType, Data: data}, nil
}

func (a *App) deletePost(ctx context.Context, args []string) error {
	postID, err := requiredArg(args)
	if err != nil {
		return err
	}
	if err := a.client.DeletePost(ctx, postID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Post %s deleted\n", postID)
	return nil
}

func (a *App) addFavorite(ctx context.Context, args []string) error {
	postID, err := requiredArg(args)
	if err != nil {
		return err
	}
	resp, err := a.client.AddFavorite(ctx, postID)
	if err != nil {
		return err
	}
	if resp.Changed {
		fmt.Fprintf(a.out, "Added %s to favorites\n", postID)
	} else {
		fmt.Fprintf(a.out, "%s is already a favorite\n", postID)
	}
	return nil
}

func (a *App) removeFavorite(ctx context.Context, args []string) error {
	postID, err := requiredArg(args)
	if err != nil {
		return err
	}
	resp, err := a.client.RemoveFavorite(ctx, postID)
	if err != nil {
		return err
	}
	if resp.Changed {
		fmt.Fprintf(a.out, "Removed %s from favorites\n", postID)
	} else {
		fmt.Fprintf(a.out, "%s was not a favorite\n", postID)
	}
	return nil
}
