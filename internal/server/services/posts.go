package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/dbx"
	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/feedhub/internal/server/storage"
	"golang.org/x/sync/errgroup"
)

// BlobStore holds post pictures.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// NameResolver maps user ids to display names.
type NameResolver interface {
	Names(ctx context.Context, ids []string) (map[string]string, error)
}

// FavoriteLister returns the post ids a user has favorited.
type FavoriteLister interface {
	List(ctx context.Context, userID string) ([]string, error)
}

// PostService creates, deletes and fetches posts, annotating them for a
// viewer on the way out.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       BlobStore
	names       NameResolver
	favorites   FavoriteLister
	log         logging.Logger
}

func NewPostService(db *sql.DB, rm repomanager.RepositoryManager, blobs BlobStore, names NameResolver, favorites FavoriteLister, log logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: rm,
		blobs:       blobs,
		names:       names,
		favorites:   favorites,
		log:         log.With("module", "posts"),
	}
}

// Create stores the post and then, if given, its image.
//
// An upload failure leaves the post without a picture and returns its id
// together with an error wrapping common.ErrorImageUpload. A failure to
// record the uploaded picture is logged and likewise returns the id.
func (s *PostService) Create(ctx context.Context, authorID, title, description string, image *models.Image) (string, error) {
	if authorID == "" {
		return "", common.ErrorUnauthorized
	}
	if err := validatePost(title, description); err != nil {
		return "", err
	}

	post := &models.Post{UserID: authorID, Title: title}
	if description != "" {
		post.Description = &description
	}

	repo := s.repomanager.Posts(s.db)
	if _, err := repo.Create(ctx, post); err != nil {
		return "", storeError(ctx, s.log, "create post failed", err, "author_id", authorID)
	}

	if image == nil || image.Filename == "" || len(image.Data) == 0 {
		return post.ID, nil
	}

	filename := storage.SanitizeFilename(image.Filename)
	key := storage.PostFileKey(authorID, post.ID, filename)

	if err := s.blobs.Put(ctx, key, image.Data, image.ContentType); err != nil {
		s.log.Error(ctx, "picture upload failed", "post_id", post.ID, "key", key, "err", err)
		return post.ID, fmt.Errorf("%w: %w", common.ErrorImageUpload, err)
	}

	if err := repo.SetPictureName(ctx, post.ID, filename); err != nil {
		s.log.Error(ctx, "picture uploaded but not recorded", "post_id", post.ID, "key", key, "err", err)
		return post.ID, fmt.Errorf("record picture: %w", err)
	}

	return post.ID, nil
}

// Delete removes a post owned by requesterID. The picture goes first and
// its failure does not stop the rest. The post row and every reference to
// it in users' favorities are removed in one transaction.
func (s *PostService) Delete(ctx context.Context, requesterID, postID string) error {
	if requesterID == "" {
		return common.ErrorUnauthorized
	}

	post, err := s.repomanager.Posts(s.db).GetByID(ctx, postID)
	if err != nil {
		return storeError(ctx, s.log, "post lookup failed", err, "post_id", postID)
	}
	if post.UserID != requesterID {
		return common.ErrorForbidden
	}

	if post.PictureName != nil {
		key := storage.PostFileKey(post.UserID, post.ID, *post.PictureName)
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.Warn(ctx, "picture delete failed", "post_id", postID, "key", key, "err", err)
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Posts(tx).Delete(ctx, postID); err != nil {
			return err
		}
		if _, err := s.repomanager.Users(tx).RemoveFromAllSets(ctx, users.Favorities, postID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return storeError(ctx, s.log, "delete post failed", err, "post_id", postID)
	}

	s.log.Info(ctx, "post deleted", "post_id", postID, "author_id", requesterID)
	return nil
}

// FetchByAuthors returns posts, newest first, written by any of authorIDs,
// or by anyone when all is set. An empty explicit author set returns
// nothing without touching the store. limit <= 0 means no limit.
func (s *PostService) FetchByAuthors(ctx context.Context, authorIDs []string, all bool, viewerID string, limit int) ([]*models.FeedEntry, error) {
	if !all && len(authorIDs) == 0 {
		return []*models.FeedEntry{}, nil
	}

	return s.fetch(ctx, viewerID, func(ctx context.Context) ([]*models.Post, error) {
		repo := s.repomanager.Posts(s.db)
		if all {
			return repo.SelectAll(ctx, limit)
		}
		return repo.SelectByAuthors(ctx, authorIDs, limit)
	})
}

// FetchByIDs returns the posts with the given ids that still exist.
func (s *PostService) FetchByIDs(ctx context.Context, postIDs []string, viewerID string) ([]*models.FeedEntry, error) {
	if len(postIDs) == 0 {
		return []*models.FeedEntry{}, nil
	}

	return s.fetch(ctx, viewerID, func(ctx context.Context) ([]*models.Post, error) {
		return s.repomanager.Posts(s.db).SelectByIDs(ctx, postIDs)
	})
}

// UserPosts lists every post written by userID.
func (s *PostService) UserPosts(ctx context.Context, userID, viewerID string) ([]*models.FeedEntry, error) {
	return s.FetchByAuthors(ctx, []string{userID}, false, viewerID, 0)
}

// FavoritePosts lists the posts userID has favorited.
func (s *PostService) FavoritePosts(ctx context.Context, userID, viewerID string) ([]*models.FeedEntry, error) {
	ids, err := s.favorites.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.FetchByIDs(ctx, ids, viewerID)
}

// fetch runs the post query and the viewer's favorites lookup side by side
// and then annotates the result.
func (s *PostService) fetch(ctx context.Context, viewerID string, query func(context.Context) ([]*models.Post, error)) ([]*models.FeedEntry, error) {
	var (
		posts     []*models.Post
		favorites []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = query(gctx)
		if err != nil {
			return storeError(gctx, s.log, "select posts failed", err)
		}
		return nil
	})
	if viewerID != "" {
		g.Go(func() error {
			var err error
			favorites, err = s.favorites.List(gctx, viewerID)
			// an unknown viewer simply has no favorites
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.annotate(ctx, posts, viewerID, favorites), nil
}

func (s *PostService) annotate(ctx context.Context, posts []*models.Post, viewerID string, favorites []string) []*models.FeedEntry {
	authorIDs := make([]string, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.UserID]; !ok {
			seen[p.UserID] = struct{}{}
			authorIDs = append(authorIDs, p.UserID)
		}
	}

	names, err := s.names.Names(ctx, authorIDs)
	if err != nil {
		s.log.Warn(ctx, "author names unavailable", "err", err)
		names = nil
	}

	favSet := make(map[string]struct{}, len(favorites))
	for _, id := range favorites {
		favSet[id] = struct{}{}
	}

	out := make([]*models.FeedEntry, 0, len(posts))
	for _, p := range posts {
		e := &models.FeedEntry{
			Post:     *p,
			UserName: names[p.UserID],
			IsMine:   viewerID != "" && p.UserID == viewerID,
		}
		if viewerID != "" {
			_, fav := favSet[p.ID]
			e.IsFavoriting = &fav
		}
		if p.PictureName != nil {
			u := s.blobs.PublicURL(storage.PostFileKey(p.UserID, p.ID, *p.PictureName))
			e.PictureURL = &u
		}
		out = append(out, e)
	}

	return out
}
