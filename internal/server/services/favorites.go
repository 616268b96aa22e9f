package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/dbx"
	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/users"
)

// FavoriteService keeps users.favorities and posts.favorities in step.
type FavoriteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewFavoriteService(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger) *FavoriteService {
	return &FavoriteService{db: db, repomanager: rm, log: log.With("module", "favorites")}
}

func (s *FavoriteService) Add(ctx context.Context, userID, postID string) error {
	return s.update(ctx, userID, postID, true)
}

func (s *FavoriteService) Remove(ctx context.Context, userID, postID string) error {
	return s.update(ctx, userID, postID, false)
}

func (s *FavoriteService) update(ctx context.Context, userID, postID string, add bool) error {
	if userID == "" {
		return common.ErrorUnauthorized
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		userRepo := s.repomanager.Users(tx)
		postRepo := s.repomanager.Posts(tx)

		if add {
			if _, err := postRepo.GetByID(ctx, postID); err != nil {
				return err
			}
			if err := userRepo.AddToSet(ctx, userID, users.Favorities, postID); err != nil {
				return err
			}
			if err := postRepo.AddFavoriter(ctx, postID, userID); err != nil {
				return mirrored(err)
			}
			return nil
		}

		if err := userRepo.RemoveFromSet(ctx, userID, users.Favorities, postID); err != nil {
			return err
		}
		// the post may already be gone; dropping the user's side is enough then
		if err := postRepo.RemoveFavoriter(ctx, postID, userID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return mirrored(err)
		}
		return nil
	})
	if err != nil {
		return storeError(ctx, s.log, "favorite update failed", err, "user_id", userID, "post_id", postID, "add", add)
	}
	return nil
}

func (s *FavoriteService) IsFavoriting(ctx context.Context, userID, postID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	favs, err := s.List(ctx, userID)
	if err != nil {
		return false, err
	}
	return contains(favs, postID), nil
}

// List returns the ids of the user's favorite posts.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]string, error) {
	favs, err := s.repomanager.Users(s.db).GetSet(ctx, userID, users.Favorities)
	if err != nil {
		return nil, storeError(ctx, s.log, "favorities lookup failed", err, "user_id", userID)
	}
	return favs, nil
}
