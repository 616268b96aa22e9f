package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/dbx"
	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/users"
)

// GraphService maintains follow edges. Every edge is stored twice, in the
// follower's follows set and in the followee's followers set.
type GraphService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewGraphService(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger) *GraphService {
	return &GraphService{db: db, repomanager: rm, log: log.With("module", "graph")}
}

// Follow adds the edge viewer -> target. Following twice leaves a single
// entry on both sides. Self-follow is rejected.
func (s *GraphService) Follow(ctx context.Context, viewerID, targetID string) error {
	return s.update(ctx, viewerID, targetID, true)
}

// Unfollow removes the edge viewer -> target from both sides.
func (s *GraphService) Unfollow(ctx context.Context, viewerID, targetID string) error {
	return s.update(ctx, viewerID, targetID, false)
}

func (s *GraphService) update(ctx context.Context, viewerID, targetID string, add bool) error {
	if viewerID == "" {
		return common.ErrorUnauthorized
	}
	if viewerID == targetID {
		return fmt.Errorf("%w: cannot follow yourself", common.ErrorValidation)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		ok, err := repo.Exists(ctx, targetID)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrorNotFound
		}

		write := repo.RemoveFromSet
		if add {
			write = repo.AddToSet
		}
		if err := write(ctx, viewerID, users.Follows, targetID); err != nil {
			return err
		}
		if err := write(ctx, targetID, users.Followers, viewerID); err != nil {
			return mirrored(err)
		}
		return nil
	})
	if err != nil {
		return storeError(ctx, s.log, "follow update failed", err, "viewer_id", viewerID, "target_id", targetID, "add", add)
	}

	s.log.Debug(ctx, "follow updated", "viewer_id", viewerID, "target_id", targetID, "add", add)
	return nil
}

// IsFollowing reads the viewer's follows set. Anonymous viewers follow
// nobody.
func (s *GraphService) IsFollowing(ctx context.Context, viewerID, targetID string) (bool, error) {
	if viewerID == "" {
		return false, nil
	}
	follows, err := s.FollowIDs(ctx, viewerID)
	if err != nil {
		return false, err
	}
	return contains(follows, targetID), nil
}

// FollowIDs returns the user's follows set in stored order.
func (s *GraphService) FollowIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.repomanager.Users(s.db).GetSet(ctx, userID, users.Follows)
	if err != nil {
		return nil, storeError(ctx, s.log, "follows lookup failed", err, "user_id", userID)
	}
	return ids, nil
}

func (s *GraphService) ListFollows(ctx context.Context, userID, viewerID string) ([]*models.FollowEntry, error) {
	return s.list(ctx, userID, viewerID, users.Follows)
}

func (s *GraphService) ListFollowers(ctx context.Context, userID, viewerID string) ([]*models.FollowEntry, error) {
	return s.list(ctx, userID, viewerID, users.Followers)
}

// list resolves every id in the set to a name. A single unresolvable entry
// fails the whole listing.
func (s *GraphService) list(ctx context.Context, userID, viewerID string, field users.SetField) ([]*models.FollowEntry, error) {
	repo := s.repomanager.Users(s.db)

	ids, err := repo.GetSet(ctx, userID, field)
	if err != nil {
		return nil, storeError(ctx, s.log, "set lookup failed", err, "user_id", userID, "field", field)
	}

	names, err := repo.Names(ctx, ids)
	if err != nil {
		return nil, storeError(ctx, s.log, "names lookup failed", err, "user_id", userID)
	}

	var viewerFollows []string
	if viewerID != "" {
		if viewerFollows, err = repo.GetSet(ctx, viewerID, users.Follows); err != nil {
			return nil, storeError(ctx, s.log, "viewer follows lookup failed", err, "viewer_id", viewerID)
		}
	}

	out := make([]*models.FollowEntry, 0, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			s.log.Warn(ctx, "dangling edge", "user_id", userID, "field", field, "missing_id", id)
			return nil, fmt.Errorf("user %s: %w", id, common.ErrorNotFound)
		}
		e := &models.FollowEntry{ID: id, Name: name}
		if viewerID != "" && id != viewerID {
			following := contains(viewerFollows, id)
			e.IsFollowing = &following
		}
		out = append(out, e)
	}

	return out, nil
}
