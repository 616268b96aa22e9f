package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
	"golang.org/x/sync/errgroup"
)

const (
	feedLimit    = 30
	mineLimit    = 3
	followsLimit = 20
	globalLimit  = feedLimit - mineLimit - followsLimit
)

// PostFetcher is the slice of PostService the feed reads through.
type PostFetcher interface {
	FetchByAuthors(ctx context.Context, authorIDs []string, all bool, viewerID string, limit int) ([]*models.FeedEntry, error)
}

// FollowLister returns whom a user follows.
type FollowLister interface {
	FollowIDs(ctx context.Context, userID string) ([]string, error)
}

// FeedService builds home feeds on every request from three sources: the
// viewer's own posts, posts of the people they follow and the newest posts
// overall.
type FeedService struct {
	posts   PostFetcher
	follows FollowLister
	log     logging.Logger
}

func NewFeedService(posts PostFetcher, follows FollowLister, log logging.Logger) *FeedService {
	return &FeedService{posts: posts, follows: follows, log: log.With("module", "feed")}
}

type source struct {
	name    string
	entries []*models.FeedEntry
	err     error
}

// BuildFeed returns at most 30 entries for viewerID ("" for anonymous).
//
// For a known viewer the sources are concatenated as mine (3), follows (20)
// and global (7), deduplicated by post id keeping the first occurrence, and
// not re-sorted. A failing source is logged and contributes nothing; an
// error is returned only when every source failed.
func (s *FeedService) BuildFeed(ctx context.Context, viewerID string) ([]*models.FeedEntry, error) {
	if viewerID == "" {
		entries, err := s.posts.FetchByAuthors(ctx, nil, true, "", feedLimit)
		if err != nil {
			return nil, fmt.Errorf("build feed: %w", err)
		}
		return truncate(entries, feedLimit), nil
	}

	sources := []*source{{name: "mine"}, {name: "follows"}, {name: "global"}}
	mine, follows, global := sources[0], sources[1], sources[2]

	// sources are isolated, so a plain group: no cancellation on first error
	var g errgroup.Group
	g.Go(func() error {
		mine.entries, mine.err = s.posts.FetchByAuthors(ctx, []string{viewerID}, false, viewerID, mineLimit)
		return nil
	})
	g.Go(func() error {
		ids, err := s.follows.FollowIDs(ctx, viewerID)
		if err != nil {
			follows.err = err
			return nil
		}
		if len(ids) == 0 {
			return nil
		}
		follows.entries, follows.err = s.posts.FetchByAuthors(ctx, ids, false, viewerID, followsLimit)
		return nil
	})
	g.Go(func() error {
		global.entries, global.err = s.posts.FetchByAuthors(ctx, nil, true, viewerID, globalLimit)
		return nil
	})
	_ = g.Wait()

	var errs []error
	for _, src := range sources {
		if src.err != nil {
			s.log.Warn(ctx, "feed source failed", "source", src.name, "viewer_id", viewerID, "err", src.err)
			errs = append(errs, fmt.Errorf("%s: %w", src.name, src.err))
		}
	}
	if len(errs) == len(sources) {
		return nil, fmt.Errorf("build feed: %w", errors.Join(errs...))
	}

	return mergeSources(
		truncate(mine.entries, mineLimit),
		truncate(follows.entries, followsLimit),
		truncate(global.entries, globalLimit),
	), nil
}

// mergeSources concatenates in argument order and drops repeated post ids,
// keeping the first one seen.
func mergeSources(lists ...[]*models.FeedEntry) []*models.FeedEntry {
	n := 0
	for _, l := range lists {
		n += len(l)
	}

	out := make([]*models.FeedEntry, 0, n)
	seen := make(map[string]struct{}, n)
	for _, l := range lists {
		for _, e := range l {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

func truncate(entries []*models.FeedEntry, n int) []*models.FeedEntry {
	if len(entries) > n {
		return entries[:n]
	}
	if entries == nil {
		return []*models.FeedEntry{}
	}
	return entries
}
