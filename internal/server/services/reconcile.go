package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/feedhub/internal/dbx"
	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/repomanager"
)

// RepairReport counts rows rewritten by one reconciliation pass.
type RepairReport struct {
	Followers      int64
	UserFavorities int64
	PostFavorities int64
}

// ReconcileService brings mirrored sets back in line. The follows and
// users.favorities sides are the source of truth.
type ReconcileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewReconcileService(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger) *ReconcileService {
	return &ReconcileService{db: db, repomanager: rm, log: log.With("module", "reconcile")}
}

// Each repair step runs in its own REPEATABLE READ transaction and is
// retried on serialization failure, so rows changed after the step's
// snapshot are never overwritten with a stale set.
var repairTxOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead}

const repairAttempts = 3

// Run rebuilds followers from follows, drops favorities that point at
// deleted posts and then rebuilds posts.favorities from users.favorities.
func (s *ReconcileService) Run(ctx context.Context) (RepairReport, error) {
	var rep RepairReport
	var err error

	rep.Followers, err = s.repair(ctx, "followers", func(ctx context.Context, tx dbx.DBTX) (int64, error) {
		return s.repomanager.Users(tx).RepairFollowers(ctx)
	})
	if err != nil {
		return rep, err
	}
	rep.UserFavorities, err = s.repair(ctx, "user favorities", func(ctx context.Context, tx dbx.DBTX) (int64, error) {
		return s.repomanager.Users(tx).PruneFavorities(ctx)
	})
	if err != nil {
		return rep, err
	}
	rep.PostFavorities, err = s.repair(ctx, "post favorities", func(ctx context.Context, tx dbx.DBTX) (int64, error) {
		return s.repomanager.Posts(tx).RepairFavorities(ctx)
	})
	if err != nil {
		return rep, err
	}

	if rep.Followers+rep.UserFavorities+rep.PostFavorities > 0 {
		s.log.Warn(ctx, "mirrors repaired",
			"followers", rep.Followers, "user_favorities", rep.UserFavorities, "post_favorities", rep.PostFavorities)
	} else {
		s.log.Debug(ctx, "mirrors consistent")
	}
	return rep, nil
}

func (s *ReconcileService) repair(ctx context.Context, step string, fn func(ctx context.Context, tx dbx.DBTX) (int64, error)) (int64, error) {
	var n int64
	var err error
	for attempt := 1; attempt <= repairAttempts; attempt++ {
		err = dbx.WithTx(ctx, s.db, repairTxOptions, func(ctx context.Context, tx dbx.DBTX) error {
			var err error
			n, err = fn(ctx, tx)
			return err
		})
		if err == nil || !dbx.IsSerializationFailure(err) {
			break
		}
		s.log.Debug(ctx, "repair conflicted with a concurrent write", "step", step, "attempt", attempt)
	}
	if err != nil {
		return 0, s.fail(ctx, step, err)
	}
	return n, nil
}

func (s *ReconcileService) fail(ctx context.Context, step string, err error) error {
	s.log.Error(ctx, "repair failed", "step", step, "err", err)
	return fmt.Errorf("repair %s: %w", step, err)
}
