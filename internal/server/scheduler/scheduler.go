// Package scheduler runs periodic maintenance, currently the mirror
// reconciliation pass.
package scheduler

import (
	"context"
	"time"

	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/services"
	"github.com/robfig/cron/v3"
)

const repairTimeout = 10 * time.Minute

// Repairer is satisfied by services.ReconcileService.
type Repairer interface {
	Run(ctx context.Context) (services.RepairReport, error)
}

type Scheduler struct {
	ctx      context.Context
	cron     *cron.Cron
	spec     string
	repairer Repairer
	log      logging.Logger
}

// New prepares a scheduler that runs repairer on spec (robfig/cron syntax,
// descriptors like "@every 1h" included). Jobs never overlap.
func New(ctx context.Context, spec string, repairer Repairer, log logging.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		ctx:      ctx,
		cron:     c,
		spec:     spec,
		repairer: repairer,
		log:      log.With("module", "scheduler"),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.repair); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info(s.ctx, "Scheduler started", "spec", s.spec)

	return nil
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) repair() {
	ctx, cancel := context.WithTimeout(s.ctx, repairTimeout)
	defer cancel()

	if ctx.Err() != nil {
		s.log.Info(ctx, "Scheduler context is done", "err", ctx.Err())
		return
	}

	start := time.Now()
	rep, err := s.repairer.Run(ctx)
	if err != nil {
		s.log.Error(ctx, "Mirror repair failed", "err", err)
		return
	}

	s.log.Info(ctx, "Mirror repair done",
		"followers", rep.Followers,
		"user_favorities", rep.UserFavorities,
		"post_favorities", rep.PostFavorities,
		"duration", time.Since(start))
}
