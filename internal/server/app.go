// Package server wires the feedhub server together: configuration, the
// PostgreSQL store and its migrations, picture storage, the services, the
// reconciliation scheduler and the gRPC endpoint.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/feedhub/internal/dbx"
	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/config"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedhub/internal/server/scheduler"
	"github.com/dmitrijs2005/feedhub/internal/server/services"
	"github.com/dmitrijs2005/feedhub/internal/server/storage"

	gs "github.com/dmitrijs2005/feedhub/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *dbx.Postgres
	services  gs.Services
	reconcile *services.ReconcileService
}

// seams for tests
var (
	openPostgres = dbx.OpenPostgres
	newBlobStore = func(ctx context.Context, opts storage.Options) (services.BlobStore, error) {
		return storage.NewS3Store(ctx, opts)
	}
	newRepositoryManager = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}
)

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogLevel, c.LogFormat, os.Stdout)

	db, err := openPostgres(ctx, c.DatabaseDSN, c.DatabaseMaxConns)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	blobs, err := newBlobStore(ctx, storage.Options{
		User:          c.S3RootUser,
		Password:      c.S3RootPassword,
		Bucket:        c.S3Bucket,
		Region:        c.S3Region,
		BaseEndpoint:  c.S3BaseEndpoint,
		PublicBaseURL: c.S3PublicBaseURL,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	profiles := services.NewProfileService(db.DB, rm, logger, c.BcryptCost)
	graph := services.NewGraphService(db.DB, rm, logger)
	favorites := services.NewFavoriteService(db.DB, rm, logger)
	posts := services.NewPostService(db.DB, rm, blobs, profiles, favorites, logger)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		services: gs.Services{
			Accounts:  services.NewAccountService(db.DB, rm, logger, c),
			Profiles:  profiles,
			Graph:     graph,
			Favorites: favorites,
			Posts:     posts,
			Feed:      services.NewFeedService(posts, graph, logger),
		},
		reconcile: services.NewReconcileService(db.DB, rm, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.config.GRPCMaxRecvBytes, app.logger, app.services)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "err", err)
		cancelFunc()
		return fmt.Errorf("grpc server: %w", err)
	}
	return nil
}

// startScheduler returns nil when no repair schedule is configured.
func (app *App) startScheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	if app.config.RepairSchedule == "" {
		app.logger.Info(ctx, "Mirror repair disabled")
		return nil, nil
	}
	sch := scheduler.New(ctx, app.config.RepairSchedule, app.reconcile, app.logger)
	if err := sch.Start(); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return sch, nil
}

// Run blocks until the gRPC server stops, either on a signal or on a
// fatal server error, then releases the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	sch, err := app.startScheduler(ctx)
	if err != nil {
		return err
	}

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if sch != nil {
		sch.Stop()
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close failed", "err", err)
	}

	app.logger.Info(context.Background(), "App stopped")
	return runErr
}
