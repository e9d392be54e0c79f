package app

import (
	"context"
	"time"

	"docvault/internal/blob"
	"docvault/internal/config"
	"docvault/internal/core"
	"docvault/internal/database"
	"docvault/internal/index"
)

// App wires the engine together from configuration: metadata store,
// object store, search index, synchronizer and the service on top.
type App struct {
	Config  *config.Config
	Service *core.Service
	Repo    core.Repository
	Store   core.ObjectStore
	Index   core.SearchIndex
	Sync    *core.Synchronizer
	Logger  *ZapLogger
}

// New builds a fully wired App from the configuration.
func New(ctx context.Context, cfg *config.Config, debug bool) (*App, error) {
	logger, err := NewLogger(debug)
	if err != nil {
		return nil, err
	}

	repo, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, err
	}

	store, err := blob.NewStoreFromConfig(ctx, cfg)
	if err != nil {
		repo.Close()
		return nil, err
	}

	idx := index.NewMemory()
	sync := core.NewSynchronizer(repo, idx, logger, cfg.Sync.QueueSize)
	audit := core.NewRepositoryAuditSink(repo, logger)

	svc := core.NewService(repo, store, idx, sync, audit, logger,
		core.RealClock{}, core.UUIDGenerator{}, core.Options{
			BatchWorkers: cfg.Batch.Workers,
			ItemTimeout:  time.Duration(cfg.Batch.ItemTimeoutSecs) * time.Second,
		})

	return &App{
		Config:  cfg,
		Service: svc,
		Repo:    repo,
		Store:   store,
		Index:   idx,
		Sync:    sync,
		Logger:  logger,
	}, nil
}

// Close drains the synchronizer and closes the metadata store.
func (a *App) Close() error {
	a.Sync.Close()
	err := a.Repo.Close()
	a.Logger.Sync()
	return err
}
