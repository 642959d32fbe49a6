// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/astralforge/stellar-odyssey/internal/api"
	"github.com/astralforge/stellar-odyssey/internal/config"
	"github.com/astralforge/stellar-odyssey/internal/content"
	"github.com/astralforge/stellar-odyssey/internal/di"
	"github.com/astralforge/stellar-odyssey/internal/logger"
	"github.com/astralforge/stellar-odyssey/internal/services"
	"github.com/astralforge/stellar-odyssey/internal/storage"
)

// App owns process lifecycle: service construction in dependency order,
// the HTTP server, and shutdown.
type App struct {
	Config *config.Config
	Server *http.Server

	store storage.SnapshotStore
	log   *logger.Logger
}

// New loads configuration and initializes services into the DI
// container.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.InitFile(filepath.Join(cfg.LogDir, "odyssey.log")); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()
	if cfg.DebugMode {
		log.SetLevel(logger.DEBUG)
	}

	a := &App{Config: cfg, log: log}
	if err := a.initServices(); err != nil {
		return nil, err
	}

	router, err := api.SetupRouter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up routes: %w", err)
	}

	a.Server = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	return a, nil
}

// initServices builds services in dependency order and registers them in
// the container: storage, then content, then the event hub, then the
// engines that publish through it.
func (a *App) initServices() error {
	container := di.GetContainer()
	container.Reset()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	a.store = store
	container.Register("storage", store)

	catalog, err := content.NewCatalogService(a.Config.ContentDir)
	if err != nil {
		return fmt.Errorf("failed to load content catalog: %w", err)
	}
	container.Register("catalog", catalog)

	hub := api.NewEventHub()
	container.Register("events", hub)

	relationships := services.NewRelationshipService(store, hub)
	container.Register("relationships", relationships)

	dialogues := services.NewDialogueService(catalog, relationships, hub)
	container.Register("dialogues", dialogues)

	progression := services.NewProgressionService(store, catalog, hub)
	container.Register("progression", progression)

	a.log.Infof("services initialized with %s storage backend", a.Config.StorageBackend)
	return nil
}

func (a *App) openStore() (storage.SnapshotStore, error) {
	switch a.Config.StorageBackend {
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := storage.NewRedisSnapshotStore(ctx, storage.RedisOptions{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open redis snapshot store: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewFileSnapshotStore(filepath.Join(a.Config.DataDir, "snapshots"))
		if err != nil {
			return nil, fmt.Errorf("failed to open file snapshot store: %w", err)
		}
		return store, nil
	}
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("listening on %s", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.log.Infof("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.Shutdown(ctx)
}

// Shutdown stops the HTTP server, saves a final snapshot and closes the
// store.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error

	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}

	container := di.GetContainer()
	if relationships, ok := container.Get("relationships").(*services.RelationshipService); ok {
		if err := relationships.Save(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if progression, ok := container.Get("progression").(*services.ProgressionService); ok {
		if err := progression.Save(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
