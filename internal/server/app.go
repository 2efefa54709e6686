// Package server wires the catalog database, object storage and collection
// service together and runs the HTTP API until the process is signaled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/mangakeeper/internal/logging"
	"github.com/dmitrijs2005/mangakeeper/internal/netx"
	"github.com/dmitrijs2005/mangakeeper/internal/server/config"
	"github.com/dmitrijs2005/mangakeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/mangakeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mangakeeper/internal/server/services"
	"github.com/dmitrijs2005/mangakeeper/internal/server/storage"
	"github.com/dmitrijs2005/mangakeeper/internal/thumbnail"
)

// Seams for tests.
var (
	openDB   = repomanager.Open
	newStore = func(ctx context.Context, opts storage.Options) (services.BlobStore, error) {
		return storage.New(ctx, opts)
	}
)

// Deps are the long-lived resources shared by the server and the CLI.
type Deps struct {
	DB          *sql.DB
	Repos       repomanager.RepositoryManager
	Collections *services.CollectionService
}

// Wire opens the database and builds the collection service. Migrations are
// not applied.
func Wire(ctx context.Context, c *config.Config, logger logging.Logger) (*Deps, error) {
	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, err := newStore(ctx, storage.Options{
		Region:    c.S3Region,
		AccessKey: c.S3RootUser,
		SecretKey: c.S3RootPassword,
		Endpoint:  c.S3BaseEndpoint,
		Bucket:    c.S3Bucket,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	fetcher := netx.NewDownloader(c.SignedURLValidity, c.MaxUploadSize)
	thumbs := thumbnail.NewRenderer(c.ThumbnailWidth)

	cs := services.NewCollectionService(db, rm, c, store, fetcher, thumbs, logger)

	return &Deps{DB: db, Repos: rm, Collections: cs}, nil
}

// Migrate applies the embedded schema migrations.
func (d *Deps) Migrate(ctx context.Context) error {
	return d.Repos.RunMigrations(ctx, d.DB)
}

func (d *Deps) Close() error {
	return d.DB.Close()
}

type App struct {
	config *config.Config
	logger logging.Logger
	deps   *Deps
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	deps, err := Wire(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	if err := deps.Migrate(ctx); err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	return &App{config: c, logger: logger, deps: deps}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until a termination signal arrives or the server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.deps.Collections,
		app.config.SecretKey, app.config.MaxUploadSize)

	err := s.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, err.Error())
	}

	if cerr := app.deps.Close(); cerr != nil {
		app.logger.Error(ctx, "close database", "error", cerr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
