package admin

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/dmitrijs2005/mangakeeper/internal/logging"
	"github.com/dmitrijs2005/mangakeeper/internal/server"
	"github.com/dmitrijs2005/mangakeeper/internal/server/config"
	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
	"github.com/dmitrijs2005/mangakeeper/internal/server/services"
	"github.com/spf13/cobra"
)

// Backend is what the commands need from a wired server.
type Backend interface {
	List(ctx context.Context, f models.ListFilter) ([]*models.Collection, error)
	Verify(ctx context.Context, id string) (*services.VerifyReport, error)
	Resync(ctx context.Context) (*services.ResyncResult, error)
	Delete(ctx context.Context, id string) error
	Migrate(ctx context.Context) error
	Close() error
}

// Opener builds a Backend from configuration.
type Opener func(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, error)

type serverBackend struct {
	*services.CollectionService
	deps *server.Deps
}

func (b *serverBackend) Migrate(ctx context.Context) error { return b.deps.Migrate(ctx) }
func (b *serverBackend) Close() error                      { return b.deps.Close() }

// OpenServerBackend connects to the database and object storage named in cfg.
func OpenServerBackend(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, error) {
	deps, err := server.Wire(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &serverBackend{CollectionService: deps.Collections, deps: deps}, nil
}

type commandContext struct {
	configFlag *string
	verbose    *bool
	open       Opener

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.LoadFile(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(w io.Writer) logging.Logger {
	if c.verbose != nil && *c.verbose {
		return logging.NewJSONLogger(w, slog.LevelDebug)
	}
	return logging.Nop()
}

// withBackend opens a backend for the duration of fn. Logs go to the
// command's stderr.
func (c *commandContext) withBackend(cmd *cobra.Command, fn func(Backend) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	b, err := c.open(cmd.Context(), cfg, c.logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}
