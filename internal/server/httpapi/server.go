// Package httpapi exposes the collection service over HTTP using fiber.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mangakeeper/internal/logging"
	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
	"github.com/dmitrijs2005/mangakeeper/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// multipartOverhead is added to the upload cap to leave room for form
// boundaries and the metadata field.
const multipartOverhead = 1 << 20

const shutdownTimeout = 10 * time.Second

// Collections is the part of services.CollectionService the handlers use.
type Collections interface {
	Register(ctx context.Context, in services.UploadInput, data []byte) (*models.Collection, error)
	List(ctx context.Context, f models.ListFilter) ([]*models.Collection, error)
	Get(ctx context.Context, id string) (*models.Collection, error)
	ExtractPage(ctx context.Context, id string, index int) (*models.PageImage, error)
	ThumbnailURL(ctx context.Context, id string) (string, error)
	UpdateProgress(ctx context.Context, id string, page int) error
	Delete(ctx context.Context, id string) error
	Resync(ctx context.Context) (*services.ResyncResult, error)
}

type Server struct {
	address       string
	app           *fiber.App
	collections   Collections
	logger        logging.Logger
	jwtSecret     []byte
	maxUploadSize int64
}

func NewServer(address string, l logging.Logger, cs Collections, secretKey string, maxUploadSize int64) *Server {
	s := &Server{
		address:       address,
		collections:   cs,
		logger:        l.With("module", "http_server"),
		jwtSecret:     []byte(secretKey),
		maxUploadSize: maxUploadSize,
	}

	s.app = fiber.New(fiber.Config{
		BodyLimit:             int(maxUploadSize + multipartOverhead),
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)
	s.routes()

	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)

	api := s.app.Group("/api")

	col := api.Group("/collections")
	col.Post("/", s.upload)
	col.Get("/", s.list)
	col.Get("/:id", s.get)
	col.Get("/:id/pages/:index", s.page)
	col.Get("/:id/thumbnail", s.thumbnail)
	col.Put("/:id/progress", s.progress)
	col.Delete("/:id", s.requireAdmin, s.remove)

	admin := api.Group("/admin", s.requireAdmin)
	admin.Post("/resync", s.resync)
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- s.app.Listen(s.address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	return s.app.ShutdownWithContext(shutdownCtx)
}
