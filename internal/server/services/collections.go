package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mangakeeper/internal/common"
	"github.com/dmitrijs2005/mangakeeper/internal/dbx"
	"github.com/dmitrijs2005/mangakeeper/internal/logging"
	sc "github.com/dmitrijs2005/mangakeeper/internal/server/config"
	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
	"github.com/dmitrijs2005/mangakeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mangakeeper/internal/server/storage"
	"github.com/google/uuid"
)

// BlobStore is the object storage used for archives, thumbnails and sidecars.
type BlobStore interface {
	Bucket() string
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Fetcher downloads a whole object from a presigned URL.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Thumbnailer turns a page image into a cover thumbnail.
type Thumbnailer interface {
	Render(src []byte) ([]byte, error)
}

// CollectionService implements registration, page extraction and the catalog
// operations on top of the repository manager and the blob store.
type CollectionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	store       BlobStore
	fetcher     Fetcher
	thumbs      Thumbnailer
	cache       *ArchiveCache
	logger      logging.Logger
	now         func() time.Time
}

// NewCollectionService builds the service; the archive cache is enabled when
// config.ArchiveCacheTTL is positive.
func NewCollectionService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config,
	store BlobStore, fetcher Fetcher, thumbs Thumbnailer, logger logging.Logger) *CollectionService {

	s := &CollectionService{
		db:          db,
		repomanager: repomanager,
		config:      config,
		store:       store,
		fetcher:     fetcher,
		thumbs:      thumbs,
		logger:      logger.With("module", "collections"),
		now:         time.Now,
	}
	if config.ArchiveCacheTTL > 0 {
		s.cache = NewArchiveCache(config.ArchiveCacheTTL, config.ArchiveCacheMaxBytes)
	}
	return s
}

// Get loads one collection. Unknown and malformed ids are both reported as
// common.ErrorNotFound.
func (s *CollectionService) Get(ctx context.Context, id string) (*models.Collection, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: collection %q", common.ErrorNotFound, id)
	}
	c, err := s.repomanager.Collections(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: collection %s", common.ErrorNotFound, id)
		}
		return nil, fmt.Errorf("load collection %s: %w", id, err)
	}
	return c, nil
}

func (s *CollectionService) List(ctx context.Context, f models.ListFilter) ([]*models.Collection, error) {
	switch f.Mode {
	case "", models.ListAll, models.ListInProgress, models.ListRecent:
	default:
		return nil, fmt.Errorf("%w: unknown list mode %q", common.ErrorValidation, f.Mode)
	}
	if f.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", common.ErrorValidation)
	}

	items, err := s.repomanager.Collections(s.db).List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	if items == nil {
		items = []*models.Collection{}
	}
	return items, nil
}

// UpdateProgress records page as the last page read. Page 0 means not
// started and TotalPages means finished; anything outside that range is
// rejected.
func (s *CollectionService) UpdateProgress(ctx context.Context, id string, page int) error {
	if page < 0 {
		return fmt.Errorf("%w: page number must not be negative", common.ErrorValidation)
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if page > c.TotalPages {
		return fmt.Errorf("%w: page %d is beyond the last page %d", common.ErrorValidation, page, c.TotalPages)
	}

	if err := s.repomanager.Collections(s.db).UpdateProgress(ctx, id, page, s.now().UTC()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: collection %s", common.ErrorNotFound, id)
		}
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Delete removes the catalog row. Stored objects are kept unless
// PurgeBlobsOnDelete is set, in which case they are removed best effort once
// the row is gone.
func (s *CollectionService) Delete(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Collections(tx).Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: collection %s", common.ErrorNotFound, id)
		}
		return fmt.Errorf("delete collection: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(id)
	}

	if s.config.PurgeBlobsOnDelete {
		keys := []string{c.ZipKey, storage.MetadataKey(id)}
		if c.ThumbnailKey != nil {
			keys = append(keys, *c.ThumbnailKey)
		}
		s.removeObjects(ctx, keys)
	}

	s.logger.Info(ctx, "collection deleted", "collection_id", id, "purged", s.config.PurgeBlobsOnDelete)
	return nil
}

// ThumbnailURL presigns the collection cover for SignedURLValidity.
func (s *CollectionService) ThumbnailURL(ctx context.Context, id string) (string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if c.ThumbnailKey == nil || *c.ThumbnailKey == "" {
		return "", fmt.Errorf("%w: collection %s has no thumbnail", common.ErrorNotFound, id)
	}

	url, err := s.store.PresignGet(ctx, *c.ThumbnailKey, s.config.SignedURLValidity)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorTransient, err)
	}
	return url, nil
}

// removeObjects deletes keys, logging failures. It keeps going after the
// caller's context is canceled.
func (s *CollectionService) removeObjects(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.DeleteObject(ctx, key); err != nil {
			s.logger.Warn(ctx, "failed to remove object", "key", key, "error", err)
		}
	}
}
