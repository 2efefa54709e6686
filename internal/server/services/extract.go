package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/mangakeeper/internal/archive"
	"github.com/dmitrijs2005/mangakeeper/internal/common"
	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
)

// ExtractPage returns page index of the collection. The archive is fetched
// in full through a presigned URL and re-indexed; only the requested member
// is decompressed.
func (s *CollectionService) ExtractPage(ctx context.Context, id string, index int) (*models.PageImage, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ZipKey == "" {
		return nil, fmt.Errorf("%w: collection %s has no archive", common.ErrorNotFound, id)
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: page %d", common.ErrorNotFound, index)
	}

	ix, err := s.loadIndex(ctx, c)
	if err != nil {
		return nil, err
	}

	page, err := ix.Page(index)
	if err != nil {
		if errors.Is(err, archive.ErrPageOutOfRange) {
			return nil, fmt.Errorf("%w: %w", common.ErrorNotFound, err)
		}
		return nil, err
	}
	s.checkConsistency(ctx, c, ix, index, page)

	data, err := page.Read()
	if err != nil {
		s.logger.Error(ctx, "page cannot be decompressed",
			"collection_id", id, "page", index, "size", page.Size(), "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrorCorrupted, err)
	}

	return &models.PageImage{
		Data:        data,
		ContentType: page.ContentType(),
		Filename:    page.BaseName(),
	}, nil
}

// checkConsistency compares the regenerated index with the catalog. The
// archive wins; a mismatch is only logged.
func (s *CollectionService) checkConsistency(ctx context.Context, c *models.Collection, ix *archive.Index, index int, page archive.Page) {
	if ix.Len() != c.TotalPages {
		s.logger.Warn(ctx, "stored page count differs from archive",
			"collection_id", c.ID, "stored", c.TotalPages, "archive", ix.Len())
	}
	if index < len(c.PageFilenames) && c.PageFilenames[index] != page.BaseName() {
		s.logger.Warn(ctx, "stored page name differs from archive",
			"collection_id", c.ID, "page", index, "stored", c.PageFilenames[index], "archive", page.BaseName())
	}
}

func (s *CollectionService) loadIndex(ctx context.Context, c *models.Collection) (*archive.Index, error) {
	data, err := s.fetchArchive(ctx, c)
	if err != nil {
		return nil, err
	}

	ix, err := archive.Open(data)
	if err != nil {
		s.logger.Error(ctx, "stored archive cannot be parsed", "collection_id", c.ID, "key", c.ZipKey, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrorCorrupted, err)
	}
	return ix, nil
}

func (s *CollectionService) fetchArchive(ctx context.Context, c *models.Collection) ([]byte, error) {
	load := func(ctx context.Context) ([]byte, error) {
		url, err := s.store.PresignGet(ctx, c.ZipKey, s.config.SignedURLValidity)
		if err != nil {
			return nil, fmt.Errorf("%w: presign archive: %w", common.ErrorTransient, err)
		}
		data, err := s.fetcher.Get(ctx, url)
		if err != nil {
			if errors.Is(err, common.ErrorTransient) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: download archive: %w", common.ErrorTransient, err)
		}
		return data, nil
	}

	if s.cache != nil {
		return s.cache.Get(ctx, c.ID, load)
	}
	return load(ctx)
}

// VerifyReport compares a catalog row with its stored archive.
type VerifyReport struct {
	ID            string `json:"id"`
	StoredPages   int    `json:"storedPages"`
	ArchivePages  int    `json:"archivePages"`
	NamesMatch    bool   `json:"namesMatch"`
	MismatchFirst int    `json:"mismatchFirst"`
}

// Consistent reports whether the archive still yields the stored page list.
func (r VerifyReport) Consistent() bool {
	return r.StoredPages == r.ArchivePages && r.NamesMatch
}

// Verify re-indexes the stored archive of id. MismatchFirst is the first
// page whose name differs, or -1.
func (s *CollectionService) Verify(ctx context.Context, id string) (*VerifyReport, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ZipKey == "" {
		return nil, fmt.Errorf("%w: collection %s has no archive", common.ErrorNotFound, id)
	}

	ix, err := s.loadIndex(ctx, c)
	if err != nil {
		return nil, err
	}

	names := ix.Filenames()
	r := &VerifyReport{
		ID:            id,
		StoredPages:   c.TotalPages,
		ArchivePages:  ix.Len(),
		NamesMatch:    slices.Equal(names, c.PageFilenames),
		MismatchFirst: -1,
	}
	for i := 0; i < max(len(names), len(c.PageFilenames)); i++ {
		if i >= len(names) || i >= len(c.PageFilenames) || names[i] != c.PageFilenames[i] {
			r.MismatchFirst = i
			break
		}
	}
	return r, nil
}
