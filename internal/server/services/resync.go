package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mangakeeper/internal/common"
	"github.com/dmitrijs2005/mangakeeper/internal/dbx"
	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
	"github.com/dmitrijs2005/mangakeeper/internal/server/storage"
	"github.com/google/uuid"
)

// ResyncResult counts what Resync did with each sidecar it found.
type ResyncResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// DecodeCollectionMetadata strictly parses a sidecar and checks that it
// describes a usable collection.
func DecodeCollectionMetadata(raw []byte) (*models.CollectionMetadata, error) {
	var m models.CollectionMetadata
	if err := decodeStrict(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: sidecar: %w", common.ErrorValidation, err)
	}

	switch {
	case uuid.Validate(m.ID) != nil:
		return nil, fmt.Errorf("%w: sidecar id %q", common.ErrorValidation, m.ID)
	case strings.TrimSpace(m.Title) == "":
		return nil, fmt.Errorf("%w: sidecar title is empty", common.ErrorValidation)
	case !isSHA256Hex(m.FileHash):
		return nil, fmt.Errorf("%w: sidecar file hash %q", common.ErrorValidation, m.FileHash)
	case m.TotalPages <= 0 || m.TotalPages != len(m.PageFilenames):
		return nil, fmt.Errorf("%w: sidecar has %d pages but %d names", common.ErrorValidation, m.TotalPages, len(m.PageFilenames))
	case !strings.HasPrefix(m.ZipKey, storage.KeyPrefix(m.ID)):
		return nil, fmt.Errorf("%w: sidecar archive key %q", common.ErrorValidation, m.ZipKey)
	case m.ThumbnailKey != nil && !strings.HasPrefix(*m.ThumbnailKey, storage.KeyPrefix(m.ID)):
		return nil, fmt.Errorf("%w: sidecar thumbnail key %q", common.ErrorValidation, *m.ThumbnailKey)
	}
	return &m, nil
}

func isSHA256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Resync recreates catalog rows from the sidecars in the blob store.
// Collections already known by id or hash are skipped; bad sidecars are
// counted and logged.
func (s *CollectionService) Resync(ctx context.Context) (*ResyncResult, error) {
	if s.store == nil || s.store.Bucket() == "" {
		return nil, common.ErrorStorageMisconfigured
	}

	keys, err := s.store.ListKeys(ctx, storage.RootPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list objects: %w", common.ErrorTransient, err)
	}

	res := &ResyncResult{}
	for _, key := range keys {
		id, ok := storage.IsMetadataKey(key)
		if !ok {
			continue
		}

		created, err := s.resyncOne(ctx, id, key)
		switch {
		case err != nil:
			res.Failed++
			s.logger.Warn(ctx, "resync failed", "key", key, "error", err)
		case created:
			res.Created++
		default:
			res.Skipped++
		}
	}

	s.logger.Info(ctx, "resync finished", "created", res.Created, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

func (s *CollectionService) resyncOne(ctx context.Context, id, key string) (bool, error) {
	repo := s.repomanager.Collections(s.db)

	if _, err := repo.GetByID(ctx, id); err == nil {
		return false, nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}

	raw, err := s.store.GetObject(ctx, key)
	if err != nil {
		return false, err
	}
	m, err := DecodeCollectionMetadata(raw)
	if err != nil {
		return false, err
	}
	if m.ID != id {
		return false, fmt.Errorf("%w: sidecar id %s stored under %s", common.ErrorValidation, m.ID, id)
	}

	if _, err := repo.GetByHash(ctx, m.FileHash); err == nil {
		return false, nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}

	now := s.now().UTC()
	uploaded := m.UploadedAt
	if uploaded.IsZero() {
		uploaded = now
	}
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	c := &models.Collection{
		ID:               m.ID,
		Title:            m.Title,
		OriginalFilename: m.OriginalFilename,
		FileHash:         m.FileHash,
		FileSize:         m.FileSize,
		TotalPages:       m.TotalPages,
		PageFilenames:    m.PageFilenames,
		Description:      m.Description,
		Tags:             tags,
		BucketName:       s.store.Bucket(),
		KeyPrefix:        storage.KeyPrefix(m.ID),
		ZipKey:           m.ZipKey,
		ThumbnailKey:     m.ThumbnailKey,
		UploadedAt:       uploaded,
		UpdatedAt:        now,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Collections(tx).Create(ctx, c)
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
