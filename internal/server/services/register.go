package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/mangakeeper/internal/archive"
	"github.com/dmitrijs2005/mangakeeper/internal/common"
	"github.com/dmitrijs2005/mangakeeper/internal/dbx"
	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
	"github.com/dmitrijs2005/mangakeeper/internal/server/storage"
	"github.com/dmitrijs2005/mangakeeper/internal/thumbnail"
	"github.com/google/uuid"
)

const (
	maxTitleLen       = 255
	maxDescriptionLen = 4096
	maxTags           = 32
	maxTagLen         = 64
)

// UploadInput describes one archive upload. Title defaults to the file name
// without its .zip suffix.
type UploadInput struct {
	Filename    string
	Title       string
	Description *string
	Tags        []string
}

// UploadMetadata is the optional JSON document accompanying an upload.
type UploadMetadata struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// DecodeUploadMetadata parses raw as a single UploadMetadata object. Unknown
// fields, trailing data and anything that is not an object are rejected with
// common.ErrorValidation. Empty input yields zero metadata.
func DecodeUploadMetadata(raw []byte) (UploadMetadata, error) {
	var m UploadMetadata
	if len(bytes.TrimSpace(raw)) == 0 {
		return m, nil
	}
	if err := decodeStrict(raw, &m); err != nil {
		return UploadMetadata{}, fmt.Errorf("%w: metadata: %w", common.ErrorValidation, err)
	}
	return m, nil
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

// Apply copies the present metadata fields into in.
func (m UploadMetadata) Apply(in *UploadInput) {
	if m.Title != nil {
		in.Title = *m.Title
	}
	if m.Description != nil {
		in.Description = m.Description
	}
	if m.Tags != nil {
		in.Tags = m.Tags
	}
}

// ThumbnailResult reports the outcome of the best-effort cover upload:
// either Key is set or SkipReason says why there is no thumbnail.
type ThumbnailResult struct {
	Key        string
	SkipReason string
}

// Produced reports whether a thumbnail object was written.
func (r ThumbnailResult) Produced() bool { return r.Key != "" }

// DefaultTitle strips a trailing ".zip" (any case) from filename.
func DefaultTitle(filename string) string {
	if strings.HasSuffix(strings.ToLower(filename), ".zip") {
		return filename[:len(filename)-len(".zip")]
	}
	return filename
}

func (s *CollectionService) normalizeUpload(in UploadInput, data []byte) (UploadInput, error) {
	in.Filename = strings.TrimSpace(in.Filename)
	if i := strings.LastIndexAny(in.Filename, `/\`); i >= 0 {
		in.Filename = in.Filename[i+1:]
	}
	if in.Filename == "" {
		return in, fmt.Errorf("%w: file name is required", common.ErrorValidation)
	}
	if !strings.HasSuffix(strings.ToLower(in.Filename), ".zip") {
		return in, fmt.Errorf("%w: %q does not have a .zip extension", common.ErrorNotArchive, in.Filename)
	}
	if len(data) == 0 {
		return in, fmt.Errorf("%w: file is empty", common.ErrorValidation)
	}
	if s.config.MaxUploadSize > 0 && int64(len(data)) > s.config.MaxUploadSize {
		return in, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", common.ErrorTooLarge, len(data), s.config.MaxUploadSize)
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		in.Title = DefaultTitle(in.Filename)
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLen {
		return in, fmt.Errorf("%w: title longer than %d characters", common.ErrorValidation, maxTitleLen)
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > maxDescriptionLen {
		return in, fmt.Errorf("%w: description longer than %d characters", common.ErrorValidation, maxDescriptionLen)
	}

	if len(in.Tags) > maxTags {
		return in, fmt.Errorf("%w: more than %d tags", common.ErrorValidation, maxTags)
	}
	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		t = strings.TrimSpace(t)
		if t == "" {
			return in, fmt.Errorf("%w: empty tag", common.ErrorValidation)
		}
		if utf8.RuneCountInString(t) > maxTagLen {
			return in, fmt.Errorf("%w: tag longer than %d characters", common.ErrorValidation, maxTagLen)
		}
		tags = append(tags, t)
	}
	in.Tags = tags
	return in, nil
}

// Register stores a new collection. Duplicate and empty archives are
// rejected before anything is written to the blob store; the catalog insert
// is the last step and the point where the collection becomes visible.
func (s *CollectionService) Register(ctx context.Context, in UploadInput, data []byte) (*models.Collection, error) {
	in, err := s.normalizeUpload(in, data)
	if err != nil {
		return nil, err
	}
	if s.store == nil || s.store.Bucket() == "" {
		return nil, common.ErrorStorageMisconfigured
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.repomanager.Collections(s.db).GetByHash(ctx, hash)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: archive already uploaded as %s", common.ErrorAlreadyExists, existing.ID)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("lookup file hash: %w", err)
	}

	ix, err := archive.Open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorNotArchive, err)
	}
	if ix.Len() == 0 {
		return nil, common.ErrorNoImages
	}

	id := uuid.NewString()
	log := s.logger.With("collection_id", id)

	zipKey := storage.ArchiveKey(id, in.Filename)
	if err := s.store.PutObject(ctx, zipKey, data, common.ArchiveContentType); err != nil {
		return nil, fmt.Errorf("%w: store archive: %w", common.ErrorTransient, err)
	}
	written := []string{zipKey}

	thumb := s.storeThumbnail(ctx, id, ix)
	if thumb.Produced() {
		written = append(written, thumb.Key)
	} else {
		log.Warn(ctx, "thumbnail skipped", "reason", thumb.SkipReason)
	}

	now := s.now().UTC()
	c := &models.Collection{
		ID:               id,
		Title:            in.Title,
		OriginalFilename: in.Filename,
		FileHash:         hash,
		FileSize:         int64(len(data)),
		TotalPages:       ix.Len(),
		PageFilenames:    ix.Filenames(),
		Description:      in.Description,
		Tags:             in.Tags,
		BucketName:       s.store.Bucket(),
		KeyPrefix:        storage.KeyPrefix(id),
		ZipKey:           zipKey,
		UploadedAt:       now,
		UpdatedAt:        now,
	}
	if thumb.Produced() {
		key := thumb.Key
		c.ThumbnailKey = &key
	}

	if key, err := s.storeSidecar(ctx, c); err != nil {
		log.Warn(ctx, "metadata sidecar not stored", "error", err)
	} else {
		written = append(written, key)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Collections(tx).Create(ctx, c)
	})
	if err != nil {
		s.removeObjects(ctx, written)
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("save collection: %w", err)
	}

	log.Info(ctx, "collection registered",
		"title", c.Title, "pages", c.TotalPages, "size", c.FileSize, "skipped_members", len(ix.Skipped()))
	return c, nil
}

// storeThumbnail uploads a cover made from page 0. A page that cannot be
// decoded is stored as is. Failures never propagate.
func (s *CollectionService) storeThumbnail(ctx context.Context, id string, ix *archive.Index) ThumbnailResult {
	first, err := ix.Page(0)
	if err != nil {
		return ThumbnailResult{SkipReason: err.Error()}
	}
	raw, err := first.Read()
	if err != nil {
		return ThumbnailResult{SkipReason: "read first page: " + err.Error()}
	}

	data, contentType, ext := raw, first.ContentType(), archive.Extension(first.Name)
	if s.thumbs != nil {
		if out, err := s.thumbs.Render(raw); err == nil {
			data, contentType, ext = out, thumbnail.ContentType, thumbnail.Ext
		} else {
			s.logger.Debug(ctx, "storing first page as thumbnail", "collection_id", id, "error", err)
		}
	}

	key := storage.ThumbnailKey(id, ext)
	if err := s.store.PutObject(ctx, key, data, contentType); err != nil {
		return ThumbnailResult{SkipReason: "upload thumbnail: " + err.Error()}
	}
	return ThumbnailResult{Key: key}
}

func (s *CollectionService) storeSidecar(ctx context.Context, c *models.Collection) (string, error) {
	meta := models.CollectionMetadata{
		ID:               c.ID,
		Title:            c.Title,
		OriginalFilename: c.OriginalFilename,
		FileHash:         c.FileHash,
		FileSize:         c.FileSize,
		TotalPages:       c.TotalPages,
		PageFilenames:    c.PageFilenames,
		Description:      c.Description,
		Tags:             c.Tags,
		ZipKey:           c.ZipKey,
		ThumbnailKey:     c.ThumbnailKey,
		UploadedAt:       c.UploadedAt,
	}
	body, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	key := storage.MetadataKey(c.ID)
	if err := s.store.PutObject(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}
