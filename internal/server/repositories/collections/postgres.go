// Package collections provides the PostgreSQL-backed catalog of manga
// collections.
package collections

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/mangakeeper/internal/common"
	"github.com/dmitrijs2005/mangakeeper/internal/dbx"
	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
)

// HashConstraint is the unique constraint guarding one collection per hash.
const HashConstraint = "manga_collections_file_hash_key"

const selectColumns = `SELECT id, title, original_filename, file_hash, file_size, total_pages,
	page_filenames, description, tags, bucket_name, key_prefix, zip_key, thumbnail_key,
	uploaded_at, updated_at, last_page_read, last_read_at
	FROM manga_collections`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts c. A second collection with the same file hash fails with
// common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Collection) error {
	pages, err := json.Marshal(c.PageFilenames)
	if err != nil {
		return fmt.Errorf("encode page filenames: %w", err)
	}
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	query := `
		INSERT INTO manga_collections (id, title, original_filename, file_hash, file_size, total_pages,
			page_filenames, description, tags, bucket_name, key_prefix, zip_key, thumbnail_key,
			uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.Title, c.OriginalFilename, c.FileHash, c.FileSize, c.TotalPages,
		string(pages), c.Description, string(tagsJSON), c.BucketName, c.KeyPrefix, c.ZipKey, c.ThumbnailKey,
		c.UploadedAt, c.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, HashConstraint) {
			return fmt.Errorf("%w: file hash %s", common.ErrorAlreadyExists, c.FileHash)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByHash(ctx context.Context, hash string) (*models.Collection, error) {
	return r.getOne(ctx, selectColumns+` WHERE file_hash = $1`, hash)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Collection, error) {
	c, err := scanCollection(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// List returns the collections matching f. The mode decides both the filter
// and the order; ListRecent defaults to models.RecentLimit rows.
func (r *PostgresRepository) List(ctx context.Context, f models.ListFilter) ([]*models.Collection, error) {
	var (
		where []string
		args  []any
		order string
	)

	limit := f.Limit
	switch f.Mode {
	case models.ListInProgress:
		where = append(where, "last_page_read > 0", "last_page_read < total_pages")
		order = "last_read_at DESC NULLS LAST, uploaded_at DESC"
	case models.ListRecent:
		where = append(where, "last_read_at IS NOT NULL")
		order = "last_read_at DESC"
		if limit <= 0 {
			limit = models.RecentLimit
		}
	case models.ListAll, "":
		order = "uploaded_at DESC"
	default:
		return nil, fmt.Errorf("%w: unknown list mode %q", common.ErrorValidation, f.Mode)
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, q)
		where = append(where, fmt.Sprintf("position(lower($%d) in lower(title)) > 0", len(args)))
	}

	var sb strings.Builder
	sb.WriteString(selectColumns)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(order)
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// UpdateProgress stores page as the last page read at the given time.
func (r *PostgresRepository) UpdateProgress(ctx context.Context, id string, page int, at time.Time) error {
	query := `
		UPDATE manga_collections
		SET last_page_read = $2, last_read_at = $3, updated_at = $3
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, page, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM manga_collections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCollection(s scanner) (*models.Collection, error) {
	var (
		c            models.Collection
		pages, tags  []byte
		description  sql.NullString
		thumbnailKey sql.NullString
		lastReadAt   sql.NullTime
	)
	err := s.Scan(
		&c.ID, &c.Title, &c.OriginalFilename, &c.FileHash, &c.FileSize, &c.TotalPages,
		&pages, &description, &tags, &c.BucketName, &c.KeyPrefix, &c.ZipKey, &thumbnailKey,
		&c.UploadedAt, &c.UpdatedAt, &c.LastPageRead, &lastReadAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(pages, &c.PageFilenames); err != nil {
		return nil, fmt.Errorf("decode page filenames of %s: %w", c.ID, err)
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &c.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %s: %w", c.ID, err)
		}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if description.Valid {
		c.Description = &description.String
	}
	if thumbnailKey.Valid {
		c.ThumbnailKey = &thumbnailKey.String
	}
	if lastReadAt.Valid {
		t := lastReadAt.Time
		c.LastReadAt = &t
	}
	return &c, nil
}
