package models

import "time"

// Collection is one uploaded archive together with its reading progress.
type Collection struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	OriginalFilename string     `json:"originalFilename"`
	FileHash         string     `json:"fileHash"`
	FileSize         int64      `json:"fileSize"`
	TotalPages       int        `json:"totalPages"`
	PageFilenames    []string   `json:"pageFilenames"`
	Description      *string    `json:"description,omitempty"`
	Tags             []string   `json:"tags"`
	BucketName       string     `json:"bucketName"`
	KeyPrefix        string     `json:"keyPrefix"`
	ZipKey           string     `json:"zipKey"`
	ThumbnailKey     *string    `json:"thumbnailKey,omitempty"`
	UploadedAt       time.Time  `json:"uploadedAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	LastPageRead     int        `json:"lastPageRead"`
	LastReadAt       *time.Time `json:"lastReadAt,omitempty"`
}

// InProgress reports whether reading has started but not finished.
func (c *Collection) InProgress() bool {
	return c.LastPageRead > 0 && c.LastPageRead < c.TotalPages
}

// Finished reports whether the last page has been reached.
func (c *Collection) Finished() bool {
	return c.TotalPages > 0 && c.LastPageRead >= c.TotalPages
}

// PageImage is one extracted page.
type PageImage struct {
	Data        []byte
	ContentType string
	Filename    string
}

type ListMode string

const (
	ListAll        ListMode = "all"
	ListInProgress ListMode = "in-progress"
	ListRecent     ListMode = "recent"
)

// RecentLimit is the default page size of ListRecent.
const RecentLimit = 10

// ListFilter selects collections for listing. Query matches titles by
// case-insensitive substring; Limit <= 0 means unlimited.
type ListFilter struct {
	Query string
	Mode  ListMode
	Limit int
}

// CollectionMetadata is the sidecar document stored next to each archive.
// It carries enough to rebuild the catalog row.
type CollectionMetadata struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	OriginalFilename string    `json:"originalFilename"`
	FileHash         string    `json:"fileHash"`
	FileSize         int64     `json:"fileSize"`
	TotalPages       int       `json:"totalPages"`
	PageFilenames    []string  `json:"pageFilenames"`
	Description      *string   `json:"description,omitempty"`
	Tags             []string  `json:"tags"`
	ZipKey           string    `json:"zipKey"`
	ThumbnailKey     *string   `json:"thumbnailKey,omitempty"`
	UploadedAt       time.Time `json:"uploadedAt"`
}
