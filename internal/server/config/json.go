package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/mangakeeper/internal/flagx"
	"github.com/dmitrijs2005/mangakeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "5m" and integer nanoseconds are accepted.
// Pointer fields distinguish "absent" from a zero value.
type JsonConfig struct {
	EndpointAddrHTTP     string          `json:"endpoint_addr_http"`
	DatabaseDSN          string          `json:"database_dsn"`
	SecretKey            string          `json:"secret_key"`
	S3RootUser           string          `json:"s3_root_user"`
	S3RootPassword       string          `json:"s3_root_password"`
	S3Bucket             string          `json:"s3_bucket"`
	S3Region             string          `json:"s3_region"`
	S3BaseEndpoint       string          `json:"s3_base_endpoint"`
	SignedURLValidity    *timex.Duration `json:"signed_url_validity"`
	MaxUploadSize        *int64          `json:"max_upload_size"`
	ThumbnailWidth       *int            `json:"thumbnail_width"`
	ArchiveCacheTTL      *timex.Duration `json:"archive_cache_ttl"`
	ArchiveCacheMaxBytes *int64          `json:"archive_cache_max_bytes"`
	PurgeBlobsOnDelete   *bool           `json:"purge_blobs_on_delete"`
	AdminTokenValidity   *timex.Duration `json:"admin_token_validity"`
}

// parseJson loads the file named by -c/-config (if any) and copies every
// field present in it over config. An unreadable file or invalid JSON panics:
// a config the operator asked for must not be silently ignored.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}
	if err := applyJSONFile(config, path); err != nil {
		panic(err)
	}
}

func applyJSONFile(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.SignedURLValidity != nil {
		config.SignedURLValidity = c.SignedURLValidity.Duration
	}
	if c.MaxUploadSize != nil {
		config.MaxUploadSize = *c.MaxUploadSize
	}
	if c.ThumbnailWidth != nil {
		config.ThumbnailWidth = *c.ThumbnailWidth
	}
	if c.ArchiveCacheTTL != nil {
		config.ArchiveCacheTTL = c.ArchiveCacheTTL.Duration
	}
	if c.ArchiveCacheMaxBytes != nil {
		config.ArchiveCacheMaxBytes = *c.ArchiveCacheMaxBytes
	}
	if c.PurgeBlobsOnDelete != nil {
		config.PurgeBlobsOnDelete = *c.PurgeBlobsOnDelete
	}
	if c.AdminTokenValidity != nil {
		config.AdminTokenValidity = c.AdminTokenValidity.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
