package config

import (
	"strconv"
	"time"
)

// Environment variable names. The AWS_* names match what the AWS tooling
// already exports so existing deployments keep working.
const (
	EnvAddr           = "MANGAKEEPER_ADDR"
	EnvDatabaseDSN    = "DATABASE_DSN"
	EnvSecretKey      = "SECRET_KEY"
	EnvS3User         = "AWS_ACCESS_KEY_ID"
	EnvS3Password     = "AWS_SECRET_ACCESS_KEY"
	EnvS3Bucket       = "S3_BUCKET_NAME"
	EnvS3Region       = "AWS_REGION"
	EnvS3Endpoint     = "S3_ENDPOINT"
	EnvSignedURLTTL   = "SIGNED_URL_VALIDITY"
	EnvMaxUploadSize  = "MAX_UPLOAD_SIZE"
	EnvArchiveCache   = "ARCHIVE_CACHE_TTL"
	EnvPurgeOnDelete  = "PURGE_BLOBS_ON_DELETE"
	EnvThumbnailWidth = "THUMBNAIL_WIDTH"
)

// parseEnv overlays values from the environment. Malformed numeric values
// are ignored and the previous value is kept.
func parseEnv(config *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvAddr, &config.EndpointAddrHTTP)
	str(EnvDatabaseDSN, &config.DatabaseDSN)
	str(EnvSecretKey, &config.SecretKey)
	str(EnvS3User, &config.S3RootUser)
	str(EnvS3Password, &config.S3RootPassword)
	str(EnvS3Bucket, &config.S3Bucket)
	str(EnvS3Region, &config.S3Region)
	str(EnvS3Endpoint, &config.S3BaseEndpoint)

	if v, ok := lookup(EnvSignedURLTTL); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.SignedURLValidity = d
		}
	}
	if v, ok := lookup(EnvArchiveCache); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.ArchiveCacheTTL = d
		}
	}
	if v, ok := lookup(EnvMaxUploadSize); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MaxUploadSize = n
		}
	}
	if v, ok := lookup(EnvThumbnailWidth); ok {
		if n, err := strconv.Atoi(v); err == nil {
			config.ThumbnailWidth = n
		}
	}
	if v, ok := lookup(EnvPurgeOnDelete); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			config.PurgeBlobsOnDelete = b
		}
	}
}
