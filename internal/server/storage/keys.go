package storage

import (
	"strings"
)

// RootPrefix is the common prefix of every collection object.
const RootPrefix = "manga-collections/"

const metadataName = "metadata.json"

// KeyPrefix is the folder holding all objects of collection id.
func KeyPrefix(id string) string {
	return RootPrefix + id + "/"
}

// ArchiveKey is where the uploaded archive of collection id is stored. Only
// the base name of filename is used.
func ArchiveKey(id, filename string) string {
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		filename = filename[i+1:]
	}
	return KeyPrefix(id) + filename
}

// ThumbnailKey is where the cover image of collection id is stored.
func ThumbnailKey(id, ext string) string {
	return KeyPrefix(id) + "thumbnail." + strings.ToLower(ext)
}

// MetadataKey is where the registration sidecar of collection id is stored.
func MetadataKey(id string) string {
	return KeyPrefix(id) + metadataName
}

// IsMetadataKey reports whether key is a sidecar written by MetadataKey and
// returns the collection id it belongs to.
func IsMetadataKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, RootPrefix)
	if !ok {
		return "", false
	}
	id, name, ok := strings.Cut(rest, "/")
	if !ok || id == "" || name != metadataName {
		return "", false
	}
	return id, true
}
