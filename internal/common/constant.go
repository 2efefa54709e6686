package common

const (
	// AuthorizationHeaderName carries admin bearer tokens.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token in AuthorizationHeaderName.
	BearerPrefix = "Bearer "

	// ArchiveContentType is stored on uploaded archive objects.
	ArchiveContentType = "application/zip"
)
