// Package admin implements the mangakeeper operator CLI: listing and
// verifying collections, resyncing the catalog from object storage,
// running migrations and minting admin tokens.
package admin
