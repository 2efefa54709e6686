package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/mangakeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l int      signed URL validity, minutes
//	-m int      max upload size, MiB
//	-t int      archive cache TTL, minutes (0 disables the cache)
//	-purge      delete objects together with the catalog row
//
// Only the flags listed above are taken from args (see flagx.FilterArgs),
// so the CLI can define its own flags next to these.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-u", "-p", "-b", "-g", "-e", "-l", "-m", "-t", "-purge"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	signedURLValidity := fs.Int("l", int(config.SignedURLValidity.Minutes()), "signed URL validity (in minutes)")
	maxUpload := fs.Int64("m", config.MaxUploadSize>>20, "max upload size (in MiB)")
	cacheTTL := fs.Int("t", int(config.ArchiveCacheTTL.Minutes()), "archive cache TTL (in minutes, 0 disables)")
	fs.BoolVar(&config.PurgeBlobsOnDelete, "purge", config.PurgeBlobsOnDelete, "delete stored objects with the collection")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Unit-converted flags only apply when given, so a "90s" from JSON
	// is not truncated to whole minutes.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "l":
			config.SignedURLValidity = time.Duration(*signedURLValidity) * time.Minute
		case "m":
			config.MaxUploadSize = *maxUpload << 20
		case "t":
			config.ArchiveCacheTTL = time.Duration(*cacheTTL) * time.Minute
		}
	})
}
