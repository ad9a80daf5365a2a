package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/mediapub/internal/flagx"
)

var valueFlags = []string{
	"-a", "-d", "-w", "-q", "-o", "-n", "-m", "-f", "-t", "-r", "-z",
	"-i", "-j", "-v", "-y", "-u", "-p", "-b", "-g", "-e", "-l", "-F",
}

var boolFlags = []string{"-x", "-k"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-w int      max PostgreSQL connections
//	-q int      connection acquire timeout, seconds
//	-o string   MongoDB URI
//	-n string   MongoDB database
//	-m string   MongoDB collection
//	-f string   storage root directory
//	-t int      session token validity, minutes
//	-r int      refresh token validity, minutes
//	-x bool     enforce session expiry (use -x=false to disable)
//	-k bool     revoke the old session on refresh
//	-z int      max upload size, MiB
//	-i string   Redis address for login throttling
//	-j string   Redis password
//	-v int      login attempts per window
//	-y int      login window, seconds
//	-u/-p/-b/-g/-e  S3 user, password, bucket, region, endpoint
//	-l string   log level
//	-F string   log format (json|text)
//
// Duration flags are accepted as integers and converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], valueFlags, boolFlags...)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	maxConns := fs.Int("w", int(config.DatabaseMaxConns), "max database connections")
	acquireTimeout := fs.Int("q", int(config.DatabaseAcquireTimeout.Seconds()), "database acquire timeout (in seconds)")

	fs.StringVar(&config.MongoURI, "o", config.MongoURI, "MongoDB URI")
	fs.StringVar(&config.MongoDatabase, "n", config.MongoDatabase, "MongoDB database")
	fs.StringVar(&config.MongoCollection, "m", config.MongoCollection, "MongoDB collection")
	fs.StringVar(&config.StorageRoot, "f", config.StorageRoot, "storage root directory")

	sessionTokenValidityDuration := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	fs.BoolVar(&config.EnforceSessionExpiry, "x", config.EnforceSessionExpiry, "reject expired sessions")
	fs.BoolVar(&config.RevokeOnRotate, "k", config.RevokeOnRotate, "revoke session on refresh")
	maxUpload := fs.Int64("z", config.MaxUploadBytes>>20, "max upload size (in MiB)")

	fs.StringVar(&config.RedisAddr, "i", config.RedisAddr, "Redis address")
	fs.StringVar(&config.RedisPassword, "j", config.RedisPassword, "Redis password")
	fs.IntVar(&config.LoginRateLimit, "v", config.LoginRateLimit, "login attempts per window")
	loginWindow := fs.Int("y", int(config.LoginRateWindow.Seconds()), "login window (in seconds)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "F", config.LogFormat, "log format")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.DatabaseMaxConns = int32(*maxConns)
	config.DatabaseAcquireTimeout = time.Duration(*acquireTimeout) * time.Second
	config.SessionTokenValidityDuration = time.Duration(*sessionTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.MaxUploadBytes = *maxUpload << 20
	config.LoginRateWindow = time.Duration(*loginWindow) * time.Second
}
