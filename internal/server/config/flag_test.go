package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	base := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		return c
	}

	full := base()
	full.HTTPAddr = "127.0.0.1:9090"
	full.DatabaseDSN = "db"
	full.DatabaseMaxConns = 4
	full.DatabaseAcquireTimeout = 2 * time.Second
	full.MongoURI = "mongodb://m:27017"
	full.MongoDatabase = "media"
	full.MongoCollection = "docs"
	full.StorageRoot = "/srv/files"
	full.SessionTokenValidityDuration = 15 * time.Minute
	full.RefreshTokenValidityDuration = 60 * time.Minute
	full.EnforceSessionExpiry = false
	full.RevokeOnRotate = true
	full.MaxUploadBytes = 8 << 20
	full.RedisAddr = "redis:6379"
	full.RedisPassword = "rpass"
	full.LoginRateLimit = 3
	full.LoginRateWindow = 30 * time.Second
	full.S3RootUser = "user"
	full.S3RootPassword = "password"
	full.S3Bucket = "bucket"
	full.S3Region = "us-west-1"
	full.S3BaseEndpoint = "http://endpoint"
	full.LogLevel = "debug"
	full.LogFormat = "text"

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "db", "-w", "4", "-q", "2",
			"-o", "mongodb://m:27017", "-n", "media", "-m", "docs", "-f", "/srv/files",
			"-t", "15", "-r", "60", "-x=false", "-k", "-z", "8",
			"-i", "redis:6379", "-j", "rpass", "-v", "3", "-y", "30",
			"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			"-l", "debug", "-F", "text",
		}, expected: full},
		{name: "no flags keeps defaults", args: []string{"cmd"}, expected: base()},
		{name: "foreign flags ignored", args: []string{"cmd", "-c", "conf.json", "-test.v"}, expected: base()},
		{name: "bad int panics", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := base()

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
