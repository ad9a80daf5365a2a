package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mediapub/internal/flagx"
	"github.com/dmitrijs2005/mediapub/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "30m" and integer nanoseconds are accepted.
// Pointer fields distinguish "absent" from an explicit zero/false.
type JsonConfig struct {
	HTTPAddr                     string          `json:"http_addr"`
	DatabaseDSN                  string          `json:"database_dsn"`
	DatabaseMaxConns             int32           `json:"database_max_conns"`
	DatabaseAcquireTimeout       *timex.Duration `json:"database_acquire_timeout"`
	MongoURI                     string          `json:"mongo_uri"`
	MongoDatabase                string          `json:"mongo_database"`
	MongoCollection              string          `json:"mongo_collection"`
	StorageRoot                  string          `json:"storage_root"`
	SessionTokenValidityDuration *timex.Duration `json:"session_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	EnforceSessionExpiry         *bool           `json:"enforce_session_expiry"`
	RevokeOnRotate               *bool           `json:"revoke_on_rotate"`
	MaxUploadBytes               int64           `json:"max_upload_bytes"`
	RedisAddr                    string          `json:"redis_addr"`
	RedisPassword                string          `json:"redis_password"`
	LoginRateLimit               *int            `json:"login_rate_limit"`
	LoginRateWindow              *timex.Duration `json:"login_rate_window"`
	S3RootUser                   string          `json:"s3_root_user"`
	S3RootPassword               string          `json:"s3_root_password"`
	S3Bucket                     string          `json:"s3_bucket"`
	S3Region                     string          `json:"s3_region"`
	S3BaseEndpoint               string          `json:"s3_base_endpoint"`
	LogLevel                     string          `json:"log_level"`
	LogFormat                    string          `json:"log_format"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Keys missing from the file leave the current value untouched.
// An unreadable file or invalid JSON panics, matching parseFlags.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.DatabaseMaxConns > 0 {
		config.DatabaseMaxConns = c.DatabaseMaxConns
	}
	if c.DatabaseAcquireTimeout != nil {
		config.DatabaseAcquireTimeout = c.DatabaseAcquireTimeout.Duration
	}
	setString(&config.MongoURI, c.MongoURI)
	setString(&config.MongoDatabase, c.MongoDatabase)
	setString(&config.MongoCollection, c.MongoCollection)
	setString(&config.StorageRoot, c.StorageRoot)
	if c.SessionTokenValidityDuration != nil {
		config.SessionTokenValidityDuration = c.SessionTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.EnforceSessionExpiry != nil {
		config.EnforceSessionExpiry = *c.EnforceSessionExpiry
	}
	if c.RevokeOnRotate != nil {
		config.RevokeOnRotate = *c.RevokeOnRotate
	}
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.LoginRateLimit != nil {
		config.LoginRateLimit = *c.LoginRateLimit
	}
	if c.LoginRateWindow != nil {
		config.LoginRateWindow = c.LoginRateWindow.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
