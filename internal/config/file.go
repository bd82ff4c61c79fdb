package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/baaskit/internal/flagx"
	"github.com/dmitrijs2005/baaskit/internal/timex"
)

// FileConfig is a DTO used for decoding config files. Pointer fields let an
// absent key keep the value from the previous stage.
type FileConfig struct {
	ApplicationID         *string         `json:"application_id" yaml:"application_id"`
	JavaScriptKey         *string         `json:"javascript_key" yaml:"javascript_key"`
	MasterKey             *string         `json:"master_key" yaml:"master_key"`
	ServerURL             *string         `json:"server_url" yaml:"server_url"`
	Version               *string         `json:"version" yaml:"version"`
	UseMasterKey          *bool           `json:"use_master_key" yaml:"use_master_key"`
	ForceRevocableSession *bool           `json:"force_revocable_session" yaml:"force_revocable_session"`
	EncryptedUser         *bool           `json:"encrypted_user" yaml:"encrypted_user"`
	EncryptionSecret      *string         `json:"encryption_secret" yaml:"encryption_secret"`
	Transport             *string         `json:"transport" yaml:"transport"`
	RequestTimeout        *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	GRPCEndpoint          *string         `json:"grpc_endpoint" yaml:"grpc_endpoint"`
	RateLimit             *float64        `json:"rate_limit" yaml:"rate_limit"`
	RateBurst             *int            `json:"rate_burst" yaml:"rate_burst"`
	Storage               *string         `json:"storage" yaml:"storage"`
	StorageDSN            *string         `json:"storage_dsn" yaml:"storage_dsn"`
	StorageCapacity       *int64          `json:"storage_capacity" yaml:"storage_capacity"`
	StorageTimeout        *timex.Duration `json:"storage_timeout" yaml:"storage_timeout"`
	RedisAddr             *string         `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword         *string         `json:"redis_password" yaml:"redis_password"`
	RedisDB               *int            `json:"redis_db" yaml:"redis_db"`
	Files                 *string         `json:"files" yaml:"files"`
	FilesDir              *string         `json:"files_dir" yaml:"files_dir"`
	S3Bucket              *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region              *string         `json:"s3_region" yaml:"s3_region"`
	S3Endpoint            *string         `json:"s3_endpoint" yaml:"s3_endpoint"`
	S3User                *string         `json:"s3_user" yaml:"s3_user"`
	S3Password            *string         `json:"s3_password" yaml:"s3_password"`
	LogLevel              *string         `json:"log_level" yaml:"log_level"`
	PrintMetrics          *bool           `json:"print_metrics" yaml:"print_metrics"`
}

// parseFile overlays cfg with values loaded from the file named by -c or
// -config. Files ending in .yaml or .yml are decoded as YAML, everything
// else as JSON. Without a config flag cfg is left untouched.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ApplicationID, fc.ApplicationID)
	setString(&cfg.JavaScriptKey, fc.JavaScriptKey)
	setString(&cfg.MasterKey, fc.MasterKey)
	setString(&cfg.ServerURL, fc.ServerURL)
	setString(&cfg.Version, fc.Version)
	setBool(&cfg.UseMasterKey, fc.UseMasterKey)
	setBool(&cfg.ForceRevocableSession, fc.ForceRevocableSession)
	setBool(&cfg.EncryptedUser, fc.EncryptedUser)
	setString(&cfg.EncryptionSecret, fc.EncryptionSecret)
	setString(&cfg.Transport, fc.Transport)
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	setString(&cfg.GRPCEndpoint, fc.GRPCEndpoint)
	if fc.RateLimit != nil {
		cfg.RateLimit = *fc.RateLimit
	}
	if fc.RateBurst != nil {
		cfg.RateBurst = *fc.RateBurst
	}
	setString(&cfg.Storage, fc.Storage)
	setString(&cfg.StorageDSN, fc.StorageDSN)
	if fc.StorageCapacity != nil {
		cfg.StorageCapacity = *fc.StorageCapacity
	}
	if fc.StorageTimeout != nil {
		cfg.StorageTimeout = fc.StorageTimeout.Duration
	}
	setString(&cfg.RedisAddr, fc.RedisAddr)
	setString(&cfg.RedisPassword, fc.RedisPassword)
	if fc.RedisDB != nil {
		cfg.RedisDB = *fc.RedisDB
	}
	setString(&cfg.Files, fc.Files)
	setString(&cfg.FilesDir, fc.FilesDir)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3Endpoint, fc.S3Endpoint)
	setString(&cfg.S3User, fc.S3User)
	setString(&cfg.S3Password, fc.S3Password)
	setString(&cfg.LogLevel, fc.LogLevel)
	setBool(&cfg.PrintMetrics, fc.PrintMetrics)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
