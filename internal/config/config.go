package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/dmitrijs2005/baaskit/internal/common"
)

// Config holds runtime settings shared by the request pipeline, the file
// pipeline and the adapters bound at startup.
//
// Identity fields (ApplicationID, JavaScriptKey, MasterKey, Version) are
// injected into every outgoing payload. UseMasterKey and
// ForceRevocableSession are process-wide defaults that individual requests
// may override.
type Config struct {
	ApplicationID         string
	JavaScriptKey         string
	MasterKey             string
	ServerURL             string
	Version               string
	UseMasterKey          bool
	ForceRevocableSession bool

	EncryptedUser    bool
	EncryptionSecret string

	Transport      string
	RequestTimeout time.Duration
	GRPCEndpoint   string
	RateLimit      float64
	RateBurst      int

	Storage         string
	StorageDSN      string
	StorageCapacity int64
	StorageTimeout  time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	Files      string
	FilesDir   string
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3User     string
	S3Password string

	LogLevel     string
	PrintMetrics bool
}

// LoadDefaults populates c with values suitable for a local development
// server.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:1337/parse"
	c.Version = "0.1.0"
	c.Transport = "http"
	c.RequestTimeout = 30 * time.Second
	c.GRPCEndpoint = "127.0.0.1:50051"
	c.Storage = "memory"
	c.StorageDSN = "baas.db"
	c.StorageCapacity = 10 << 20
	c.StorageTimeout = 3 * time.Second
	c.RedisAddr = "127.0.0.1:6379"
	c.Files = "rest"
	c.FilesDir = "."
	c.S3Bucket = "files"
	c.S3Region = "us-east-1"
	c.S3Endpoint = "http://127.0.0.1:9000/"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if -c/-config is present) and command-line flags. Later
// sources take precedence over earlier ones. The positional arguments left
// after flag parsing are returned alongside the config.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, nil, err
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

// Validate reports configuration errors that would make every request fail.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ApplicationID) == "" {
		return common.ErrMissingApplicationID
	}
	if strings.TrimSpace(c.ServerURL) == "" {
		return common.ErrMissingServerURL
	}
	if _, err := semver.StrictNewVersion(c.Version); err != nil {
		return fmt.Errorf("%w %q: %v", common.ErrInvalidVersion, c.Version, err)
	}
	return nil
}

// ClientVersion is the value reported as _ClientVersion, e.g. "go0.1.0".
func (c *Config) ClientVersion() string {
	return common.ClientVersionPrefix + c.Version
}
