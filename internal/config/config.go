// Package config loads the proxy's runtime configuration from environment
// variables (optionally populated from a local .env file by the caller),
// following the same getEnv/getEnvBool/getEnvInt/getEnvDuration pattern used
// throughout this codebase.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/camrail/dejafoo/internal/proxy"
)

// StoreBackend selects the object-store implementation backing the cache.
type StoreBackend string

const (
	StoreMemory     StoreBackend = "memory"
	StoreFilesystem StoreBackend = "filesystem"
	StoreS3         StoreBackend = "s3"
)

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	ListenAddr string // e.g. ":8080"
	BaseDomain string // e.g. "dejafoo.io"; used to strip the tenant label from Host

	StoreBackend  StoreBackend
	S3Bucket      string // required when StoreBackend == StoreS3
	S3Prefix      string // optional key prefix within the bucket
	FilesystemDir string // root directory when StoreBackend == StoreFilesystem

	DefaultTTLSeconds int // used when the ttl query parameter is absent or unparseable

	MaxUpstreamBodyBytes int64 // 0 disables the cap

	Queue proxy.QueueConfig
}

const (
	defaultListen              = ":8080"
	defaultBaseDomain          = "dejafoo.io"
	defaultStoreBackend        = StoreMemory
	defaultFilesystemDir       = "./data/cache"
	defaultTTLSeconds          = 3600
	defaultMaxUpstreamBody     = 6 << 20
	defaultQueueMax            = 1000
	defaultQueueMaxConcurrent  = 100
	defaultQueueEnqueueTimeout = 2 * time.Second
	defaultQueueWaitHeader     = true
)

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	backend := StoreBackend(strings.ToLower(getEnv("CACHE_STORE_BACKEND", string(defaultStoreBackend))))
	switch backend {
	case StoreMemory, StoreFilesystem, StoreS3:
	default:
		backend = defaultStoreBackend
	}

	cfg := &Config{
		ListenAddr:           getEnv("PROXY_LISTEN", defaultListen),
		BaseDomain:           strings.ToLower(getEnv("BASE_DOMAIN", defaultBaseDomain)),
		StoreBackend:         backend,
		S3Bucket:             getEnv("S3_BUCKET_NAME", ""),
		S3Prefix:             getEnv("S3_KEY_PREFIX", ""),
		FilesystemDir:        getEnv("CACHE_FS_DIR", defaultFilesystemDir),
		DefaultTTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", defaultTTLSeconds),
		MaxUpstreamBodyBytes: getEnvInt64("MAX_UPSTREAM_BODY_BYTES", defaultMaxUpstreamBody),
		Queue: proxy.QueueConfig{
			MaxQueue:        getEnvInt("RP_MAX_QUEUE", defaultQueueMax),
			MaxConcurrent:   getEnvInt("RP_MAX_CONCURRENT", defaultQueueMaxConcurrent),
			EnqueueTimeout:  getEnvDuration("RP_ENQUEUE_TIMEOUT", defaultQueueEnqueueTimeout),
			QueueWaitHeader: getEnvBool("RP_QUEUE_WAIT_HEADER", defaultQueueWaitHeader),
		},
	}

	if cfg.DefaultTTLSeconds <= 0 {
		cfg.DefaultTTLSeconds = defaultTTLSeconds
	}
	if cfg.StoreBackend == StoreS3 && cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET_NAME is required when CACHE_STORE_BACKEND=s3")
	}

	return cfg, nil
}
