// Command dejafoo boots the multi-tenant HTTP caching reverse proxy: loads
// configuration, selects an object-store backend, wires the cache engine and
// request handler behind the admission queue, and serves on PROXY_LISTEN.
package main

import (
	"context"
	"log"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camrail/dejafoo/internal/cache"
	"github.com/camrail/dejafoo/internal/config"
	"github.com/camrail/dejafoo/internal/fetcher"
	"github.com/camrail/dejafoo/internal/proxy"
	"github.com/camrail/dejafoo/internal/store"
	"github.com/camrail/dejafoo/internal/store/fsstore"
	"github.com/camrail/dejafoo/internal/store/memstore"
	"github.com/camrail/dejafoo/internal/store/s3store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file (%v), using system environment variables", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	backend, backendName, err := buildStore(cfg)
	if err != nil {
		log.Fatal(err)
	}

	engine := cache.New(backend, fetcher.NewWithMaxBody(cfg.MaxUpstreamBodyBytes), cfg.DefaultTTLSeconds, backendName)
	handler := proxy.New(engine, cfg.BaseDomain)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", proxy.WithQueue(withServerHeaders(handler), cfg.Queue))

	log.Printf("Listening on %s, store=%s, base_domain=%s, default_ttl=%ds",
		cfg.ListenAddr, cfg.StoreBackend, cfg.BaseDomain, cfg.DefaultTTLSeconds)

	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatal(err)
	}
}

// buildStore selects and constructs the object-store backend named by
// cfg.StoreBackend (spec §9, "implement as an interface with variants
// {in-memory, filesystem, s3-like}").
func buildStore(cfg *config.Config) (store.Store, string, error) {
	switch cfg.StoreBackend {
	case config.StoreFilesystem:
		return fsstore.New(cfg.FilesystemDir), "filesystem", nil
	case config.StoreS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, "", err
		}
		client := awss3.NewFromConfig(awsCfg)
		return s3store.New(client, cfg.S3Bucket, cfg.S3Prefix), "s3", nil
	default:
		return memstore.New(), "memory", nil
	}
}

// withServerHeaders sets the fixed Server identification header, the way
// the proxy's own outbound server identifies itself.
func withServerHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "dejafoo/1.0")
		next.ServeHTTP(w, r)
	})
}
