package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cshum/vipsgen/vips"
	"github.com/joho/godotenv"

	"github.com/petcord/compositor/internal/api"
	"github.com/petcord/compositor/internal/artifact"
	"github.com/petcord/compositor/internal/cdn"
	"github.com/petcord/compositor/internal/config"
	"github.com/petcord/compositor/internal/decode"
	"github.com/petcord/compositor/internal/fetch"
	"github.com/petcord/compositor/internal/logger"
	"github.com/petcord/compositor/internal/registry"
)

func main() {
	logger.SetOutput(os.Stderr)
	logger.SetFlags(0)
	logger.InitFromEnv()

	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.Debug {
		logger.SetLevelFromString("debug")
	}

	logger.Infof("[Server] starting compositor render service…")

	var vipsCfg *vips.Config
	if v := os.Getenv("VIPS_CONCURRENCY"); v != "" {
		if conc, err := strconv.Atoi(v); err == nil && conc > 0 {
			vipsCfg = &vips.Config{ConcurrencyLevel: conc}
			logger.Infof("[Server] libvips concurrency set to %d via VIPS_CONCURRENCY", conc)
		}
	}
	vips.Startup(vipsCfg)
	defer vips.Shutdown()

	if cfg.AssetBaseURL == "" {
		logger.Fatalf("[Server] ASSET_BASE_URL is required")
	}

	store, err := artifact.NewStore(cfg.OutputDir, cfg.PublicBaseURL)
	if err != nil {
		logger.Fatalf("[Server] failed to initialize artifact store: %v", err)
	}

	fetcher, err := fetch.New(fetch.Config{
		RequestTimeout:    cfg.RequestTimeout,
		CacheTTL:          cfg.FetchCacheTTL,
		CacheMaxItems:     cfg.FetchCacheMaxItems,
		DiskCacheDir:      cfg.FetchDiskCacheDir,
		DiskCacheTTL:      cfg.FetchDiskCacheTTL,
		DiskCacheMaxBytes: cfg.FetchDiskCacheMaxBytes,
	})
	if err != nil {
		logger.Fatalf("[Server] failed to initialize fetcher: %v", err)
	}

	decoder, err := decode.NewCache(decode.Config{
		MaxBytes: cfg.DecodeCacheMaxBytes,
		TTL:      cfg.DecodeCacheTTL,
	})
	if err != nil {
		logger.Fatalf("[Server] failed to initialize decode cache: %v", err)
	}

	reg, err := registry.New()
	if err != nil {
		logger.Fatalf("[Server] failed to initialize job registry: %v", err)
	}

	planner := registry.NewPlanner(registry.Deps{
		Registry:               reg,
		Store:                  store,
		Resolver:               cdn.New(cfg.AssetBaseURL),
		Fetcher:                fetcher,
		Decoder:                decoder,
		RenderConcurrency:      cfg.RenderConcurrency,
		StaticFetchConcurrency: cfg.StaticFetchConcurrency,
		FrameFetchConcurrency:  cfg.FrameFetchConcurrency,
		RenderTimeout:          cfg.RequestTimeout * 4,
		Limits: registry.Limits{
			MaxWidth:  cfg.MaxWidth,
			MaxHeight: cfg.MaxHeight,
			MaxLayers: cfg.MaxLayers,
			MaxFrames: cfg.MaxFrames,
		},
	})

	go runArtifactGC(store, cfg.ArtifactMaxAge)

	srv := api.New(api.Config{
		Planner:       planner,
		APIToken:      cfg.APIToken,
		JSONBodyLimit: cfg.JSONBodyLimitBytes,
		OutputDir:     cfg.OutputDir,
	})

	mux := http.NewServeMux()
	srv.Routes(mux)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.WithAccessLog(mux),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("[Server] listening on %s (asset base: %s)", httpServer.Addr, cfg.AssetBaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("[Server] server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Infof("[Server] shutdown signal received, draining in-flight requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("[Server] graceful shutdown failed: %v", err)
	}
}

// runArtifactGC periodically sweeps the artifact directory for files
// older than maxAge. A supplemental feature: the core's artifact
// directory is otherwise immortal for process lifetime.
func runArtifactGC(store *artifact.Store, maxAge time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		if _, err := store.GC(int64(maxAge.Seconds())); err != nil {
			logger.Warnf("[Server] artifact GC failed: %v", err)
		}
	}
}
