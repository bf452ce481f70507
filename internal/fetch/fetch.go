// Package fetch retrieves asset bytes from http(s) and data: URLs, with a
// TTL byte cache and extension-fallback retry.
package fetch

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	intcache "github.com/petcord/compositor/internal/cache"
	"github.com/petcord/compositor/internal/cdn"
	"github.com/petcord/compositor/internal/logger"
	"github.com/petcord/compositor/internal/renderer"
)

// Config controls the fetcher's transport and cache policy.
type Config struct {
	RequestTimeout    time.Duration // per-request deadline, default 15s
	CacheTTL          time.Duration // byte-cache entry TTL, default 60s
	CacheMaxItems     int64         // byte-cache approximate item budget, default 1000
	MaxConnsPerScheme int           // bounded per-scheme connection pool, default 50

	// DiskCacheDir, if non-empty, enables a persistent second-tier cache
	// of fetched asset bytes on disk, surviving process restarts. Empty
	// disables the disk tier entirely.
	DiskCacheDir      string
	DiskCacheTTL      time.Duration // default 1h
	DiskCacheMaxBytes int64         // 0 = unlimited
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 60 * time.Second
	}
	if c.CacheMaxItems <= 0 {
		c.CacheMaxItems = 1000
	}
	if c.MaxConnsPerScheme <= 0 {
		c.MaxConnsPerScheme = 50
	}
	if c.DiskCacheTTL <= 0 {
		c.DiskCacheTTL = time.Hour
	}
	return c
}

// Fetcher retrieves and caches asset bytes.
type Fetcher struct {
	client    *http.Client
	cache     *byteCache
	diskCache *intcache.DiskCache // optional persistent second tier
	cfg       Config
}

// New builds a Fetcher. Assumes an average 64KB cached payload to translate
// CacheMaxItems into a byte budget for the underlying ristretto cache.
func New(cfg Config) (*Fetcher, error) {
	cfg = cfg.withDefaults()

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxConnsPerScheme,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerScheme,
		MaxConnsPerHost:       cfg.MaxConnsPerScheme,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		logger.Warnf("[Fetcher] failed to configure HTTP/2: %v", err)
	}

	cache, err := newByteCache(int64(cfg.CacheMaxItems)*64*1024, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch cache: %w", err)
	}

	var diskCache *intcache.DiskCache
	if cfg.DiskCacheDir != "" {
		diskCache, err = intcache.NewDiskCache(cfg.DiskCacheDir, cfg.DiskCacheTTL, false, cfg.DiskCacheMaxBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to create fetch disk cache: %w", err)
		}
	}

	return &Fetcher{
		client:    &http.Client{Transport: transport, Timeout: cfg.RequestTimeout},
		cache:     cache,
		diskCache: diskCache,
		cfg:       cfg,
	}, nil
}

// Fetch resolves url to bytes, consulting the byte cache first.
// Accepts http://, https://, and data:<media>;base64,<payload> URLs.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "data:") {
		return decodeDataURL(url)
	}

	if data, ok := f.cache.get(url); ok {
		return data, nil
	}

	if f.diskCache != nil {
		if data, err := f.diskCache.Get(url); err == nil {
			f.cache.set(url, data)
			return data, nil
		}
	}

	data, err := f.fetchHTTP(ctx, url)
	if err != nil {
		return nil, err
	}

	f.cache.set(url, data)
	if f.diskCache != nil {
		if err := f.diskCache.Set(url, data); err != nil {
			logger.Warnf("[Fetcher] disk cache write failed for %s: %v", url, err)
		}
	}
	return data, nil
}

// FetchWithExtensionFallback calls Fetch; on any failure, if url ends in
// .png or .gif (ignoring a trailing query string), it swaps the extension
// and retries once. The original error is returned if the retry also fails.
func (f *Fetcher) FetchWithExtensionFallback(ctx context.Context, url string) ([]byte, error) {
	data, err := f.Fetch(ctx, url)
	if err == nil {
		return data, nil
	}

	swapped, ok := cdn.SwapExtension(url)
	if !ok {
		return nil, err
	}

	logger.Debugf("[Fetcher] retrying %s as %s after error: %v", url, swapped, err)
	if data2, err2 := f.Fetch(ctx, swapped); err2 == nil {
		return data2, nil
	}

	return nil, err
}

func (f *Fetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &renderer.FetchError{URL: url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &renderer.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, &renderer.UpstreamError{Status: resp.StatusCode, URL: url}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &renderer.FetchError{URL: url, Err: err}
	}

	return data, nil
}

// decodeDataURL decodes a data:<media>;base64,<payload> URI.
func decodeDataURL(url string) ([]byte, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data: prefix", renderer.ErrInvalidDataUrl)
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing comma separator", renderer.ErrInvalidDataUrl)
	}

	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: only base64 data URLs are supported", renderer.ErrInvalidDataUrl)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", renderer.ErrInvalidDataUrl, err)
	}

	return data, nil
}
