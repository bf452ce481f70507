package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDataURL(t *testing.T) {
	f, err := New(Config{})
	require.NoError(t, err)

	data, err := f.Fetch(context.Background(), "data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFetchDataURLInvalid(t *testing.T) {
	f, err := New(Config{})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "data:image/png,not-base64-marked")
	assert.Error(t, err)
}

func TestFetchHTTPAndCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f, err := New(Config{})
	require.NoError(t, err)

	data, err := f.Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	data, err = f.Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, 1, calls, "second fetch should be served from cache")
}

func TestFetchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := New(Config{})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.png")
	assert.Error(t, err)
}

func TestFetchWithExtensionFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/a.gif" {
			w.Write([]byte("gif-bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := New(Config{})
	require.NoError(t, err)

	data, err := f.FetchWithExtensionFallback(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, "gif-bytes", string(data))
}

func TestFetchPersistsToDiskCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("disk-payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f, err := New(Config{DiskCacheDir: dir})
	require.NoError(t, err)

	data, err := f.Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, "disk-payload", string(data))

	// A fresh Fetcher sharing the same disk cache directory should see the
	// entry without hitting the origin again.
	f2, err := New(Config{DiskCacheDir: dir})
	require.NoError(t, err)

	data2, err := f2.Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, "disk-payload", string(data2))
	assert.Equal(t, 1, calls, "second fetcher should be served from the disk tier")
}

func TestFetchWithExtensionFallbackNoSuffix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := New(Config{})
	require.NoError(t, err)

	_, err = f.FetchWithExtensionFallback(context.Background(), srv.URL+"/a.webp")
	assert.Error(t, err)
}
