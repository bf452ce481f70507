package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCacheSetGet(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), time.Minute, false, 0)
	require.NoError(t, err)

	require.NoError(t, dc.Set("https://cdn.example.com/a.png", []byte("payload")))

	data, err := dc.Get("https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestDiskCacheMiss(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), time.Minute, false, 0)
	require.NoError(t, err)

	_, err = dc.Get("https://cdn.example.com/missing.png")
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestDiskCacheExpired(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 10*time.Millisecond, false, 0)
	require.NoError(t, err)

	require.NoError(t, dc.Set("k", []byte("v")))
	time.Sleep(30 * time.Millisecond)

	_, err = dc.Get("k")
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestDiskCacheDelete(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), time.Minute, false, 0)
	require.NoError(t, err)

	require.NoError(t, dc.Set("k", []byte("v")))
	require.NoError(t, dc.Delete("k"))

	_, err = dc.Get("k")
	assert.ErrorIs(t, err, ErrCacheNotFound)
}
