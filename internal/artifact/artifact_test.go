package artifact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petcord/compositor/internal/model"
)

func sampleJob(guild, user string) *model.Job {
	return &model.Job{
		Guild:  guild,
		User:   user,
		Size:   model.Size{Width: 300, Height: 300},
		Format: "png",
		Layers: []model.Layer{
			{Type: "background", Key: "Sunset Loft"},
		},
	}
}

func TestFingerprintIgnoresGuildAndUser(t *testing.T) {
	fp1, err := Fingerprint(sampleJob("guild-a", "user-a"))
	require.NoError(t, err)

	fp2, err := Fingerprint(sampleJob("guild-b", "user-b"))
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
}

func TestFingerprintDiffersOnLayerChange(t *testing.T) {
	base := sampleJob("g", "u")
	fp1, err := Fingerprint(base)
	require.NoError(t, err)

	changed := sampleJob("g", "u")
	changed.Layers[0].Key = "Different Room"
	fp2, err := Fingerprint(changed)
	require.NoError(t, err)

	assert.NotEqual(t, fp1, fp2)
}

func TestStoreWriteAndLookup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "https://example.com")
	require.NoError(t, err)

	_, ok := store.Lookup("abc123", "png")
	assert.False(t, ok)

	url, err := store.Write("abc123", "png", []byte("fake-png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/out/abc123.png", url)

	gotURL, ok := store.Lookup("abc123", "png")
	assert.True(t, ok)
	assert.Equal(t, url, gotURL)

	gotURL, ext, ok := store.LookupAny("abc123")
	assert.True(t, ok)
	assert.Equal(t, "png", ext)
	assert.Equal(t, url, gotURL)
}

func TestStoreGCRemovesStaleArtifacts(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "https://example.com")
	require.NoError(t, err)

	_, err = store.Write("stale", "png", []byte("x"))
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	removed, err := store.GC(0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := store.Lookup("stale", "png")
	assert.False(t, ok)
}
