package cdn

import (
	"testing"

	"github.com/petcord/compositor/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	r := New("https://cdn.example.com/")

	url, ok := r.Resolve(model.LayerBackground, "")
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/backgrounds/default.png", url)

	url, ok = r.Resolve(model.LayerRoomBG, "")
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/backgrounds/default.png", url)

	url, ok = r.Resolve(model.LayerRoomBG, "Sunset Loft")
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/backgrounds/sunset-loft.png", url)

	url, ok = r.Resolve(model.LayerWallpaperLeft, "Blue_Stripes")
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/wallpaper/left/blue-stripes.png", url)

	_, ok = r.Resolve(model.LayerStatic, "whatever")
	assert.False(t, ok)
}

func TestSwapExtension(t *testing.T) {
	swapped, ok := SwapExtension("https://cdn.example.com/a.png")
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/a.gif", swapped)

	swapped, ok = SwapExtension("https://cdn.example.com/a.gif?v=2")
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/a.png?v=2", swapped)

	_, ok = SwapExtension("https://cdn.example.com/a.webp")
	assert.False(t, ok)
}
