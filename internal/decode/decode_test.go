package decode

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestGIF(t *testing.T, frameCount int) []byte {
	t.Helper()

	palette := []color.Color{color.Transparent, color.RGBA{R: 255, A: 255}}
	g := &gif.GIF{}
	for i := 0; i < frameCount; i++ {
		img := image.NewPaletted(image.Rect(0, 0, 4, 4), palette)
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, 10)
	}

	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

func TestDecodeAnimatedGIF(t *testing.T) {
	c, err := NewCache(Config{})
	require.NoError(t, err)

	data := encodeTestGIF(t, 3)
	im, err := c.Decode("gif-key", data)
	require.NoError(t, err)

	assert.True(t, im.Animated())
	assert.Len(t, im.Frames, 3)
	assert.Len(t, im.Delays, 3)
	assert.NotNil(t, im.Still)
}

func TestDecodeCacheHit(t *testing.T) {
	c, err := NewCache(Config{})
	require.NoError(t, err)

	data := encodeTestGIF(t, 1)
	first, err := c.Decode("same-key", data)
	require.NoError(t, err)

	second, err := c.Decode("same-key", data)
	require.NoError(t, err)

	assert.Same(t, first, second)
}
