package compose

import (
	"encoding/hex"
	"image"
	"image/color"
	"image/draw"
)

// ComposePNG draws every layer's single frame onto a canvas in declared
// order and returns the flattened result. Animated layers contribute only
// their first frame (a PNG render has no notion of time).
func ComposePNG(canvas Canvas, bgHex string, layers []ResolvedLayer) image.Image {
	dst := newCanvas(canvas, bgHex)

	for _, l := range layers {
		f, ok := l.frameAt(0)
		if !ok {
			continue
		}
		draw.Draw(dst, f.Rect, f.Img, f.Img.Bounds().Min, draw.Over)
	}

	return dst
}

// newCanvas allocates an RGBA canvas, filled with bgHex if set or fully
// transparent otherwise.
func newCanvas(c Canvas, bgHex string) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	if bg, ok := parseHexColor(bgHex); ok {
		draw.Draw(dst, dst.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	}
	return dst
}

// parseHexColor parses a "#RRGGBB" string. Reports false for an empty or
// malformed input, in which case the caller should leave the canvas
// transparent.
func parseHexColor(s string) (color.RGBA, bool) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, false
	}
	rgb, err := hex.DecodeString(s[1:])
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, true
}
