package compose

import (
	"image"
	"image/color"
	"image/draw"
	stdgif "image/gif"
	"io"
	"math"

	"github.com/soniakeys/quant/octree"

	"github.com/petcord/compositor/internal/model"
)

// AnimatedGIF is the compositor's intermediate animated result, encodable
// via the stdlib image/gif package.
type AnimatedGIF struct {
	Frames []*image.Paletted
	Delays []int
	Repeat int
}

// ComposeGIF draws layers in declared order for each of N frames, where N
// is the longest animated layer's frame count, re-drawing static layers
// fresh on every frame and indexing each animated layer modularly so a
// shorter animation loops within a longer one. If no layer turns out to
// be animated, it downgrades to a PNG result (spec.md §4.4). When opts
// requests transparency with a valid color, the nearest entry in each
// frame's quantized palette is flagged alpha-0 so the stdlib gif encoder
// picks it up as that frame's transparent index.
func ComposeGIF(canvas Canvas, bgHex string, layers []ResolvedLayer, opts *model.GifOptions) *Result {
	n := LongestAnimated(layers)
	if n == 0 {
		return &Result{Format: "png", PNG: ComposePNG(canvas, bgHex, layers)}
	}

	colors := paletteSize(opts.Quality())
	delayCs := opts.DelayMs() / 10 // GIF delay unit is 1/100s
	if delayCs < 1 {
		delayCs = 1
	}

	transparentColor, wantsTransparency := (color.RGBA{}), false
	if opts.Transparent() {
		transparentColor, wantsTransparency = parseHexColor(opts.TransparentColorHex)
	}

	frames := make([]*image.Paletted, n)
	delays := make([]int, n)

	for i := 0; i < n; i++ {
		rgba := newCanvas(canvas, bgHex)
		for _, l := range layers {
			f, ok := l.frameAt(i)
			if !ok {
				continue
			}
			draw.Draw(rgba, f.Rect, f.Img, f.Img.Bounds().Min, draw.Over)
		}

		quantizer := octree.Quantizer(colors)
		palette := quantizer.Quantize(make(color.Palette, 0, colors), rgba)
		if wantsTransparency {
			idx := nearestPaletteIndex(palette, transparentColor)
			palette[idx] = color.RGBA{R: transparentColor.R, G: transparentColor.G, B: transparentColor.B, A: 0}
		}
		paletted := image.NewPaletted(rgba.Bounds(), palette)
		draw.Draw(paletted, paletted.Bounds(), rgba, image.Point{}, draw.Src)

		frames[i] = paletted
		delays[i] = delayCs
	}

	return &Result{
		Format: "gif",
		GIF: &AnimatedGIF{
			Frames: frames,
			Delays: delays,
			Repeat: opts.Repeat(),
		},
	}
}

// nearestPaletteIndex finds the palette entry closest to c by squared RGB
// distance. Used to pick which quantized color gets flagged transparent,
// since the octree quantizer never produces an exact match for an arbitrary
// requested hex.
func nearestPaletteIndex(p color.Palette, c color.RGBA) int {
	best, bestDist := 0, math.MaxInt
	for i, pc := range p {
		r, g, b, _ := pc.RGBA()
		cr, cg, cb, _ := c.RGBA()
		dr, dg, db := int64(r)-int64(cr), int64(g)-int64(cg), int64(b)-int64(cb)
		dist := int(dr*dr + dg*dg + db*db)
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// paletteSize maps the spec's quality knob onto an octree color-cube size:
// higher quality keeps more colors, capped at the GIF format's 256-color
// limit.
func paletteSize(quality int) int {
	if quality <= 0 {
		quality = model.DefaultGifQuality
	}
	colors := quality * 25
	if colors < 8 {
		colors = 8
	}
	if colors > 256 {
		colors = 256
	}
	return colors
}

// Encode writes a in the stdlib image/gif wire format. Per-frame
// transparency (if any) rides along automatically: stdgif.EncodeAll scans
// each frame's own palette for an alpha-0 entry and emits it as that
// frame's transparent color index.
func (a *AnimatedGIF) Encode(w io.Writer) error {
	g := &stdgif.GIF{
		Image:     a.Frames,
		Delay:     a.Delays,
		LoopCount: a.Repeat,
	}
	return stdgif.EncodeAll(w, g)
}
