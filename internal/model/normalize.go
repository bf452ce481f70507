package model

import "strings"

// NormalizedRect is the fully-resolved, numerically-coerced form of a draw
// rectangle, always relative to its owning canvas. Used only for
// fingerprinting: every numeric field is concrete, never nil, so two
// payloads that differ only in which fields were explicit hash identically
// to one where they were all spelled out.
type NormalizedRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// NormalizedFrame is one frame of an animated layer, normalized.
type NormalizedFrame struct {
	URL  string         `json:"url"`
	Rect NormalizedRect `json:"rect"`
}

// NormalizedLayer is a layer with its type canonicalized, its rectangle
// resolved against the canvas, and (for animated layers) its frames
// resolved the same way. Fields irrelevant to a given layer's type are left
// at their zero value so canonical JSON stays stable.
type NormalizedLayer struct {
	Type   string            `json:"type"`
	Key    string            `json:"key"`
	URL    string            `json:"url"`
	Rect   NormalizedRect    `json:"rect"`
	Frames []NormalizedFrame `json:"frames"`
}

// NormalizedGifOptions is a GifOptions with every field coerced to a
// concrete value.
type NormalizedGifOptions struct {
	DelayMs             int    `json:"delayMs"`
	Repeat              int    `json:"repeat"`
	Quality             int    `json:"quality"`
	Transparent         bool   `json:"transparent"`
	TransparentColorHex string `json:"transparentColorHex"`
	BackgroundColorHex  string `json:"backgroundColorHex"`
}

// NormalizedJob is the pixel-relevant projection of a Job: guild, user, and
// unknown fields are deliberately absent so fingerprinting is insensitive
// to them (spec.md §3 invariant).
type NormalizedJob struct {
	Size       Size                 `json:"size"`
	Format     string               `json:"format"`
	Layers     []NormalizedLayer    `json:"layers"`
	GifOptions NormalizedGifOptions `json:"gifOptions"`
}

// Normalize projects a raw Job onto its pixel-relevant, fully-coerced form.
// Layers whose type cannot be canonicalized are kept (with an empty
// canonical type) so that the caller can decide to drop them consistently
// between fingerprinting and rendering; dropping them here would let a
// garbled type silently collapse two different payloads onto one
// fingerprint.
func Normalize(j *Job) NormalizedJob {
	size := j.Size
	if size.Width <= 0 {
		size.Width = DefaultWidth
	}
	if size.Height <= 0 {
		size.Height = DefaultHeight
	}

	out := NormalizedJob{
		Size:   size,
		Format: strings.ToLower(strings.TrimSpace(j.Format)),
		Layers: make([]NormalizedLayer, 0, len(j.Layers)),
	}

	for _, l := range j.Layers {
		out.Layers = append(out.Layers, normalizeLayer(l, size))
	}

	out.GifOptions = normalizeGifOptions(j.GifOptions)

	return out
}

func normalizeLayer(l Layer, canvas Size) NormalizedLayer {
	canonical, ok := CanonicalizeLayerType(l.Type)
	typeStr := ""
	if ok {
		typeStr = string(canonical)
	}

	x, y, w, h := l.Rect.Resolve(canvas.Width, canvas.Height)
	nl := NormalizedLayer{
		Type: typeStr,
		Key:  strings.ToLower(strings.TrimSpace(l.Key)),
		URL:  l.URL,
		Rect: NormalizedRect{X: x, Y: y, W: w, H: h},
	}

	if len(l.Frame) > 0 {
		nl.Frames = make([]NormalizedFrame, 0, len(l.Frame))
		for _, f := range l.Frame {
			fx, fy, fw, fh := f.Rect.Resolve(canvas.Width, canvas.Height)
			nl.Frames = append(nl.Frames, NormalizedFrame{
				URL:  f.URL,
				Rect: NormalizedRect{X: fx, Y: fy, W: fw, H: fh},
			})
		}
	}

	return nl
}

func normalizeGifOptions(g *GifOptions) NormalizedGifOptions {
	return NormalizedGifOptions{
		DelayMs:             g.DelayMs(),
		Repeat:              g.Repeat(),
		Quality:             g.Quality(),
		Transparent:         g.Transparent(),
		TransparentColorHex: strings.ToLower(strings.TrimSpace(gifField(g, "transparentColorHex"))),
		BackgroundColorHex:  strings.ToLower(strings.TrimSpace(gifField(g, "backgroundColorHex"))),
	}
}

func gifField(g *GifOptions, field string) string {
	if g == nil {
		return ""
	}
	switch field {
	case "transparentColorHex":
		return g.TransparentColorHex
	case "backgroundColorHex":
		return g.BackgroundColorHex
	}
	return ""
}
