package registry

import (
	"context"
	"image"

	"github.com/petcord/compositor/internal/cdn"
	"github.com/petcord/compositor/internal/compose"
	"github.com/petcord/compositor/internal/decode"
	"github.com/petcord/compositor/internal/fetch"
	"github.com/petcord/compositor/internal/limiter"
	"github.com/petcord/compositor/internal/logger"
	"github.com/petcord/compositor/internal/model"
)

// resolveURL returns the URL a non-animated layer resolves to: its
// explicit URL if set, else a CDN-derived URL from its canonical type and
// slugified key. Reports false if neither is available — that layer is
// dropped (spec.md §4.6 step 5).
func resolveURL(resolver *cdn.Resolver, l model.Layer) (string, bool) {
	if l.URL != "" {
		return l.URL, true
	}
	t, ok := model.CanonicalizeLayerType(l.Type)
	if !ok {
		return "", false
	}
	return resolver.Resolve(t, l.Key)
}

// resolveLayers fetches and decodes every layer's image(s) and returns the
// compositor-ready form, preserving declared order. A layer whose URL
// cannot be derived, or whose fetch/decode fails, is dropped entirely —
// per-layer failures degrade the output but never fail the job. Static
// layers fan out across staticConcurrency; each animated layer's frames
// fan out independently across frameConcurrency.
func resolveLayers(ctx context.Context, job *model.Job, resolver *cdn.Resolver, fetcher *fetch.Fetcher, decoder *decode.Cache, staticConcurrency, frameConcurrency int) []compose.ResolvedLayer {
	type pending struct {
		animated bool
		layer    model.Layer
		url      string
		rect     *model.Rect
	}

	plan := make([]pending, 0, len(job.Layers))
	for _, l := range job.Layers {
		canonical, _ := model.CanonicalizeLayerType(l.Type)
		if canonical == model.LayerPetGifFrames || len(l.Frame) > 0 {
			plan = append(plan, pending{animated: true, layer: l})
			continue
		}

		url, ok := resolveURL(resolver, l)
		if !ok {
			logger.Warnf("[Registry] dropping layer type=%q key=%q: no resolvable URL", l.Type, l.Key)
			continue
		}
		plan = append(plan, pending{layer: l, url: url, rect: l.Rect})
	}

	results := limiter.BoundedMap(ctx, plan, staticConcurrency, func(ctx context.Context, p pending) (compose.ResolvedLayer, error) {
		if p.animated {
			return resolveAnimatedLayer(ctx, job, p.layer, fetcher, decoder, frameConcurrency)
		}
		return resolveStaticLayer(ctx, job, p.url, p.rect, fetcher, decoder)
	})

	out := make([]compose.ResolvedLayer, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			logger.Warnf("[Registry] dropping layer %d (%q): %v", i, plan[i].layer.Type, r.Err)
			continue
		}
		out = append(out, r.Value)
	}
	return out
}

func resolveStaticLayer(ctx context.Context, job *model.Job, url string, rect *model.Rect, fetcher *fetch.Fetcher, decoder *decode.Cache) (compose.ResolvedLayer, error) {
	data, err := fetcher.FetchWithExtensionFallback(ctx, url)
	if err != nil {
		return compose.ResolvedLayer{}, err
	}

	img, err := decoder.Decode(url, data)
	if err != nil {
		return compose.ResolvedLayer{}, err
	}

	x, y, w, h := rect.Resolve(job.Size.Width, job.Size.Height)
	return compose.ResolvedLayer{
		Static: &compose.Frame{Img: img.Still, Rect: image.Rect(x, y, x+w, y+h)},
	}, nil
}

// resolveAnimatedLayer fetches and decodes every frame in parallel,
// preserving declared order. A frame that fails to fetch or decode is
// skipped, not fatal to the layer (spec.md §4.4 step 1): only when every
// frame fails does the layer itself become unusable and get dropped by
// the caller.
func resolveAnimatedLayer(ctx context.Context, job *model.Job, l model.Layer, fetcher *fetch.Fetcher, decoder *decode.Cache, concurrency int) (compose.ResolvedLayer, error) {
	results := limiter.BoundedMap(ctx, l.Frame, concurrency, func(ctx context.Context, f model.Frame) (compose.Frame, error) {
		data, err := fetcher.FetchWithExtensionFallback(ctx, f.URL)
		if err != nil {
			return compose.Frame{}, err
		}
		img, err := decoder.Decode(f.URL, data)
		if err != nil {
			return compose.Frame{}, err
		}
		x, y, w, h := f.Rect.Resolve(job.Size.Width, job.Size.Height)
		return compose.Frame{Img: img.Still, Rect: image.Rect(x, y, x+w, y+h)}, nil
	})

	frames := make([]compose.Frame, 0, len(results))
	var lastErr error
	for i, r := range results {
		if r.Err != nil {
			logger.Warnf("[Registry] dropping frame %d (%q) of animated layer %q: %v", i, l.Frame[i].URL, l.Type, r.Err)
			lastErr = r.Err
			continue
		}
		frames = append(frames, r.Value)
	}

	if len(frames) == 0 {
		return compose.ResolvedLayer{}, lastErr
	}

	return compose.ResolvedLayer{Animated: frames}, nil
}
