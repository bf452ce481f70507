// Package cdn resolves typed layer references into absolute asset URLs
// against the configured CDN base.
package cdn

import (
	"fmt"
	"strings"

	"github.com/petcord/compositor/internal/model"
	"github.com/petcord/compositor/internal/slugify"
)

// Resolver builds asset URLs rooted at a fixed base URL.
type Resolver struct {
	base string
}

// New returns a Resolver rooted at baseURL, with any trailing slash trimmed.
func New(baseURL string) *Resolver {
	return &Resolver{base: strings.TrimRight(baseURL, "/")}
}

// Resolve derives the CDN URL for a layer of canonical type t with key key.
// Reports false if t has no path template (the layer must carry an explicit
// URL or frame list instead).
func (r *Resolver) Resolve(t model.LayerType, key string) (string, bool) {
	slug := slugify.Slug(key)

	switch t {
	case model.LayerBackground:
		return r.base + "/backgrounds/default.png", true
	case model.LayerRoomBG:
		if slug == "" {
			slug = "default"
		}
		return fmt.Sprintf("%s/backgrounds/%s.png", r.base, slug), true
	case model.LayerFloor:
		return fmt.Sprintf("%s/floor/%s.png", r.base, slug), true
	case model.LayerFurniture:
		return fmt.Sprintf("%s/furniture/%s.png", r.base, slug), true
	case model.LayerWallpaperLeft:
		return fmt.Sprintf("%s/wallpaper/left/%s.png", r.base, slug), true
	case model.LayerWallpaperRight:
		return fmt.Sprintf("%s/wallpaper/right/%s.png", r.base, slug), true
	default:
		return "", false
	}
}

// SwapExtension returns the URL with its .png/.gif suffix swapped, applied
// before any query string, and false if the URL has neither suffix.
func SwapExtension(url string) (string, bool) {
	path, query, hasQuery := strings.Cut(url, "?")
	var swapped string
	switch {
	case strings.HasSuffix(path, ".png"):
		swapped = strings.TrimSuffix(path, ".png") + ".gif"
	case strings.HasSuffix(path, ".gif"):
		swapped = strings.TrimSuffix(path, ".gif") + ".png"
	default:
		return "", false
	}
	if hasQuery {
		swapped += "?" + query
	}
	return swapped, true
}
