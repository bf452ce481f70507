package registry

import (
	"fmt"

	"github.com/petcord/compositor/internal/model"
	"github.com/petcord/compositor/internal/renderer"
)

// Limits bounds a submitted job's cost, per spec.md §6/§7.
type Limits struct {
	MaxWidth  int
	MaxHeight int
	MaxLayers int
	MaxFrames int
}

// Validate checks job against limits, returning renderer.ErrInvalidPayload
// wrapped with the specific violation on failure.
func Validate(job *model.Job, limits Limits) error {
	if job == nil {
		return fmt.Errorf("%w: empty job", renderer.ErrInvalidPayload)
	}
	if job.Guild == "" {
		return fmt.Errorf("%w: guild is required", renderer.ErrInvalidPayload)
	}
	if job.User == "" {
		return fmt.Errorf("%w: user is required", renderer.ErrInvalidPayload)
	}
	if job.Size.Width <= 0 || job.Size.Height <= 0 {
		return fmt.Errorf("%w: size must be positive", renderer.ErrInvalidPayload)
	}
	if job.Size.Width > limits.MaxWidth || job.Size.Height > limits.MaxHeight {
		return fmt.Errorf("%w: size exceeds %dx%d", renderer.ErrInvalidPayload, limits.MaxWidth, limits.MaxHeight)
	}
	if len(job.Layers) == 0 {
		return fmt.Errorf("%w: at least one layer is required", renderer.ErrInvalidPayload)
	}
	if len(job.Layers) > limits.MaxLayers {
		return fmt.Errorf("%w: too many layers (max %d)", renderer.ErrInvalidPayload, limits.MaxLayers)
	}
	if job.Format != "" && job.Format != "png" && job.Format != "gif" {
		return fmt.Errorf("%w: format must be png or gif", renderer.ErrInvalidPayload)
	}

	maxFrames := 0
	for _, l := range job.Layers {
		if len(l.Frame) > maxFrames {
			maxFrames = len(l.Frame)
		}
	}
	if maxFrames > limits.MaxFrames {
		return fmt.Errorf("%w: too many animation frames (max %d)", renderer.ErrInvalidPayload, limits.MaxFrames)
	}

	return nil
}
