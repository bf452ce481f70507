package registry

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petcord/compositor/internal/artifact"
	"github.com/petcord/compositor/internal/cdn"
	"github.com/petcord/compositor/internal/compose"
	"github.com/petcord/compositor/internal/decode"
	"github.com/petcord/compositor/internal/fetch"
	"github.com/petcord/compositor/internal/limiter"
	"github.com/petcord/compositor/internal/logger"
	"github.com/petcord/compositor/internal/model"
	"github.com/petcord/compositor/internal/renderer"
)

// Planner accepts jobs, fingerprints and dedups them, and drives the
// fetch -> decode -> compose -> artifact pipeline in the background.
type Planner struct {
	registry *Registry
	store    *artifact.Store
	resolver *cdn.Resolver
	fetcher  *fetch.Fetcher
	decoder  *decode.Cache
	sem      *limiter.Semaphore

	inflightMu sync.Mutex
	inflight   map[string]*inflightRender

	limits                 Limits
	staticFetchConcurrency int
	frameFetchConcurrency  int
	renderTimeout          time.Duration
}

// Deps wires a Planner's collaborators.
type Deps struct {
	Registry               *Registry
	Store                  *artifact.Store
	Resolver               *cdn.Resolver
	Fetcher                *fetch.Fetcher
	Decoder                *decode.Cache
	RenderConcurrency      int
	StaticFetchConcurrency int
	FrameFetchConcurrency  int
	RenderTimeout          time.Duration
	Limits                 Limits
}

// NewPlanner builds a Planner from Deps.
func NewPlanner(d Deps) *Planner {
	if d.RenderTimeout <= 0 {
		d.RenderTimeout = 60 * time.Second
	}
	return &Planner{
		registry:               d.Registry,
		store:                  d.Store,
		resolver:               d.Resolver,
		fetcher:                d.Fetcher,
		decoder:                d.Decoder,
		sem:                    limiter.NewSemaphore(d.RenderConcurrency),
		inflight:               make(map[string]*inflightRender),
		limits:                 d.Limits,
		staticFetchConcurrency: d.StaticFetchConcurrency,
		frameFetchConcurrency:  d.FrameFetchConcurrency,
		renderTimeout:          d.RenderTimeout,
	}
}

// Submit validates payload, checks the artifact cache, and either returns
// an already-done job immediately or dispatches a background render and
// returns a pending jobId.
func (p *Planner) Submit(payload model.Job) (string, error) {
	if err := Validate(&payload, p.limits); err != nil {
		return "", err
	}

	jobID := uuid.NewString()
	fingerprint, err := artifact.Fingerprint(&payload)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint job: %w", err)
	}

	if url, ext, ok := p.store.LookupAny(fingerprint); ok {
		now := time.Now()
		rec := &model.Record{
			JobID:      jobID,
			Status:     model.StatusDone,
			CreatedAt:  now,
			FinishedAt: &now,
			URL:        url,
			Format:     ext,
			Payload:    payload,
		}
		p.registry.put(jobID, rec)
		logger.Debugf("[Registry] job %s served from artifact cache (fp=%s)", jobID, fingerprint)
		return jobID, nil
	}

	p.registry.create(jobID, payload)
	go p.render(jobID, fingerprint, payload)

	return jobID, nil
}

// Poll returns the current record for jobID.
func (p *Planner) Poll(jobID string) (*model.Record, error) {
	rec, ok := p.registry.Get(jobID)
	if !ok {
		return nil, renderer.ErrNotFound
	}
	return rec, nil
}

// inflightRender is a single in-flight render shared by every job currently
// waiting on the same fingerprint. The goroutine that inserts it into
// Planner.inflight is the leader and runs doRender; everyone else who finds
// it already there is a follower and only waits on done.
type inflightRender struct {
	done chan struct{}
	res  renderedArtifact
	err  error
}

// render runs the full pipeline for jobID, coalescing concurrent identical
// jobs (same fingerprint) onto a single in-flight render. A leader that
// fails marks only its own job as errored; a follower that was waiting on a
// leader which failed does not inherit that failure — it falls through to a
// fresh render attempt instead, becoming a new leader (or joining whoever
// gets there first) (spec.md §4.6 steps 3-4, §4.7).
func (p *Planner) render(jobID, fingerprint string, payload model.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.renderTimeout)
	defer cancel()

	for {
		p.inflightMu.Lock()
		entry, exists := p.inflight[fingerprint]
		if !exists {
			entry = &inflightRender{done: make(chan struct{})}
			p.inflight[fingerprint] = entry
		}
		p.inflightMu.Unlock()

		if !exists {
			entry.res, entry.err = p.doRender(ctx, payload)

			p.inflightMu.Lock()
			delete(p.inflight, fingerprint)
			p.inflightMu.Unlock()
			close(entry.done)

			if entry.err != nil {
				p.registry.markError(jobID, entry.err.Error())
				return
			}
			p.registry.markDone(jobID, entry.res.url, entry.res.format)
			return
		}

		select {
		case <-entry.done:
		case <-ctx.Done():
			p.registry.markError(jobID, ctx.Err().Error())
			return
		}

		if entry.err == nil {
			p.registry.markDone(jobID, entry.res.url, entry.res.format)
			return
		}
		// The leader we were waiting on failed; retry the full pipeline
		// fresh rather than inheriting its error.
	}
}

type renderedArtifact struct {
	url    string
	format string
}

// doRender executes one full render: resolve, fetch, decode, compose,
// encode, write. Only reached by the in-flight leader for a fingerprint;
// followers wait on that leader's result and never call it themselves.
func (p *Planner) doRender(ctx context.Context, payload model.Job) (renderedArtifact, error) {
	fingerprint, err := artifact.Fingerprint(&payload)
	if err != nil {
		return renderedArtifact{}, fmt.Errorf("failed to fingerprint job: %w", err)
	}

	layers := resolveLayers(ctx, &payload, p.resolver, p.fetcher, p.decoder, p.staticFetchConcurrency, p.frameFetchConcurrency)

	wantsGif := payload.Format == "gif" || compose.LongestAnimated(layers) > 0
	canvas := compose.Canvas{Width: payload.Size.Width, Height: payload.Size.Height}

	if err := p.sem.Acquire(ctx); err != nil {
		return renderedArtifact{}, err
	}
	defer p.sem.Release()

	var result *compose.Result
	if wantsGif {
		result = compose.ComposeGIF(canvas, payload.BackgroundColorHex, layers, payload.GifOptions)
	} else {
		result = &compose.Result{Format: "png", PNG: compose.ComposePNG(canvas, payload.BackgroundColorHex, layers)}
	}

	var buf bytes.Buffer
	switch result.Format {
	case "gif":
		if err := result.GIF.Encode(&buf); err != nil {
			return renderedArtifact{}, &renderer.EncodeError{Format: "gif", Err: err}
		}
	default:
		if err := png.Encode(&buf, result.PNG); err != nil {
			return renderedArtifact{}, &renderer.EncodeError{Format: "png", Err: err}
		}
	}

	url, err := p.store.Write(fingerprint, result.Format, buf.Bytes())
	if err != nil {
		return renderedArtifact{}, err
	}

	return renderedArtifact{url: url, format: result.Format}, nil
}
