// Package registry owns job lifecycle state and the dedup/render pipeline
// that moves a job from pending to done or error.
package registry

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/petcord/compositor/internal/logger"
	"github.com/petcord/compositor/internal/model"
	"github.com/petcord/compositor/internal/renderer"
)

// jobTableSize bounds the registry's resident job count; once the table
// fills, the least recently used record is evicted whatever its status
// (pending jobs included); this is a size bound, not a TTL.
const jobTableSize = 10000

// Registry is the single writer-per-jobId map of job lifecycle records.
type Registry struct {
	mu    sync.Mutex
	table *lru.Cache[string, *model.Record]
}

// New builds an empty Registry.
func New() (*Registry, error) {
	table, err := lru.New[string, *model.Record](jobTableSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create job table: %w", err)
	}
	return &Registry{table: table}, nil
}

// put inserts or overwrites the record for jobID. Single-writer-per-key
// in the scheduling sense: only the render task for a given jobId calls
// put for it after creation.
func (r *Registry) put(jobID string, rec *model.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table.Add(jobID, rec)
}

// Get returns a copy of the record for jobID, or (nil, false) if unknown.
func (r *Registry) Get(jobID string) (*model.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.table.Get(jobID)
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// create inserts a fresh pending record for jobID.
func (r *Registry) create(jobID string, payload model.Job) *model.Record {
	rec := &model.Record{
		JobID:     jobID,
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
		Payload:   payload,
	}
	r.put(jobID, rec)
	return rec
}

// markDone transitions jobID to done with the resolved url and format.
func (r *Registry) markDone(jobID, url, format string) {
	now := time.Now()
	r.put(jobID, &model.Record{
		JobID:      jobID,
		Status:     model.StatusDone,
		CreatedAt:  r.createdAt(jobID),
		FinishedAt: &now,
		URL:        url,
		Format:     format,
	})
	logger.Infof("[Registry] job %s done -> %s", jobID, url)
}

// markError transitions jobID to error with msg.
func (r *Registry) markError(jobID, msg string) {
	now := time.Now()
	r.put(jobID, &model.Record{
		JobID:      jobID,
		Status:     model.StatusError,
		CreatedAt:  r.createdAt(jobID),
		FinishedAt: &now,
		Error:      msg,
	})
	logger.Warnf("[Registry] job %s failed: %s", jobID, msg)
}

func (r *Registry) createdAt(jobID string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.table.Get(jobID); ok {
		return rec.CreatedAt
	}
	return time.Now()
}

// ErrNotFound is returned by Poll for an unrecognized jobId.
var ErrNotFound = renderer.ErrNotFound
