// Package artifact computes the content fingerprint of a normalized job
// and manages the on-disk, content-addressed output directory.
package artifact

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/petcord/compositor/internal/logger"
	"github.com/petcord/compositor/internal/model"
	"github.com/petcord/compositor/internal/renderer"
)

// Fingerprint returns the SHA-1 hex digest of job's canonical JSON
// serialization after projecting it onto pixel-relevant fields only
// (model.Normalize). Two payloads differing solely in guild, user, or
// unrecognized fields hash identically.
func Fingerprint(job *model.Job) (string, error) {
	normalized := model.Normalize(job)

	// encoding/json serializes struct fields in declaration order, which
	// is fixed for a given type — the same guarantee the teacher's
	// cache layer leans on for map keys is unnecessary here since
	// NormalizedJob has no map fields, but canonical ordering still
	// falls directly out of the struct shape.
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("failed to marshal normalized job: %w", err)
	}

	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// Store manages the artifact output directory: immutable files named
// <fingerprint>.<ext>.
type Store struct {
	dir     string
	baseURL string
}

// NewStore creates dir if needed and returns a Store serving artifact URLs
// rooted at publicBaseURL + "/out/".
func NewStore(dir, publicBaseURL string) (*Store, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	logger.Infof("[ArtifactStore] initialized at %s", absDir)
	return &Store{dir: absDir, baseURL: publicBaseURL}, nil
}

// Lookup reports whether an artifact for fingerprint already exists for
// ext ("png" or "gif"), returning its public URL if so.
func (s *Store) Lookup(fingerprint, ext string) (url string, ok bool) {
	path := s.path(fingerprint, ext)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return s.url(fingerprint, ext), true
}

// LookupAny checks both known extensions, png first, matching the
// registry's general preference to report whatever was already rendered.
func (s *Store) LookupAny(fingerprint string) (url, ext string, ok bool) {
	for _, candidate := range []string{"png", "gif"} {
		if url, ok := s.Lookup(fingerprint, candidate); ok {
			return url, candidate, true
		}
	}
	return "", "", false
}

// Write persists data as <fingerprint>.<ext> via a temp-file-then-rename,
// matching the teacher's DiskCache.Set atomicity, and returns the public
// URL. Safe to call redundantly for the same fingerprint: content is
// identical by construction, so last-writer-wins is correct (spec.md §5).
func (s *Store) Write(fingerprint, ext string, data []byte) (string, error) {
	path := s.path(fingerprint, ext)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", &renderer.IOError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", &renderer.IOError{Path: path, Err: err}
	}

	logger.Infof("[ArtifactStore] wrote %s (%d bytes)", filepath.Base(path), len(data))
	return s.url(fingerprint, ext), nil
}

func (s *Store) path(fingerprint, ext string) string {
	return filepath.Join(s.dir, fingerprint+"."+ext)
}

func (s *Store) url(fingerprint, ext string) string {
	return s.baseURL + "/out/" + fingerprint + "." + ext
}

// GC removes artifact files older than maxAge, returning the number
// removed. A supplemental feature beyond spec.md: the original spec
// treats artifacts as immortal for process lifetime, but a standalone
// service needs some bound on disk growth across restarts.
func (s *Store) GC(maxAgeSeconds int64) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list artifact directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > time.Duration(maxAgeSeconds)*time.Second {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		logger.Infof("[ArtifactStore] GC removed %d stale artifact(s)", removed)
	}
	return removed, nil
}
