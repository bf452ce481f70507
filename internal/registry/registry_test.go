package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petcord/compositor/internal/model"
)

func TestRegistryCreateGetPoll(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	rec := r.create("job-1", model.Job{Guild: "g", User: "u"})
	assert.Equal(t, model.StatusPending, rec.Status)

	got, ok := r.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, model.StatusPending, got.Status)

	r.markDone("job-1", "https://example.com/out/abc.png", "png")
	got, ok = r.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, model.StatusDone, got.Status)
	assert.Equal(t, "https://example.com/out/abc.png", got.URL)
	assert.NotNil(t, got.FinishedAt)
}

func TestRegistryMarkError(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	r.create("job-2", model.Job{})
	r.markError("job-2", "boom")

	got, ok := r.Get("job-2")
	require.True(t, ok)
	assert.Equal(t, model.StatusError, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestRegistryGetUnknown(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	_, ok := r.Get("does-not-exist")
	assert.False(t, ok)
}

func TestRegistryCloneIsolatesCaller(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	r.create("job-3", model.Job{})
	got, _ := r.Get("job-3")
	got.Status = model.StatusError

	fresh, _ := r.Get("job-3")
	assert.Equal(t, model.StatusPending, fresh.Status)
	assert.NotEqual(t, got.Status, fresh.Status)
}

func TestValidateRejectsOversizedJob(t *testing.T) {
	limits := Limits{MaxWidth: 1024, MaxHeight: 1024, MaxLayers: 10, MaxFrames: 20}

	err := Validate(&model.Job{
		Guild: "g", User: "u",
		Size:   model.Size{Width: 2000, Height: 300},
		Layers: []model.Layer{{Type: "background"}},
	}, limits)
	assert.Error(t, err)
}

func TestValidateRejectsTooManyLayers(t *testing.T) {
	limits := Limits{MaxWidth: 1024, MaxHeight: 1024, MaxLayers: 1, MaxFrames: 20}

	err := Validate(&model.Job{
		Guild: "g", User: "u",
		Size:   model.Size{Width: 300, Height: 300},
		Layers: []model.Layer{{Type: "background"}, {Type: "floor"}},
	}, limits)
	assert.Error(t, err)
}

func TestValidateAcceptsWellFormedJob(t *testing.T) {
	limits := Limits{MaxWidth: 1024, MaxHeight: 1024, MaxLayers: 10, MaxFrames: 20}

	err := Validate(&model.Job{
		Guild: "g", User: "u",
		Size:   model.Size{Width: 300, Height: 300},
		Layers: []model.Layer{{Type: "background"}},
	}, limits)
	assert.NoError(t, err)
}

func TestCreatedAtSurvivesTransition(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	r.create("job-4", model.Job{})
	before, _ := r.Get("job-4")

	time.Sleep(2 * time.Millisecond)
	r.markDone("job-4", "https://example.com/out/x.png", "png")

	after, _ := r.Get("job-4")
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
}
