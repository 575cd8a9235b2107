package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryDueHonoursCadence(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Every(0, namedJob("each-tick")))
	require.NoError(t, registry.Every(time.Hour, namedJob("hourly")))
	require.NoError(t, registry.Every(time.Hour, nil))

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, []Job{namedJob("each-tick"), namedJob("hourly")}, registry.Due(start))

	registry.MarkRun("each-tick", start)
	registry.MarkRun("hourly", start)

	assert.Equal(t, []Job{namedJob("each-tick")}, registry.Due(start.Add(time.Minute)))
	assert.Equal(t, []Job{namedJob("each-tick"), namedJob("hourly")}, registry.Due(start.Add(time.Hour)))
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Every(time.Minute, namedJob("purge")))
	require.Error(t, registry.Every(time.Hour, namedJob("purge")))
	assert.Equal(t, []string{"purge"}, registry.Names())

	job, ok := registry.Lookup("purge")
	require.True(t, ok)
	assert.Equal(t, "purge", job.Name())
	_, ok = registry.Lookup("missing")
	assert.False(t, ok)
}
