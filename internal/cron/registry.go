package cron

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry schedules jobs by cadence. A job with no cadence runs on every
// tick. Order of registration is the order jobs run in within a tick.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Every registers job to run at most once per interval. A nil job is
// skipped; a duplicate name is an error.
func (r *Registry) Every(interval time.Duration, job Job) error {
	if job == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.job.Name() == job.Name() {
			return fmt.Errorf("cron job %q registered twice", job.Name())
		}
	}
	r.entries = append(r.entries, &entry{job: job, every: interval})
	return nil
}

// Due returns the jobs whose cadence has elapsed at now. A job never run
// is always due.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, e := range r.entries {
		if e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.every {
			due = append(due, e.job)
		}
	}
	return due
}

// Lookup finds a job by name.
func (r *Registry) Lookup(name string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.job.Name() == name {
			return e.job, true
		}
	}
	return nil, false
}

// MarkRun records that name started at at. Failed runs count too, so a
// broken job retries on its cadence rather than every tick.
func (r *Registry) MarkRun(name string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.job.Name() == name {
			e.lastRun = at
			return
		}
	}
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.job.Name())
	}
	return names
}
