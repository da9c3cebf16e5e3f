// Package progress tracks per-job completion for running encodes and
// translates ffmpeg stderr chatter into monotonic progress updates.
package progress

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Task is one tracked unit of work. Total and Completed share a unit
// (seconds of media for timed encodes, an abstract 100 otherwise).
type Task struct {
	ID        string
	Label     string
	Total     float64
	Completed float64
}

// Percent returns completion scaled to 0-100.
func (t Task) Percent() float64 {
	if t.Total <= 0 {
		return 0
	}
	p := t.Completed / t.Total * 100
	if p > 100 {
		return 100
	}
	return p
}

// Registry is a concurrency-safe set of in-flight tasks. Each task is
// updated by its owning worker; Snapshot may be read from any goroutine.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Add registers a task and returns its generated ID.
func (r *Registry) Add(label string, total float64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	r.tasks[id] = &Task{ID: id, Label: label, Total: total}
	return id
}

// Update advances a task's completion. Updates are clamped to the task
// total and never regress; stale or out-of-order parses are absorbed here
// rather than at every call site.
func (r *Registry) Update(id string, completed float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return
	}
	if task.Total > 0 && completed > task.Total {
		completed = task.Total
	}
	if completed > task.Completed {
		task.Completed = completed
	}
}

// Complete forces a task to its total, regardless of the last parsed value.
func (r *Registry) Complete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[id]; ok {
		task.Completed = task.Total
	}
}

// Remove drops a finished task from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
}

// Snapshot returns a stable copy of all tasks, ordered by label then ID.
func (r *Registry) Snapshot() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, *task)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].ID < out[j].ID
	})
	return out
}
