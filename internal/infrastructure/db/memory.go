package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/core/services"
	"github.com/tracecmd/backend/internal/domain"
)

// MemoryTaskRepository keeps task records in process, for the CLI and tests
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*domain.TaskRecord
}

func NewMemoryTaskRepository() ports.TaskRepository {
	return &MemoryTaskRepository{tasks: make(map[string]*domain.TaskRecord)}
}

func (r *MemoryTaskRepository) Create(ctx context.Context, task *domain.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *MemoryTaskRepository) GetByID(ctx context.Context, id string) (*domain.TaskRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, services.ErrTaskNotFound
	}
	// Return a copy to avoid race conditions
	cp := *task
	return &cp, nil
}

func (r *MemoryTaskRepository) GetAll(ctx context.Context, limit int) ([]domain.TaskRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TaskRecord, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryTaskRepository) Update(ctx context.Context, task *domain.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return services.ErrTaskNotFound
	}
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

// MemoryTimelineRepository keeps timeline events in process
type MemoryTimelineRepository struct {
	mu     sync.RWMutex
	events []domain.TimelineEvent
	nextID uint
}

func NewMemoryTimelineRepository() ports.TimelineRepository {
	return &MemoryTimelineRepository{}
}

func (r *MemoryTimelineRepository) Create(ctx context.Context, event *domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	event.ID = r.nextID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.UpdatedAt = event.CreatedAt
	r.events = append(r.events, *event)
	return nil
}

func (r *MemoryTimelineRepository) GetByResource(ctx context.Context, resourceType string, resourceID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TimelineEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		e := r.events[i]
		if e.ResourceType == resourceType && e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryTimelineRepository) GetAll(ctx context.Context, limit int) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TimelineEvent
	for i := len(r.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}

func (r *MemoryTimelineRepository) CleanupOld(ctx context.Context, olderThan time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	kept := r.events[:0]
	for _, e := range r.events {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}
