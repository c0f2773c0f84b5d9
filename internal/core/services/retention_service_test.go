package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tracecmd/backend/internal/domain"
)

type countingTimeline struct {
	mu        sync.Mutex
	cleanups  []time.Duration
	cleanupCh chan struct{}
	err       error
}

func (r *countingTimeline) Create(ctx context.Context, event *domain.TimelineEvent) error { return nil }

func (r *countingTimeline) GetByResource(ctx context.Context, resourceType, resourceID string) ([]domain.TimelineEvent, error) {
	return nil, nil
}

func (r *countingTimeline) GetAll(ctx context.Context, limit int) ([]domain.TimelineEvent, error) {
	return nil, nil
}

func (r *countingTimeline) CleanupOld(ctx context.Context, olderThan time.Duration) error {
	r.mu.Lock()
	r.cleanups = append(r.cleanups, olderThan)
	r.mu.Unlock()
	if r.cleanupCh != nil {
		select {
		case r.cleanupCh <- struct{}{}:
		default:
		}
	}
	return r.err
}

func TestRetentionService_PruneOnce(t *testing.T) {
	repo := &countingTimeline{}
	svc := NewRetentionService(repo, nopLogger(), 0, 0)

	assert.NoError(t, svc.PruneOnce(context.Background()))
	assert.Equal(t, []time.Duration{30 * 24 * time.Hour}, repo.cleanups)

	repo.err = errors.New("db down")
	assert.Error(t, svc.PruneOnce(context.Background()))
}

func TestRetentionService_Run(t *testing.T) {
	repo := &countingTimeline{cleanupCh: make(chan struct{}, 1)}
	svc := NewRetentionService(repo, nopLogger(), time.Hour, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	select {
	case <-repo.cleanupCh:
	case <-time.After(5 * time.Second):
		t.Fatal("no cleanup ran")
	}
	cancel()
	<-done

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, time.Hour, repo.cleanups[0])
}
