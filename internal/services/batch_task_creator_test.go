package services

import (
	"context"
	"errors"
	"fmt"
	"route-scheduling-service/internal/adapters/repositories"
	"route-scheduling-service/internal/domain"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errRejected = errors.New("rejected by task store")

// flakyRepo fails items whose title is listed and tracks how many creations overlap.
type flakyRepo struct {
	*repositories.MemoryTaskRepository
	fail     map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	deleted  atomic.Int32
}

func newFlakyRepo(failTitles ...string) *flakyRepo {
	r := &flakyRepo{MemoryTaskRepository: repositories.NewMemoryTaskRepository(), fail: map[string]bool{}}
	for _, t := range failTitles {
		r.fail[t] = true
	}
	return r
}

func (r *flakyRepo) CreateTask(ctx context.Context, item domain.WorkItem) (domain.WorkItem, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if item.Title == "explode" {
		panic("storage driver bug")
	}
	if r.fail[item.Title] {
		return domain.WorkItem{}, errRejected
	}
	return r.MemoryTaskRepository.CreateTask(ctx, item)
}

func (r *flakyRepo) DeleteTask(ctx context.Context, id string) error {
	r.deleted.Add(1)
	return r.MemoryTaskRepository.DeleteTask(ctx, id)
}

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []batchEvent
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	if evt, ok := payload.(batchEvent); ok {
		p.events = append(p.events, evt)
	}
	return nil
}

func workItems(n int) []domain.WorkItem {
	items := make([]domain.WorkItem, n)
	for i := range items {
		items[i] = domain.WorkItem{Title: fmt.Sprintf("task %d", i)}
	}
	return items
}

func TestCreateTasksContinuesOnError(t *testing.T) {
	repo := newFlakyRepo("task 2")
	pub := &recordingPublisher{}
	b := NewBatchTaskCreator(repo, pub)

	res, err := b.CreateTasks(context.Background(), workItems(5), BatchOptions{MaxConcurrency: 2, ContinueOnError: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Created) != 4 || len(res.Failed) != 1 || res.RollbackPerformed {
		t.Fatalf("expected 4 created, 1 failed, no rollback; got %d / %d / %v", len(res.Created), len(res.Failed), res.RollbackPerformed)
	}
	if res.Failed[0].Index != 2 || !errors.Is(res.Failed[0], errRejected) {
		t.Fatalf("unexpected failure %v", res.Failed[0])
	}
	if got := len(repo.Tasks()); got != 4 {
		t.Fatalf("expected 4 stored tasks, got %d", got)
	}
	for _, c := range res.Created {
		if c.ID == "" {
			t.Fatalf("created task has no id: %+v", c)
		}
	}
	if len(pub.keys) != 1 || pub.keys[0] != EventBatchCompleted || pub.events[0].Created != 4 {
		t.Fatalf("unexpected events %v %+v", pub.keys, pub.events)
	}
}

func TestCreateTasksRecordsPanicAsFailure(t *testing.T) {
	repo := newFlakyRepo()
	items := workItems(4)
	items[1].Title = "explode"
	b := NewBatchTaskCreator(repo, nil)

	res, err := b.CreateTasks(context.Background(), items, BatchOptions{MaxConcurrency: 2, ContinueOnError: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Created) != 3 || len(res.Failed) != 1 {
		t.Fatalf("expected 3 created and 1 failed, got %d / %d", len(res.Created), len(res.Failed))
	}
	if f := res.Failed[0]; f.Index != 1 || !strings.Contains(f.Error(), "panic") {
		t.Fatalf("unexpected failure %v", f)
	}
}

func TestCreateTasksStopsAfterFailingBatch(t *testing.T) {
	repo := newFlakyRepo("task 2")
	b := NewBatchTaskCreator(repo, nil)

	res, err := b.CreateTasks(context.Background(), workItems(5), BatchOptions{MaxConcurrency: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Batches are [0 1] [2 3] [4]; the second batch finishes before stopping.
	if len(res.Created) != 3 || len(res.Failed) != 1 {
		t.Fatalf("expected 3 created and 1 failed, got %d / %d", len(res.Created), len(res.Failed))
	}
	if res.Total != 5 {
		t.Fatalf("expected total 5, got %d", res.Total)
	}
}

func TestCreateTasksRollsBack(t *testing.T) {
	repo := newFlakyRepo("task 3")
	pub := &recordingPublisher{}
	b := NewBatchTaskCreator(repo, pub)

	res, err := b.CreateTasks(context.Background(), workItems(6), BatchOptions{MaxConcurrency: 3, RollbackOnFailure: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.RollbackPerformed || len(res.Created) != 0 || len(res.Failed) != 1 {
		t.Fatalf("expected rollback with 1 failure, got %+v", res)
	}
	if got := repo.deleted.Load(); got != 5 {
		t.Fatalf("expected 5 deletions, got %d", got)
	}
	if got := len(repo.Tasks()); got != 0 {
		t.Fatalf("expected empty store after rollback, got %d tasks", got)
	}
	if len(pub.keys) != 1 || pub.keys[0] != EventBatchRolledBack {
		t.Fatalf("expected rolled back event, got %v", pub.keys)
	}
}

func TestCreateTasksBoundsConcurrency(t *testing.T) {
	repo := newFlakyRepo()
	b := NewBatchTaskCreator(repo, nil)

	res, err := b.CreateTasks(context.Background(), workItems(12), BatchOptions{MaxConcurrency: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Created) != 12 {
		t.Fatalf("expected 12 created, got %d", len(res.Created))
	}
	if peak := repo.peak.Load(); peak > 4 {
		t.Fatalf("expected at most 4 creations in flight, saw %d", peak)
	}
}

func TestCreateTasksReportsProgress(t *testing.T) {
	b := NewBatchTaskCreator(newFlakyRepo("task 1"), nil)

	var updates []Progress
	_, err := b.CreateTasks(context.Background(), workItems(4), BatchOptions{
		MaxConcurrency:  2,
		ContinueOnError: true,
		OnProgress:      func(p Progress) { updates = append(updates, p) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 4 {
		t.Fatalf("expected 4 progress updates, got %d", len(updates))
	}
	last := updates[len(updates)-1]
	if last.Completed != 4 || last.Failed != 1 || last.Percentage != 100 {
		t.Fatalf("unexpected final progress %+v", last)
	}
	for i := 1; i < len(updates); i++ {
		if updates[i].Completed <= updates[i-1].Completed {
			t.Fatalf("progress must increase: %+v", updates)
		}
	}
}

func TestCreateTasksValidatesOptions(t *testing.T) {
	b := NewBatchTaskCreator(newFlakyRepo(), nil)

	bad := []BatchOptions{
		{MaxConcurrency: 21},
		{MaxConcurrency: -1},
		{MaxConcurrency: 2, ContinueOnError: true, RollbackOnFailure: true},
	}
	for _, opts := range bad {
		var ve *domain.ValidationError
		if _, err := b.CreateTasks(context.Background(), workItems(1), opts); !errors.As(err, &ve) {
			t.Fatalf("options %+v: expected ValidationError, got %v", opts, err)
		}
	}

	res, err := b.CreateTasks(context.Background(), nil, BatchOptions{})
	if err != nil || res.Total != 0 || len(res.Created) != 0 {
		t.Fatalf("expected empty result for no items, got %+v %v", res, err)
	}
}

func TestCreateTasksStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewBatchTaskCreator(newFlakyRepo(), nil).CreateTasks(ctx, workItems(3), BatchOptions{MaxConcurrency: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil || len(res.Created) != 0 {
		t.Fatalf("expected partial empty result, got %+v", res)
	}
}
