package repositories

import (
	"context"
	"route-scheduling-service/internal/domain"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryOrderRepository serves orders from process memory. Used when no database is configured.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewMemoryOrderRepository(orders ...domain.Order) *MemoryOrderRepository {
	r := &MemoryOrderRepository{orders: make(map[string]domain.Order, len(orders))}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *MemoryOrderRepository) Put(o domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
}

func (r *MemoryOrderRepository) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

// MemoryTaskRepository keeps created work items in process memory.
type MemoryTaskRepository struct {
	mu    sync.Mutex
	tasks map[string]domain.WorkItem
	seq   map[string]int
	next  int
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: map[string]domain.WorkItem{},
		seq:   map[string]int{},
	}
}

func (r *MemoryTaskRepository) CreateTask(_ context.Context, item domain.WorkItem) (domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item.ID = uuid.NewString()
	r.tasks[item.ID] = item
	r.seq[item.ID] = r.next
	r.next++
	return item, nil
}

func (r *MemoryTaskRepository) DeleteTask(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	delete(r.seq, id)
	return nil
}

// Tasks returns the stored items in creation order.
func (r *MemoryTaskRepository) Tasks() []domain.WorkItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.WorkItem, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return r.seq[out[i].ID] < r.seq[out[j].ID] })
	return out
}
